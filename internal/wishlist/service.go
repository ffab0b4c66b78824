// Package wishlist はウィッシュリストとアイテムのビジネスロジックを提供する。
// 所有者確認、ロック確認、ゲストの作成上限はすべてこのパッケージで判定する。
package wishlist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/wantify/internal/model"
	"github.com/hitoshi/wantify/internal/repository"
	"github.com/hitoshi/wantify/internal/security"
)

// GuestWishlistLimit はゲストユーザーが保持できる未削除ウィッシュリストの上限。
const GuestWishlistLimit = 1

// Service はウィッシュリストに関するビジネスロジックを提供する。
type Service struct {
	wishlists repository.WishlistRepository
	items     repository.ItemRepository
	sanitizer security.TextSanitizer
	guard     security.URLGuard
	Now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	wishlists repository.WishlistRepository,
	items repository.ItemRepository,
	sanitizer security.TextSanitizer,
	guard security.URLGuard,
) *Service {
	return &Service{
		wishlists: wishlists,
		items:     items,
		sanitizer: sanitizer,
		guard:     guard,
		Now:       time.Now,
	}
}

// List はユーザーの未削除ウィッシュリストを新しい順で返す。
func (s *Service) List(ctx context.Context, user *model.User) ([]model.Wishlist, error) {
	wishlists, err := s.wishlists.ListByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlists: %w", err)
	}
	return wishlists, nil
}

// Get はウィッシュリストと未削除アイテムを返す。
func (s *Service) Get(ctx context.Context, id string, user *model.User) (*model.WishlistWithItems, error) {
	w, err := s.owned(ctx, id, user)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListByWishlistID(ctx, w.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return &model.WishlistWithItems{Wishlist: *w, Items: items}, nil
}

// Create はデフォルト名でウィッシュリストを作成する。
// ゲストユーザーは未削除のウィッシュリストをGuestWishlistLimit件までしか持てない。
func (s *Service) Create(ctx context.Context, user *model.User) (*model.Wishlist, error) {
	if user.IsGuest {
		count, err := s.wishlists.CountByUserID(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count wishlists: %w", err)
		}
		if count >= GuestWishlistLimit {
			return nil, model.NewWishlistNotCreatedError("guest wishlist limit reached")
		}
	}

	now := s.Now()
	w := &model.Wishlist{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Name:      DefaultName(now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.wishlists.Create(ctx, w); err != nil {
		slog.Error("failed to create wishlist",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewWishlistNotCreatedError("insert failed")
	}

	slog.Info("wishlist created",
		slog.String("user_id", user.ID),
		slog.String("wishlist_id", w.ID),
	)
	return w, nil
}

// DefaultName は新規ウィッシュリストの名前を返す。
func DefaultName(now time.Time) string {
	return fmt.Sprintf("My Wishlist: %d", now.UnixMilli())
}

// Rename はウィッシュリスト名を変更する。
// 名前は前後の空白を除いて空でなく、現在の名前と異なる必要がある。
func (s *Service) Rename(ctx context.Context, id string, user *model.User, name string) (*model.Wishlist, error) {
	w, err := s.unlocked(ctx, id, user)
	if err != nil {
		return nil, err
	}

	name = s.sanitizer.Sanitize(name)
	switch {
	case name == "":
		return nil, model.NewValidationError("Wishlist name is required", map[string]string{"name": "名前を入力してください。"})
	case len([]rune(name)) > maxTextLength:
		return nil, model.NewValidationError("Wishlist name is too long", map[string]string{"name": "255文字以内で入力してください。"})
	case name == w.Name:
		return nil, model.NewValidationError("Wishlist name is unchanged", map[string]string{"name": "現在の名前と異なる名前を入力してください。"})
	}

	now := s.Now()
	if err := s.wishlists.UpdateName(ctx, w.ID, name, now); err != nil {
		return nil, err
	}
	w.Name = name
	w.UpdatedAt = now
	return w, nil
}

// ToggleLock はロック状態を反転する。ロック中でも実行できる唯一の変更操作。
func (s *Service) ToggleLock(ctx context.Context, id string, user *model.User) (*model.Wishlist, error) {
	w, err := s.owned(ctx, id, user)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	if err := s.wishlists.UpdateLock(ctx, w.ID, !w.IsLocked, now); err != nil {
		return nil, err
	}
	w.IsLocked = !w.IsLocked
	w.UpdatedAt = now

	slog.Info("wishlist lock toggled",
		slog.String("wishlist_id", w.ID),
		slog.Bool("locked", w.IsLocked),
	)
	return w, nil
}

// SaveAddress は配送先住所を保存する。
func (s *Service) SaveAddress(ctx context.Context, id string, user *model.User, addr model.Address) (*model.Wishlist, error) {
	w, err := s.unlocked(ctx, id, user)
	if err != nil {
		return nil, err
	}

	addr, err = s.normalizeAddress(addr)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	if err := s.wishlists.UpdateAddress(ctx, w.ID, addr, now); err != nil {
		return nil, err
	}
	w.Address = addr
	w.UpdatedAt = now
	return w, nil
}

// Delete はアイテム、共有リンク、ウィッシュリストを同一トランザクションで論理削除する。
func (s *Service) Delete(ctx context.Context, id string, user *model.User) error {
	w, err := s.unlocked(ctx, id, user)
	if err != nil {
		return err
	}
	if err := s.wishlists.DeleteCascade(ctx, w.ID, s.Now()); err != nil {
		return err
	}

	slog.Info("wishlist deleted",
		slog.String("user_id", user.ID),
		slog.String("wishlist_id", w.ID),
	)
	return nil
}

// owned はユーザーが所有する未削除のウィッシュリストを返す。
// 存在しない場合と他人の所有の場合は同じ未検出エラーを返す。
func (s *Service) owned(ctx context.Context, id string, user *model.User) (*model.Wishlist, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewWishlistNotFoundError(id)
	}
	w, err := s.wishlists.FindOwned(ctx, id, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find wishlist: %w", err)
	}
	if w == nil {
		return nil, model.NewWishlistNotFoundError(id)
	}
	return w, nil
}

// unlocked は所有確認に加えてロックされていないことを確認する。
func (s *Service) unlocked(ctx context.Context, id string, user *model.User) (*model.Wishlist, error) {
	w, err := s.owned(ctx, id, user)
	if err != nil {
		return nil, err
	}
	if w.IsLocked {
		return nil, model.NewWishlistLockedError(w.ID)
	}
	return w, nil
}
