package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/wantify/internal/model"
	"github.com/hitoshi/wantify/internal/repository"
)

// Link は発行済みの共有リンクと公開トークンの組。
type Link struct {
	Share *model.SharedWishlist
	Token string
}

// Service は共有リンクの発行・期間変更・取り消し・閲覧を提供する。
type Service struct {
	shares    repository.ShareRepository
	wishlists repository.WishlistRepository
	items     repository.ItemRepository
	codec     *Codec
	Now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	shares repository.ShareRepository,
	wishlists repository.WishlistRepository,
	items repository.ItemRepository,
	codec *Codec,
) *Service {
	return &Service{
		shares:    shares,
		wishlists: wishlists,
		items:     items,
		codec:     codec,
		Now:       time.Now,
	}
}

// Issue はウィッシュリストの共有リンクを返す。
// 有効な共有リンクがあれば再利用し、期限切れであれば削除して新しいIDで作り直す。
// durationが空の場合はDefaultShareDurationを使う。
func (s *Service) Issue(ctx context.Context, wishlistID string, user *model.User, duration model.ShareDuration) (*Link, error) {
	if duration == "" {
		duration = model.DefaultShareDuration
	}
	if !duration.Valid() {
		return nil, invalidDurationError("duration", duration)
	}

	if _, err := s.ownedWishlist(ctx, wishlistID, user); err != nil {
		return nil, err
	}

	now := s.Now()
	existing, err := s.shares.FindActiveByWishlistID(ctx, wishlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to find share link: %w", err)
	}
	if existing != nil {
		if existing.Live(now) {
			return s.link(existing)
		}
		// 期限切れのリンクは再利用せず、古いURLを無効にする
		if _, err := s.shares.SoftDelete(ctx, existing.ID, now); err != nil {
			return nil, fmt.Errorf("failed to delete expired share link: %w", err)
		}
		slog.Info("expired share link replaced",
			slog.String("wishlist_id", wishlistID),
			slog.String("share_id", existing.ID),
		)
	}

	share := &model.SharedWishlist{
		ID:           uuid.New().String(),
		WishlistID:   wishlistID,
		DurationType: duration,
		ExpiresAt:    duration.ExpiresAt(now),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.shares.Create(ctx, share); err != nil {
		// 同時発行で一意制約に違反した場合は先に作られたリンクを返す
		if winner, findErr := s.shares.FindActiveByWishlistID(ctx, wishlistID); findErr == nil && winner != nil && winner.Live(now) {
			return s.link(winner)
		}
		slog.Error("failed to create share link",
			slog.String("wishlist_id", wishlistID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewShareNotCreatedError()
	}

	slog.Info("share link created",
		slog.String("wishlist_id", wishlistID),
		slog.String("share_id", share.ID),
		slog.String("duration", string(duration)),
	)
	return s.link(share)
}

// UpdateDuration は共有リンクの有効期間を変更し、有効期限をnowから再計算する。
// ウィッシュリストの所有者以外は未検出として扱う。
func (s *Service) UpdateDuration(ctx context.Context, token string, user *model.User, duration model.ShareDuration) error {
	if !duration.Valid() {
		return invalidDurationError("newDuration", duration)
	}

	share, err := s.findByToken(ctx, token)
	if err != nil {
		return err
	}
	if share == nil || share.Deletion.IsDeleted() {
		return model.NewShareNotFoundError()
	}
	if _, err := s.ownedWishlist(ctx, share.WishlistID, user); err != nil {
		if model.IsKind(err, model.KindNotFound) {
			return model.NewShareNotFoundError()
		}
		return err
	}

	now := s.Now()
	if err := s.shares.UpdateDuration(ctx, share.ID, duration, duration.ExpiresAt(now), now); err != nil {
		return err
	}

	slog.Info("share link duration updated",
		slog.String("share_id", share.ID),
		slog.String("duration", string(duration)),
	)
	return nil
}

// Revoke はウィッシュリストの共有リンクを論理削除する。リンクがなくてもエラーにしない。
func (s *Service) Revoke(ctx context.Context, wishlistID string, user *model.User) error {
	if _, err := s.ownedWishlist(ctx, wishlistID, user); err != nil {
		return err
	}

	existing, err := s.shares.FindActiveByWishlistID(ctx, wishlistID)
	if err != nil {
		return fmt.Errorf("failed to find share link: %w", err)
	}
	if existing == nil {
		return nil
	}
	if _, err := s.shares.SoftDelete(ctx, existing.ID, s.Now()); err != nil {
		return fmt.Errorf("failed to revoke share link: %w", err)
	}

	slog.Info("share link revoked",
		slog.String("wishlist_id", wishlistID),
		slog.String("share_id", existing.ID),
	)
	return nil
}

// View は公開トークンから共有ページの内容を取得する。認証不要。
// トークン不正、リンクの削除・期限切れ、ウィッシュリストの削除はすべて未検出として扱い、
// 一部のデータだけを返すことはしない。
func (s *Service) View(ctx context.Context, token string) (*model.SharedWishlistView, error) {
	share, err := s.findByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if share == nil || !share.Live(s.Now()) {
		return nil, model.NewShareNotFoundError()
	}

	wishlist, err := s.wishlists.FindByID(ctx, share.WishlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to find shared wishlist: %w", err)
	}
	if wishlist == nil {
		return nil, model.NewShareNotFoundError()
	}

	items, err := s.items.ListByWishlistID(ctx, wishlist.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared items: %w", err)
	}

	view := &model.SharedWishlistView{
		WishlistName: wishlist.Name,
		Items:        make([]model.SharedItem, 0, len(items)),
	}
	for _, item := range items {
		view.Items = append(view.Items, model.SharedItem{
			ItemName: item.ItemName,
			URL:      item.URL,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}
	return view, nil
}

func (s *Service) link(share *model.SharedWishlist) (*Link, error) {
	token, err := s.codec.Encode(share.ID)
	if err != nil {
		return nil, err
	}
	return &Link{Share: share, Token: token}, nil
}

// findByToken はトークンを復元して共有リンクを取得する。復元できないトークンはnilを返す。
func (s *Service) findByToken(ctx context.Context, token string) (*model.SharedWishlist, error) {
	id, err := s.codec.Decode(token)
	if errors.Is(err, ErrInvalidToken) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	share, err := s.shares.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find share link: %w", err)
	}
	return share, nil
}

func (s *Service) ownedWishlist(ctx context.Context, wishlistID string, user *model.User) (*model.Wishlist, error) {
	if _, err := uuid.Parse(wishlistID); err != nil {
		return nil, model.NewWishlistNotFoundError(wishlistID)
	}
	w, err := s.wishlists.FindOwned(ctx, wishlistID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find wishlist: %w", err)
	}
	if w == nil {
		return nil, model.NewWishlistNotFoundError(wishlistID)
	}
	return w, nil
}

func invalidDurationError(field string, d model.ShareDuration) *model.APIError {
	return model.NewValidationError(
		fmt.Sprintf("Invalid share duration: %s", d),
		map[string]string{field: "ONE_HOUR, ONE_DAY, SEVEN_DAYS, FOURTEEN_DAYS, THIRTY_DAYS, NINETY_DAYS, NEVER のいずれかを指定してください。"},
	)
}
