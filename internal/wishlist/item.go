package wishlist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hitoshi/wantify/internal/model"
)

// AddItem はウィッシュリストにアイテムを追加する。
func (s *Service) AddItem(ctx context.Context, wishlistID string, user *model.User, in model.ItemInput) (*model.WishlistItem, error) {
	w, err := s.unlocked(ctx, wishlistID, user)
	if err != nil {
		return nil, err
	}
	in, err = s.normalizeItem(in)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	item := &model.WishlistItem{
		ID:         uuid.New().String(),
		WishlistID: w.ID,
		ItemName:   in.ItemName,
		Price:      in.Price,
		Quantity:   in.QuantityOrDefault(),
		URL:        in.URL,
		ImageURL:   in.ImageURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.items.Create(ctx, item); err != nil {
		slog.Error("failed to create item",
			slog.String("wishlist_id", w.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewItemNotCreatedError()
	}
	return item, nil
}

// UpdateItem はアイテムの内容を更新する。
// アイテムが未削除かつ同じウィッシュリストに属していない場合は未検出エラーを返す。
func (s *Service) UpdateItem(ctx context.Context, wishlistID, itemID string, user *model.User, in model.ItemInput) (*model.WishlistItem, error) {
	w, err := s.unlocked(ctx, wishlistID, user)
	if err != nil {
		return nil, err
	}
	item, err := s.findItem(ctx, w.ID, itemID)
	if err != nil {
		return nil, err
	}
	in, err = s.normalizeItem(in)
	if err != nil {
		return nil, err
	}

	item.ItemName = in.ItemName
	item.Price = in.Price
	item.Quantity = in.QuantityOrDefault()
	item.URL = in.URL
	item.ImageURL = in.ImageURL
	item.UpdatedAt = s.Now()

	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem はアイテムを論理削除する。
func (s *Service) DeleteItem(ctx context.Context, wishlistID, itemID string, user *model.User) error {
	w, err := s.unlocked(ctx, wishlistID, user)
	if err != nil {
		return err
	}
	if _, err := uuid.Parse(itemID); err != nil {
		return model.NewItemNotFoundError(itemID)
	}
	deleted, err := s.items.SoftDelete(ctx, w.ID, itemID, s.Now())
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewItemNotFoundError(itemID)
	}
	return nil
}

func (s *Service) findItem(ctx context.Context, wishlistID, itemID string) (*model.WishlistItem, error) {
	if _, err := uuid.Parse(itemID); err != nil {
		return nil, model.NewItemNotFoundError(itemID)
	}
	item, err := s.items.FindByID(ctx, wishlistID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to find item: %w", err)
	}
	if item == nil {
		return nil, model.NewItemNotFoundError(itemID)
	}
	return item, nil
}
