package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/wantify/internal/model"
)

const itemColumns = `id, wishlist_id, item_name, price, quantity, url, image_url, deleted_at, created_at, updated_at`

// PostgresItemRepo はPostgreSQLを使用したウィッシュリストアイテムリポジトリ。
type PostgresItemRepo struct {
	db *sql.DB
}

// NewPostgresItemRepo はPostgresItemRepoを生成する。
func NewPostgresItemRepo(db *sql.DB) *PostgresItemRepo {
	return &PostgresItemRepo{db: db}
}

func scanItem(row rowScanner) (*model.WishlistItem, error) {
	var (
		item      model.WishlistItem
		imageURL  sql.NullString
		deletedAt sql.NullTime
	)
	err := row.Scan(
		&item.ID, &item.WishlistID, &item.ItemName, &item.Price, &item.Quantity,
		&item.URL, &imageURL, &deletedAt, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.ImageURL = imageURL.String
	item.Deletion = model.DeletionFromNullTime(deletedAt)
	return &item, nil
}

// Create はアイテムを作成する。
func (r *PostgresItemRepo) Create(ctx context.Context, item *model.WishlistItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wishlist_items (id, wishlist_id, item_name, price, quantity, url, image_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		item.ID, item.WishlistID, item.ItemName, item.Price, item.Quantity,
		item.URL, nullString(item.ImageURL), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

// FindByID はウィッシュリストに属する未削除アイテムを取得する。見つからない場合はnilを返す。
func (r *PostgresItemRepo) FindByID(ctx context.Context, wishlistID, itemID string) (*model.WishlistItem, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+`
		 FROM wishlist_items
		 WHERE id = $1 AND wishlist_id = $2 AND deleted_at IS NULL`,
		itemID, wishlistID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find item: %w", err)
	}
	return item, nil
}

// ListByWishlistID はウィッシュリストの未削除アイテムを作成順で返す。
func (r *PostgresItemRepo) ListByWishlistID(ctx context.Context, wishlistID string) ([]model.WishlistItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+`
		 FROM wishlist_items
		 WHERE wishlist_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at, id`,
		wishlistID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []model.WishlistItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

// Update はアイテムの内容を更新する。
func (r *PostgresItemRepo) Update(ctx context.Context, item *model.WishlistItem) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE wishlist_items
		 SET item_name = $3, price = $4, quantity = $5, url = $6, image_url = $7, updated_at = $8
		 WHERE id = $1 AND wishlist_id = $2 AND deleted_at IS NULL`,
		item.ID, item.WishlistID, item.ItemName, item.Price, item.Quantity,
		item.URL, nullString(item.ImageURL), item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	ok, err := affected(result)
	if err != nil {
		return err
	}
	if !ok {
		return model.NewItemNotFoundError(item.ID)
	}
	return nil
}

// SoftDelete はアイテムを論理削除する。対象がなければfalseを返す。
func (r *PostgresItemRepo) SoftDelete(ctx context.Context, wishlistID, itemID string, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE wishlist_items SET deleted_at = $3, updated_at = $3
		 WHERE id = $1 AND wishlist_id = $2 AND deleted_at IS NULL`,
		itemID, wishlistID, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete item: %w", err)
	}
	return affected(result)
}

// compile-time interface check
var _ ItemRepository = (*PostgresItemRepo)(nil)
