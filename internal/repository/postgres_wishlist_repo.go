package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/wantify/internal/model"
)

const wishlistColumns = `id, user_id, name, street_address, address_line2, city, state, zip_code, is_locked, deleted_at, created_at, updated_at`

// PostgresWishlistRepo はPostgreSQLを使用したウィッシュリストリポジトリ。
type PostgresWishlistRepo struct {
	db *sql.DB
}

// NewPostgresWishlistRepo はPostgresWishlistRepoを生成する。
func NewPostgresWishlistRepo(db *sql.DB) *PostgresWishlistRepo {
	return &PostgresWishlistRepo{db: db}
}

func scanWishlist(row rowScanner) (*model.Wishlist, error) {
	var (
		w         model.Wishlist
		deletedAt sql.NullTime
	)
	err := row.Scan(
		&w.ID, &w.UserID, &w.Name,
		&w.Address.StreetAddress, &w.Address.AddressLine2, &w.Address.City, &w.Address.State, &w.Address.ZipCode,
		&w.IsLocked, &deletedAt, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	w.Deletion = model.DeletionFromNullTime(deletedAt)
	return &w, nil
}

// Create はウィッシュリストを作成する。
func (r *PostgresWishlistRepo) Create(ctx context.Context, w *model.Wishlist) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wishlists (id, user_id, name, street_address, address_line2, city, state, zip_code, is_locked, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		w.ID, w.UserID, w.Name,
		w.Address.StreetAddress, w.Address.AddressLine2, w.Address.City, w.Address.State, w.Address.ZipCode,
		w.IsLocked, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create wishlist: %w", err)
	}
	return nil
}

// FindOwned はユーザーが所有する未削除のウィッシュリストを取得する。
// 存在しない場合と他人の所有の場合はどちらもnilを返す。
func (r *PostgresWishlistRepo) FindOwned(ctx context.Context, id, userID string) (*model.Wishlist, error) {
	w, err := scanWishlist(r.db.QueryRowContext(ctx,
		`SELECT `+wishlistColumns+`
		 FROM wishlists
		 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find wishlist: %w", err)
	}
	return w, nil
}

// FindByID は未削除のウィッシュリストを所有者を問わず取得する。
func (r *PostgresWishlistRepo) FindByID(ctx context.Context, id string) (*model.Wishlist, error) {
	w, err := scanWishlist(r.db.QueryRowContext(ctx,
		`SELECT `+wishlistColumns+`
		 FROM wishlists
		 WHERE id = $1 AND deleted_at IS NULL`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find wishlist by ID: %w", err)
	}
	return w, nil
}

// ListByUserID はユーザーの未削除ウィッシュリストを作成日時の降順で返す。
func (r *PostgresWishlistRepo) ListByUserID(ctx context.Context, userID string) ([]model.Wishlist, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+wishlistColumns+`
		 FROM wishlists
		 WHERE user_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlists: %w", err)
	}
	defer rows.Close()

	wishlists := []model.Wishlist{}
	for rows.Next() {
		w, err := scanWishlist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wishlist: %w", err)
		}
		wishlists = append(wishlists, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wishlists: %w", err)
	}
	return wishlists, nil
}

// CountByUserID はユーザーの未削除ウィッシュリスト数を返す。
func (r *PostgresWishlistRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM wishlists WHERE user_id = $1 AND deleted_at IS NULL`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count wishlists: %w", err)
	}
	return count, nil
}

// UpdateName はウィッシュリスト名を更新する。
func (r *PostgresWishlistRepo) UpdateName(ctx context.Context, id, name string, now time.Time) error {
	return r.update(ctx, "name",
		`UPDATE wishlists SET name = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`,
		id, name, now,
	)
}

// UpdateLock はロック状態を更新する。
func (r *PostgresWishlistRepo) UpdateLock(ctx context.Context, id string, locked bool, now time.Time) error {
	return r.update(ctx, "lock",
		`UPDATE wishlists SET is_locked = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`,
		id, locked, now,
	)
}

// UpdateAddress は配送先住所を更新する。
func (r *PostgresWishlistRepo) UpdateAddress(ctx context.Context, id string, addr model.Address, now time.Time) error {
	return r.update(ctx, "address",
		`UPDATE wishlists
		 SET street_address = $2, address_line2 = $3, city = $4, state = $5, zip_code = $6, updated_at = $7
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, addr.StreetAddress, addr.AddressLine2, addr.City, addr.State, addr.ZipCode, now,
	)
}

func (r *PostgresWishlistRepo) update(ctx context.Context, what, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update wishlist %s: %w", what, err)
	}
	ok, err := affected(result)
	if err != nil {
		return err
	}
	if !ok {
		return model.NewWishlistNotFoundError(args[0].(string))
	}
	return nil
}

// DeleteCascade はアイテム、共有リンク、ウィッシュリスト本体を
// 同一トランザクションで論理削除する。いずれかが失敗した場合は何も反映しない。
func (r *PostgresWishlistRepo) DeleteCascade(ctx context.Context, id string, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// アイテムを論理削除
	if _, err := tx.ExecContext(ctx,
		`UPDATE wishlist_items SET deleted_at = $2, updated_at = $2
		 WHERE wishlist_id = $1 AND deleted_at IS NULL`,
		id, now,
	); err != nil {
		return fmt.Errorf("failed to delete wishlist items: %w", err)
	}

	// 共有リンクを論理削除
	if _, err := tx.ExecContext(ctx,
		`UPDATE shared_wishlists SET deleted_at = $2, updated_at = $2
		 WHERE wishlist_id = $1 AND deleted_at IS NULL`,
		id, now,
	); err != nil {
		return fmt.Errorf("failed to delete shared wishlists: %w", err)
	}

	// ウィッシュリスト本体を論理削除
	result, err := tx.ExecContext(ctx,
		`UPDATE wishlists SET deleted_at = $2, updated_at = $2
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, now,
	)
	if err != nil {
		return fmt.Errorf("failed to delete wishlist: %w", err)
	}
	ok, err := affected(result)
	if err != nil {
		return err
	}
	if !ok {
		return model.NewWishlistNotFoundError(id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// compile-time interface check
var _ WishlistRepository = (*PostgresWishlistRepo)(nil)
