package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/wantify/internal/model"
)

const shareColumns = `id, wishlist_id, duration_type, expires_at, deleted_at, created_at, updated_at`

// PostgresShareRepo はPostgreSQLを使用した共有リンクリポジトリ。
type PostgresShareRepo struct {
	db *sql.DB
}

// NewPostgresShareRepo はPostgresShareRepoを生成する。
func NewPostgresShareRepo(db *sql.DB) *PostgresShareRepo {
	return &PostgresShareRepo{db: db}
}

func scanShare(row rowScanner) (*model.SharedWishlist, error) {
	var (
		s         model.SharedWishlist
		expiresAt sql.NullTime
		deletedAt sql.NullTime
	)
	err := row.Scan(&s.ID, &s.WishlistID, &s.DurationType, &expiresAt, &deletedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		s.ExpiresAt = &t
	}
	s.Deletion = model.DeletionFromNullTime(deletedAt)
	return &s, nil
}

// FindActiveByWishlistID はウィッシュリストの未削除の共有リンクを取得する。
// 期限切れかどうかは判定しない。見つからない場合はnilを返す。
func (r *PostgresShareRepo) FindActiveByWishlistID(ctx context.Context, wishlistID string) (*model.SharedWishlist, error) {
	s, err := scanShare(r.db.QueryRowContext(ctx,
		`SELECT `+shareColumns+`
		 FROM shared_wishlists
		 WHERE wishlist_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC
		 LIMIT 1`,
		wishlistID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find share by wishlist: %w", err)
	}
	return s, nil
}

// FindByID は共有リンクを取得する。論理削除済みも返す。
func (r *PostgresShareRepo) FindByID(ctx context.Context, id string) (*model.SharedWishlist, error) {
	s, err := scanShare(r.db.QueryRowContext(ctx,
		`SELECT `+shareColumns+` FROM shared_wishlists WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find share: %w", err)
	}
	return s, nil
}

// Create は共有リンクを作成する。
func (r *PostgresShareRepo) Create(ctx context.Context, s *model.SharedWishlist) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shared_wishlists (id, wishlist_id, duration_type, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.WishlistID, string(s.DurationType), nullTime(s.ExpiresAt), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create share: %w", err)
	}
	return nil
}

// UpdateDuration は有効期間と有効期限を更新する。
func (r *PostgresShareRepo) UpdateDuration(ctx context.Context, id string, duration model.ShareDuration, expiresAt *time.Time, now time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE shared_wishlists
		 SET duration_type = $2, expires_at = $3, updated_at = $4
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, string(duration), nullTime(expiresAt), now,
	)
	if err != nil {
		return fmt.Errorf("failed to update share duration: %w", err)
	}
	ok, err := affected(result)
	if err != nil {
		return err
	}
	if !ok {
		return model.NewShareNotFoundError()
	}
	return nil
}

// SoftDelete は共有リンクを論理削除する。対象がなければfalseを返す。
func (r *PostgresShareRepo) SoftDelete(ctx context.Context, id string, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE shared_wishlists SET deleted_at = $2, updated_at = $2
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete share: %w", err)
	}
	return affected(result)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// compile-time interface check
var _ ShareRepository = (*PostgresShareRepo)(nil)
