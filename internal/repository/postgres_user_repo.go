package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/wantify/internal/model"
)

const userColumns = `id, guest_id, is_guest, email, email_verified, name, created_at, updated_at`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user    model.User
		guestID sql.NullString
		email   sql.NullString
		name    sql.NullString
	)
	err := row.Scan(&user.ID, &guestID, &user.IsGuest, &email, &user.EmailVerified, &name, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.GuestID = guestID.String
	user.Email = email.String
	user.Name = name.String
	return &user, nil
}

// FindByID は指定IDのユーザーを連携情報付きで取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	identities, err := listIdentities(ctx, r.db, user.ID)
	if err != nil {
		return nil, err
	}
	user.Identities = identities

	return user, nil
}

// FindByGuestID はゲストIDでゲストユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByGuestID(ctx context.Context, guestID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE guest_id = $1 AND is_guest AND deleted_at IS NULL`,
		guestID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by guest ID: %w", err)
	}
	return user, nil
}

// CreateGuest はゲストユーザーを作成する。
func (r *PostgresUserRepo) CreateGuest(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, guest_id, is_guest, created_at, updated_at)
		 VALUES ($1, $2, true, $3, $4)`,
		user.ID, user.GuestID, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert guest user: %w", err)
	}
	return nil
}

// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
func (r *PostgresUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// ユーザーを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, is_guest, name, created_at, updated_at)
		 VALUES ($1, false, $2, $3, $4)`,
		user.ID, nullString(user.Name), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	// identityを作成
	if err := insertIdentity(ctx, tx, identity); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// PromoteGuest はゲストユーザーを同一IDのまま正規アカウントに昇格させ、
// identityを同一トランザクションで紐付ける。
// 対象のゲストが存在しない場合はnilを返す。
func (r *PostgresUserRepo) PromoteGuest(ctx context.Context, guestID string, identity *model.Identity, now time.Time) (*model.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := scanUser(tx.QueryRowContext(ctx,
		`UPDATE users
		 SET is_guest = false, guest_id = NULL, name = COALESCE(name, $2), updated_at = $3
		 WHERE guest_id = $1 AND is_guest AND deleted_at IS NULL
		 RETURNING `+userColumns,
		guestID, identity.ProviderUsername, now,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to promote guest user: %w", err)
	}

	identity.UserID = user.ID
	if err := insertIdentity(ctx, tx, identity); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	user.Identities = []model.Identity{*identity}
	return user, nil
}

// Withdraw はユーザーを退会済みにする。
// 所有するウィッシュリストとそのアイテム・共有リンクは論理削除し、
// identities、確認リクエストは削除、セッションは論理削除する。
// ユーザー行は個人情報を消した上でdeleted_at付きで残す。
// ロック中のウィッシュリストがある場合は何も変更せずLockedエラーを返す。
func (r *PostgresUserRepo) Withdraw(ctx context.Context, id string, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 同時実行を防ぐためユーザー行をロック
	var found string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`,
		id,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewUserNotFoundError()
	}
	if err != nil {
		return fmt.Errorf("failed to lock user: %w", err)
	}

	var lockedWishlistID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM wishlists
		 WHERE user_id = $1 AND deleted_at IS NULL AND is_locked
		 LIMIT 1`,
		id,
	).Scan(&lockedWishlistID)
	switch {
	case err == nil:
		return model.NewWishlistLockedError(lockedWishlistID)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to check locked wishlists: %w", err)
	}

	steps := []struct {
		what  string
		query string
	}{
		{"wishlist items", `UPDATE wishlist_items SET deleted_at = $2, updated_at = $2
			WHERE deleted_at IS NULL AND wishlist_id IN (
				SELECT id FROM wishlists WHERE user_id = $1 AND deleted_at IS NULL)`},
		{"shared wishlists", `UPDATE shared_wishlists SET deleted_at = $2, updated_at = $2
			WHERE deleted_at IS NULL AND wishlist_id IN (
				SELECT id FROM wishlists WHERE user_id = $1 AND deleted_at IS NULL)`},
		{"wishlists", `UPDATE wishlists SET deleted_at = $2, updated_at = $2
			WHERE user_id = $1 AND deleted_at IS NULL`},
		{"sessions", `UPDATE sessions SET deleted_at = $2
			WHERE user_id = $1 AND deleted_at IS NULL`},
		{"user", `UPDATE users SET email = NULL, email_verified = false, name = NULL, deleted_at = $2, updated_at = $2
			WHERE id = $1`},
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, id, now); err != nil {
			return fmt.Errorf("failed to withdraw %s: %w", step.what, err)
		}
	}

	for _, table := range []string{"identities", "email_verification_requests"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
