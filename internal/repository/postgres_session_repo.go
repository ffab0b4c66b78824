package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/wantify/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create はセッションを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, secret_hash, created_at, last_activity_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		session.ID, session.UserID, session.SecretHash, session.CreatedAt, session.LastActivityAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。論理削除済みも返す。
// 見つからない場合はnilを返す。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	session := &model.Session{}
	var deletedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, secret_hash, created_at, last_activity_at, deleted_at
		 FROM sessions
		 WHERE id = $1`,
		id,
	).Scan(&session.ID, &session.UserID, &session.SecretHash, &session.CreatedAt, &session.LastActivityAt, &deletedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	session.Deletion = model.DeletionFromNullTime(deletedAt)

	return session, nil
}

// Touch はlast_activity_atがprevのままの場合に限りnowへ更新する。
// 他のリクエストが先に更新していた場合はfalseを返す。
func (r *PostgresSessionRepo) Touch(ctx context.Context, id string, prev, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity_at = $3
		 WHERE id = $1 AND last_activity_at = $2 AND deleted_at IS NULL`,
		id, prev, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to touch session: %w", err)
	}
	return affected(result)
}

// SoftDelete はセッションを論理削除する。対象がなければfalseを返す。
func (r *PostgresSessionRepo) SoftDelete(ctx context.Context, id string, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to soft delete session: %w", err)
	}
	return affected(result)
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
