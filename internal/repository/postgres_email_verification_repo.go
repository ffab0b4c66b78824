package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/wantify/internal/model"
)

// PostgresEmailVerificationRepo はPostgreSQLを使用したメール確認リクエストリポジトリ。
type PostgresEmailVerificationRepo struct {
	db *sql.DB
}

// NewPostgresEmailVerificationRepo はPostgresEmailVerificationRepoを生成する。
func NewPostgresEmailVerificationRepo(db *sql.DB) *PostgresEmailVerificationRepo {
	return &PostgresEmailVerificationRepo{db: db}
}

// Replace はユーザーの既存リクエストを削除し、新しいリクエストを作成する。
func (r *PostgresEmailVerificationRepo) Replace(ctx context.Context, req *model.EmailVerificationRequest) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM email_verification_requests WHERE user_id = $1`,
		req.UserID,
	); err != nil {
		return fmt.Errorf("failed to delete previous verification requests: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO email_verification_requests (id, user_id, email, code, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		req.ID, req.UserID, req.Email, req.Code, req.ExpiresAt, req.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert verification request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FindLatestByUserID はユーザーの最新リクエストを取得する。見つからない場合はnilを返す。
func (r *PostgresEmailVerificationRepo) FindLatestByUserID(ctx context.Context, userID string) (*model.EmailVerificationRequest, error) {
	req := &model.EmailVerificationRequest{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, email, code, expires_at, created_at
		 FROM email_verification_requests
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID,
	).Scan(&req.ID, &req.UserID, &req.Email, &req.Code, &req.ExpiresAt, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find verification request: %w", err)
	}
	return req, nil
}

// Confirm はユーザーのメールアドレスを確認済みに更新し、
// リクエストを同一トランザクションで削除する。
func (r *PostgresEmailVerificationRepo) Confirm(ctx context.Context, req *model.EmailVerificationRequest, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET email = $2, email_verified = true, updated_at = $3 WHERE id = $1`,
		req.UserID, req.Email, now,
	); err != nil {
		return fmt.Errorf("failed to update user email: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM email_verification_requests WHERE user_id = $1`,
		req.UserID,
	); err != nil {
		return fmt.Errorf("failed to delete verification requests: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// compile-time interface check
var _ EmailVerificationRepository = (*PostgresEmailVerificationRepo)(nil)
