package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/wantify/internal/model"
)

func TestPostgresEmailVerificationRepo_Replace(t *testing.T) {
	req := &model.EmailVerificationRequest{
		ID: "req-1", UserID: "user-1", Email: "a@example.com", Code: "ABCDEFGH",
		ExpiresAt: testNow.Add(10 * time.Minute), CreatedAt: testNow,
	}

	t.Run("既存リクエストを削除してから作成する", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostgresEmailVerificationRepo(db)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM email_verification_requests WHERE user_id = \$1`).
			WithArgs("user-1").
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`INSERT INTO email_verification_requests`).
			WithArgs("req-1", "user-1", "a@example.com", "ABCDEFGH", req.ExpiresAt, testNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Replace(context.Background(), req))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("作成失敗でロールバックする", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostgresEmailVerificationRepo(db)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM email_verification_requests`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO email_verification_requests`).WillReturnError(errors.New("boom"))
		mock.ExpectRollback()

		require.Error(t, repo.Replace(context.Background(), req))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresEmailVerificationRepo_Confirm(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresEmailVerificationRepo(db)
	req := &model.EmailVerificationRequest{UserID: "user-1", Email: "a@example.com"}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users SET email = \$2, email_verified = true`).
		WithArgs("user-1", "a@example.com", testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM email_verification_requests`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Confirm(context.Background(), req, testNow))
	assert.NoError(t, mock.ExpectationsWereMet())
}
