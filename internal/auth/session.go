package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/wantify/internal/metrics"
	"github.com/hitoshi/wantify/internal/model"
	"github.com/hitoshi/wantify/internal/repository"
)

const (
	// InactivityTimeout を超えて利用されなかったセッションは無効になり削除される。
	InactivityTimeout = 10 * 24 * time.Hour
	// ActivityCheckInterval 以上経過してから利用されたセッションはlast_activity_atを更新する。
	ActivityCheckInterval = time.Hour
)

// dummyHash はセッションが存在しない場合の比較対象。
// 存在有無による応答時間の差をなくすために使う。
var dummyHash = make([]byte, 32)

// SessionManager はセッションの発行・検証・破棄を行う。
type SessionManager struct {
	repo    repository.SessionRepository
	metrics metrics.MetricsCollector
	Now     func() time.Time // テストで差し替え可能な現在時刻
}

// NewSessionManager はSessionManagerを生成する。
func NewSessionManager(repo repository.SessionRepository, collector metrics.MetricsCollector) *SessionManager {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &SessionManager{
		repo:    repo,
		metrics: collector,
		Now:     time.Now,
	}
}

// Create はユーザーのセッションを作成し、クライアントに渡す "id.secret" 形式のトークンを返す。
// シークレットの平文は保存しない。
func (m *SessionManager) Create(ctx context.Context, userID string) (string, *model.Session, error) {
	id, err := GenerateToken()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session ID: %w", err)
	}
	secret, err := GenerateToken()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session secret: %w", err)
	}

	now := m.Now()
	session := &model.Session{
		ID:             id,
		UserID:         userID,
		SecretHash:     HashSecret(secret),
		CreatedAt:      now,
		LastActivityAt: now,
	}

	if err := m.repo.Create(ctx, session); err != nil {
		slog.Error("failed to persist session",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return "", nil, model.NewSessionNotCreatedError()
	}

	slog.Info("session created",
		slog.String("user_id", userID),
		slog.String("session_id", id),
	)
	return id + "." + secret, session, nil
}

// Validate はトークンを検証し、有効なセッションを返す。
// 無効なトークンの場合は (nil, nil) を返す。エラーはストレージ障害の場合のみ。
//
// セッションが存在しない場合もダミーのハッシュと比較し、
// 「IDが存在しない」と「シークレットが違う」を応答時間で区別できないようにする。
func (m *SessionManager) Validate(ctx context.Context, token string) (*model.Session, error) {
	id, secret, ok := SplitToken(token)
	if !ok {
		m.metrics.RecordSessionValidation(metrics.SessionInvalid)
		return nil, nil
	}

	session, err := m.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	stored := dummyHash
	if session != nil {
		stored = session.SecretHash
	}
	validSecret := ConstantTimeEqual(HashSecret(secret), stored)

	if session == nil || !validSecret || session.Deletion.IsDeleted() {
		m.metrics.RecordSessionValidation(metrics.SessionInvalid)
		return nil, nil
	}

	now := m.Now()
	age := now.Sub(session.LastActivityAt)

	if age >= InactivityTimeout {
		if _, err := m.repo.SoftDelete(ctx, session.ID, now); err != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", err)
		}
		slog.Info("session expired due to inactivity",
			slog.String("session_id", session.ID),
			slog.String("user_id", session.UserID),
		)
		m.metrics.RecordSessionValidation(metrics.SessionExpired)
		return nil, nil
	}

	if age >= ActivityCheckInterval {
		updated, err := m.repo.Touch(ctx, session.ID, session.LastActivityAt, now)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh session activity: %w", err)
		}
		// 競合で更新できなかった場合は他のリクエストの更新を優先する
		if updated {
			session.LastActivityAt = now
		}
		m.metrics.RecordSessionValidation(metrics.SessionRefreshed)
		return session, nil
	}

	m.metrics.RecordSessionValidation(metrics.SessionValid)
	return session, nil
}

// Delete はトークンのセッションを論理削除する。
// 冪等であり、対象が存在しない場合もエラーにしない。
// 実際に削除した場合のみtrueを返す。
func (m *SessionManager) Delete(ctx context.Context, token string) (bool, error) {
	id, _, ok := SplitToken(token)
	if !ok {
		return false, nil
	}

	deleted, err := m.repo.SoftDelete(ctx, id, m.Now())
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	if deleted {
		slog.Info("session deleted", slog.String("session_id", id))
	}
	return deleted, nil
}
