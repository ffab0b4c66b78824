package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/wantify/internal/metrics"
	"github.com/hitoshi/wantify/internal/model"
	"github.com/hitoshi/wantify/internal/repository"
)

// Identity はリクエストごとに解決された利用者を表す。
type Identity struct {
	User *model.User
	// Session は有効なセッションで解決された場合のみ設定される。
	Session *model.Session
	// NewGuestID はこのリクエストでゲストを新規発行した場合に設定される。
	// 呼び出し側はこの値でゲストクッキーを発行する。
	NewGuestID string
}

// Resolver はセッショントークンとゲストIDからリクエストの利用者を解決する。
type Resolver struct {
	sessions *SessionManager
	userRepo repository.UserRepository
	metrics  metrics.MetricsCollector
	Now      func() time.Time
}

// NewResolver はResolverを生成する。
func NewResolver(sessions *SessionManager, userRepo repository.UserRepository, collector metrics.MetricsCollector) *Resolver {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Resolver{
		sessions: sessions,
		userRepo: userRepo,
		metrics:  collector,
		Now:      time.Now,
	}
}

// Resolve は以下の順で利用者を解決する。
//
//  1. 有効なセッショントークンがあればそのユーザー
//  2. ゲストIDに対応するゲストユーザーが存在すればそのゲスト
//  3. いずれもなければ新しいゲストを作成する
//
// ゲストの作成に失敗した場合は利用者を確定できないためエラーを返す。
func (r *Resolver) Resolve(ctx context.Context, sessionToken, guestID string) (*Identity, error) {
	if sessionToken != "" {
		session, err := r.sessions.Validate(ctx, sessionToken)
		if err != nil {
			return nil, err
		}
		if session != nil {
			user, err := r.userRepo.FindByID(ctx, session.UserID)
			if err != nil {
				return nil, fmt.Errorf("failed to find session user: %w", err)
			}
			if user != nil {
				return &Identity{User: user, Session: session}, nil
			}
		}
	}

	// 形式が不正なゲストIDはDBに問い合わせず新規発行扱いにする
	if _, err := uuid.Parse(guestID); err == nil {
		user, err := r.userRepo.FindByGuestID(ctx, guestID)
		if err != nil {
			return nil, fmt.Errorf("failed to find guest user: %w", err)
		}
		if user != nil {
			return &Identity{User: user}, nil
		}
	}

	return r.createGuest(ctx)
}

func (r *Resolver) createGuest(ctx context.Context) (*Identity, error) {
	now := r.Now()
	user := &model.User{
		ID:        uuid.New().String(),
		GuestID:   uuid.New().String(),
		IsGuest:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.userRepo.CreateGuest(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create guest user: %w", err)
	}

	r.metrics.RecordGuestCreated()
	slog.Info("guest user created", slog.String("user_id", user.ID))
	return &Identity{User: user, NewGuestID: user.GuestID}, nil
}
