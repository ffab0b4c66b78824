// Package auth はOAuth認証フロー、セッション管理、リクエストごとのユーザー解決を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/hitoshi/wantify/internal/metrics"
	"github.com/hitoshi/wantify/internal/model"
	"github.com/hitoshi/wantify/internal/repository"
)

// SignInStart はOAuth認可リクエストの開始情報。
// StateとVerifierはクッキーに保存し、コールバックで照合する。
type SignInStart struct {
	URL      string
	State    string
	Verifier string // PKCEを使わないプロバイダーでは空
}

// SignInResult はOAuthコールバック処理の結果。
type SignInResult struct {
	Token         string // "id.secret" 形式のセッショントークン
	User          *model.User
	Outcome       string // metrics.OutcomeNewUser / OutcomePromoted / OutcomeExisting
	GuestPromoted bool
}

// Service はサインイン・サインアウトに関するビジネスロジックを提供する。
type Service struct {
	providers map[model.Provider]OAuthProvider
	userRepo  repository.UserRepository
	identRepo repository.IdentityRepository
	sessions  *SessionManager
	metrics   metrics.MetricsCollector
	Now       func() time.Time
}

// NewService はServiceを生成する。providersには有効なプロバイダーのみを渡す。
func NewService(
	providers []OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessions *SessionManager,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	m := make(map[model.Provider]OAuthProvider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Service{
		providers: m,
		userRepo:  userRepo,
		identRepo: identRepo,
		sessions:  sessions,
		metrics:   collector,
		Now:       time.Now,
	}
}

// Provider は名前から有効なプロバイダーを取得する。
func (s *Service) Provider(name string) (OAuthProvider, bool) {
	p, ok := model.ParseProvider(name)
	if !ok {
		return nil, false
	}
	provider, ok := s.providers[p]
	return provider, ok
}

// Begin は認可URLとstate（PKCEの場合はverifierも）を生成する。
func (s *Service) Begin(provider OAuthProvider) (*SignInStart, error) {
	state, err := GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate oauth state: %w", err)
	}
	start := &SignInStart{State: state}
	if provider.UsesPKCE() {
		start.Verifier = oauth2.GenerateVerifier()
	}
	start.URL = provider.AuthCodeURL(start.State, start.Verifier)
	return start, nil
}

// HandleCallback はプロバイダーから取得したユーザー情報でユーザーを解決し、セッションを発行する。
//
// 1. (provider, providerUserID) に紐付くユーザーが存在すればそのユーザーでログインする。
// 2. ゲストIDがあれば、そのゲストを同一IDのまま正規アカウントに昇格させる。
// 3. どちらでもなければ新規ユーザーを作成する。
func (s *Service) HandleCallback(ctx context.Context, provider model.Provider, claims *Claims, guestID string) (*SignInResult, error) {
	result, err := s.resolveUser(ctx, provider, claims, guestID)
	if err != nil {
		s.metrics.RecordSignIn(string(provider), metrics.OutcomeFailed)
		return nil, err
	}

	token, _, err := s.sessions.Create(ctx, result.User.ID)
	if err != nil {
		s.metrics.RecordSignIn(string(provider), metrics.OutcomeFailed)
		return nil, err
	}
	result.Token = token

	s.metrics.RecordSignIn(string(provider), result.Outcome)
	return result, nil
}

func (s *Service) resolveUser(ctx context.Context, provider model.Provider, claims *Claims, guestID string) (*SignInResult, error) {
	// 1. identitiesテーブルで既存ユーザーを検索
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, provider, claims.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if identity != nil {
		user, err := s.userRepo.FindByID(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		if user == nil {
			return nil, fmt.Errorf("identity %s references missing user %s", identity.ID, identity.UserID)
		}
		slog.Info("existing user signed in",
			slog.String("user_id", user.ID),
			slog.String("provider", string(provider)),
		)
		return &SignInResult{User: user, Outcome: metrics.OutcomeExisting}, nil
	}

	now := s.Now()
	newIdentity := &model.Identity{
		ID:               uuid.New().String(),
		Provider:         provider,
		ProviderUserID:   claims.ProviderUserID,
		ProviderUsername: claims.Username,
		CreatedAt:        now,
	}

	// 2. ゲストの昇格
	if guestID != "" {
		user, err := s.userRepo.PromoteGuest(ctx, guestID, newIdentity, now)
		if err != nil {
			return nil, fmt.Errorf("failed to promote guest: %w", err)
		}
		if user == nil {
			slog.Warn("guest promotion target not found", slog.String("provider", string(provider)))
			return nil, model.NewGuestNotFoundError()
		}
		slog.Info("guest promoted",
			slog.String("user_id", user.ID),
			slog.String("provider", string(provider)),
		)
		return &SignInResult{User: user, Outcome: metrics.OutcomePromoted, GuestPromoted: true}, nil
	}

	// 3. 新規ユーザー: usersレコードとidentitiesレコードを同時に作成
	user := &model.User{
		ID:        uuid.New().String(),
		Name:      claims.Username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	newIdentity.UserID = user.ID
	if err := s.userRepo.CreateWithIdentity(ctx, user, newIdentity); err != nil {
		return nil, fmt.Errorf("failed to create user and identity: %w", err)
	}
	user.Identities = []model.Identity{*newIdentity}

	slog.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("provider", string(provider)),
	)
	return &SignInResult{User: user, Outcome: metrics.OutcomeNewUser}, nil
}

// SignOut はセッショントークンを破棄する。
// セッションを実際に削除した場合のみtrueを返す。
func (s *Service) SignOut(ctx context.Context, token string) (bool, error) {
	session, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, nil
	}
	return s.sessions.Delete(ctx, token)
}
