package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/hitoshi/wantify/internal/model"
)

// maxUserInfoSize はユーザー情報レスポンスの最大サイズ（1MB）。
const maxUserInfoSize = 1 << 20

// Claims はOAuthプロバイダーから取得したユーザー情報を表す。
type Claims struct {
	ProviderUserID string
	Username       string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// Name はプロバイダー識別子を返す。
	Name() model.Provider
	// UsesPKCE はPKCE（S256）を使用するかを返す。
	UsesPKCE() bool
	// AuthCodeURL は認可URLを生成する。PKCEを使わない場合verifierは無視される。
	AuthCodeURL(state, verifier string) string
	// Exchange は認可コードをトークンに交換し、ユーザー情報を取得する。
	Exchange(ctx context.Context, code, verifier string) (*Claims, error)
}

// ProviderConfig はOAuthプロバイダーの設定。
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// HTTPClient はトークン交換とユーザー情報取得に使うクライアント。nilの場合はhttp.DefaultClient。
	HTTPClient *http.Client

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// Enabled はクライアントIDとシークレットの両方が設定されているかを返す。
func (c ProviderConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// oauthProvider はx/oauth2に基づくOAuthProviderの共通実装。
// プロバイダーごとの差分はエンドポイント、スコープ、ユーザー情報のデコードのみ。
type oauthProvider struct {
	name        model.Provider
	pkce        bool
	config      *oauth2.Config
	userInfoURL string
	client      *http.Client
	decode      func(body []byte) (*Claims, error)
}

func newOAuthProvider(
	name model.Provider,
	pkce bool,
	cfg ProviderConfig,
	endpoint oauth2.Endpoint,
	scopes []string,
	userInfoURL string,
	decode func([]byte) (*Claims, error),
) *oauthProvider {
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	if cfg.UserInfoURL != "" {
		userInfoURL = cfg.UserInfoURL
	}
	return &oauthProvider{
		name: name,
		pkce: pkce,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		userInfoURL: userInfoURL,
		client:      cfg.HTTPClient,
		decode:      decode,
	}
}

func (p *oauthProvider) Name() model.Provider {
	return p.name
}

func (p *oauthProvider) UsesPKCE() bool {
	return p.pkce
}

func (p *oauthProvider) AuthCodeURL(state, verifier string) string {
	if p.pkce {
		return p.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	}
	return p.config.AuthCodeURL(state)
}

func (p *oauthProvider) Exchange(ctx context.Context, code, verifier string) (*Claims, error) {
	if p.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	}

	var opts []oauth2.AuthCodeOption
	if p.pkce {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	// 1. 認可コードをアクセストークンに交換
	token, err := p.config.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	// 2. アクセストークンでユーザー情報を取得
	body, err := p.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	claims, err := p.decode(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}
	if claims.ProviderUserID == "" {
		return nil, fmt.Errorf("empty provider user id in %s user info", p.name)
	}
	return claims, nil
}

// fetchUserInfo はトークン付きクライアントでユーザー情報エンドポイントを呼び出す。
func (p *oauthProvider) fetchUserInfo(ctx context.Context, token *oauth2.Token) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d", resp.StatusCode)
	}
	return body, nil
}

// decodeJSON はユーザー情報レスポンスを構造体にデコードする。
func decodeJSON[T any](body []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// compile-time interface check
var _ OAuthProvider = (*oauthProvider)(nil)
