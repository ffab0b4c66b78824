// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/wantify/internal/auth"
	"github.com/hitoshi/wantify/internal/middleware"
	"github.com/hitoshi/wantify/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Provider(name string) (auth.OAuthProvider, bool)
	Begin(provider auth.OAuthProvider) (*auth.SignInStart, error)
	HandleCallback(ctx context.Context, provider model.Provider, claims *auth.Claims, guestID string) (*auth.SignInResult, error)
	SignOut(ctx context.Context, token string) (bool, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	Cookies middleware.CookieConfig
	// RedirectURL はサインイン・サインアウト後の遷移先。空の場合は "/"。
	RedirectURL string
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	if config.RedirectURL == "" {
		config.RedirectURL = "/"
	}
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

func stateCookieName(p model.Provider) string {
	return string(p) + "_oauth_state"
}

func verifierCookieName(p model.Provider) string {
	return string(p) + "_code_verifier"
}

// SignIn はOAuthフローを開始する。
// GET /auth/sign-in/{provider}
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	provider, ok := h.service.Provider(name)
	if !ok {
		middleware.WriteError(w, r, model.NewProviderNotFoundError(name))
		return
	}

	start, err := h.service.Begin(provider)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	// stateとverifierをCookieに保存（CSRF対策・PKCE）
	h.config.Cookies.SetCookie(w, stateCookieName(provider.Name()), start.State, middleware.OAuthCookieMaxAge)
	if start.Verifier != "" {
		h.config.Cookies.SetCookie(w, verifierCookieName(provider.Name()), start.Verifier, middleware.OAuthCookieMaxAge)
	}

	http.Redirect(w, r, start.URL, http.StatusFound)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/sign-in/{provider}/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	provider, ok := h.service.Provider(name)
	if !ok {
		middleware.WriteError(w, r, model.NewProviderNotFoundError(name))
		return
	}
	p := provider.Name()

	state := middleware.CookieValue(r, stateCookieName(p))
	verifier := middleware.CookieValue(r, verifierCookieName(p))

	// stateとverifierは結果にかかわらず使い捨て
	h.config.Cookies.ClearCookie(w, stateCookieName(p))
	if provider.UsesPKCE() {
		h.config.Cookies.ClearCookie(w, verifierCookieName(p))
	}

	// 1. stateの検証
	query := r.URL.Query()
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(query.Get("state"))) != 1 {
		slog.Warn("oauth state mismatch", slog.String("provider", string(p)))
		middleware.WriteError(w, r, model.NewOAuthFailedError("state mismatch"))
		return
	}
	if reason := query.Get("error"); reason != "" {
		slog.Warn("oauth authorization denied",
			slog.String("provider", string(p)),
			slog.String("reason", reason),
		)
		middleware.WriteError(w, r, model.NewOAuthFailedError("authorization denied"))
		return
	}

	// 2. 認可コードとverifierの取得
	code := query.Get("code")
	if code == "" {
		middleware.WriteError(w, r, model.NewOAuthFailedError("missing authorization code"))
		return
	}
	if provider.UsesPKCE() && verifier == "" {
		middleware.WriteError(w, r, model.NewOAuthFailedError("missing code verifier"))
		return
	}

	// 3. トークン交換とユーザー情報の取得
	claims, err := provider.Exchange(r.Context(), code, verifier)
	if err != nil {
		slog.Warn("oauth exchange failed",
			slog.String("provider", string(p)),
			slog.String("error", err.Error()),
		)
		middleware.WriteError(w, r, model.NewOAuthFailedError("token exchange failed"))
		return
	}

	// 4. ユーザーの解決・昇格とセッション発行
	// ゲストCookieを持つリクエストのみ昇格の対象とする
	guestID := middleware.CookieValue(r, middleware.GuestCookieName)
	if _, err := uuid.Parse(guestID); err != nil {
		guestID = ""
	}
	result, err := h.service.HandleCallback(r.Context(), p, claims, guestID)
	if err != nil {
		// 失効したゲストCookieを残すと再試行しても同じ失敗になる
		if apiErr, ok := model.AsAPIError(err); ok && apiErr.Code == model.ErrCodeGuestNotFound {
			h.config.Cookies.ClearCookie(w, middleware.GuestCookieName)
		}
		middleware.WriteError(w, r, err)
		return
	}

	if result.GuestPromoted {
		h.config.Cookies.ClearCookie(w, middleware.GuestCookieName)
	}
	h.config.Cookies.SetSessionCookie(w, result.Token)

	http.Redirect(w, r, h.config.RedirectURL, http.StatusFound)
}

// SignOut はセッションを破棄する。
// GET /auth/sign-out
// ゲストCookie以外のCookieはすべて削除する。有効なセッションがなかった場合は401を返す。
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	var deleted bool
	if token := middleware.CookieValue(r, middleware.SessionCookieName); token != "" {
		var err error
		deleted, err = h.service.SignOut(r.Context(), token)
		if err != nil {
			middleware.WriteError(w, r, err)
			return
		}
	}

	for _, c := range r.Cookies() {
		if c.Name == middleware.GuestCookieName {
			continue
		}
		h.config.Cookies.ClearCookie(w, c.Name)
	}

	if !deleted {
		middleware.WriteError(w, r, model.NewUnauthenticatedError())
		return
	}
	http.Redirect(w, r, h.config.RedirectURL, http.StatusFound)
}
