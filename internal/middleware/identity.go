// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/wantify/internal/auth"
	"github.com/hitoshi/wantify/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに利用者を格納するためのキー。
var userContextKey = contextKey("user")

// IdentityResolver はリクエストの利用者を解決するインターフェース。
type IdentityResolver interface {
	Resolve(ctx context.Context, sessionToken, guestID string) (*auth.Identity, error)
}

// NewIdentityMiddleware はセッションCookieとゲストCookieから利用者を解決し、
// リクエストコンテキストに注入するミドルウェアを返す。
// 利用者を確定できない場合はリクエストを続行せず500を返す。
func NewIdentityMiddleware(resolver IdentityResolver, cookies CookieConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, err := resolver.Resolve(r.Context(),
				CookieValue(r, SessionCookieName),
				CookieValue(r, GuestCookieName),
			)
			if err != nil {
				slog.Error("failed to resolve request identity",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			if ident.NewGuestID != "" {
				cookies.SetGuestCookie(w, ident.NewGuestID)
			}
			// 有効なセッションはCookieの有効期限も延長する
			if ident.Session != nil {
				cookies.SetSessionCookie(w, CookieValue(r, SessionCookieName))
			}

			if holder, ok := r.Context().Value(userHolderKey).(*userHolder); ok {
				holder.userID = ident.User.ID
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), ident.User)))
		})
	}
}

// UserFromContext はリクエストコンテキストから利用者を取得する。
// IdentityMiddlewareを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	return user, ok && user != nil
}

// ContextWithUser はコンテキストに利用者を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
