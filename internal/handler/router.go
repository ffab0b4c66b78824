package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/wantify/internal/metrics"
	"github.com/hitoshi/wantify/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	IdentityResolver   middleware.IdentityResolver
	Cookies            middleware.CookieConfig
	CORSAllowedOrigins []string
	Metrics            metrics.MetricsCollector
	MetricsHandler     http.Handler
	HealthChecker      HealthChecker

	// 共有URLの組み立てに使う公開URL
	BaseURL string

	AuthService     AuthServiceInterface
	WishlistService WishlistServiceInterface
	ShareService    ShareServiceInterface
	UserService     UserServiceInterface
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Metrics → Logging → Recovery → SecurityHeaders → CORS
//	  → Identity（/health, /metrics以外） → CSRF（状態を変更するAPIのみ）
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(metrics.Middleware(collector))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.Cookies.Secure))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	authHandler := NewAuthHandler(deps.AuthService, AuthHandlerConfig{Cookies: deps.Cookies})
	wishlistHandler := NewWishlistHandler(deps.WishlistService)
	shareHandler := NewShareHandler(deps.ShareService, deps.BaseURL)
	userHandler := NewUserHandler(deps.UserService, deps.Cookies)

	// --- 利用者の解決が不要なルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	// コールバックではゲストを新規発行しない。昇格対象はリクエストのゲストCookieで決まる
	r.Get("/auth/sign-in/{provider}/callback", authHandler.Callback)

	// --- 利用者を解決するルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewIdentityMiddleware(deps.IdentityResolver, deps.Cookies))

		// OAuthフロー
		r.Route("/auth", func(r chi.Router) {
			r.Get("/sign-in/{provider}", authHandler.SignIn)
			r.Get("/sign-out", authHandler.SignOut)
		})

		// 共有ページ（閲覧は認証不要）
		r.Get("/share/{token}", shareHandler.View)

		r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.Cookies).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewCSRFMiddleware(deps.Cookies))

			r.Patch("/wishlist/shared/{shareId}", shareHandler.UpdateDuration)

			r.Route("/api", func(r chi.Router) {
				r.Get("/me", userHandler.Me)
				r.Route("/users/me", func(r chi.Router) {
					r.Delete("/", userHandler.Withdraw)
					r.Post("/email-verification", userHandler.RequestEmailVerification)
					r.Post("/email-verification/confirm", userHandler.ConfirmEmailVerification)
				})

				r.Route("/wishlists", func(r chi.Router) {
					r.Get("/", wishlistHandler.List)
					r.Post("/", wishlistHandler.Create)

					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", wishlistHandler.Get)
						r.Delete("/", wishlistHandler.Delete)
						r.Patch("/name", wishlistHandler.Rename)
						r.Post("/lock", wishlistHandler.ToggleLock)
						r.Put("/address", wishlistHandler.SaveAddress)

						r.Post("/items", wishlistHandler.AddItem)
						r.Put("/items/{itemId}", wishlistHandler.UpdateItem)
						r.Delete("/items/{itemId}", wishlistHandler.DeleteItem)

						r.Post("/share", shareHandler.Issue)
						r.Delete("/share", shareHandler.Revoke)
					})
				})
			})
		})
	})

	return r
}
