package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/wantify/internal/auth"
	"github.com/hitoshi/wantify/internal/config"
	"github.com/hitoshi/wantify/internal/database"
	"github.com/hitoshi/wantify/internal/handler"
	"github.com/hitoshi/wantify/internal/logger"
	"github.com/hitoshi/wantify/internal/mail"
	"github.com/hitoshi/wantify/internal/metrics"
	"github.com/hitoshi/wantify/internal/middleware"
	"github.com/hitoshi/wantify/internal/model"
	"github.com/hitoshi/wantify/internal/repository"
	"github.com/hitoshi/wantify/internal/security"
	"github.com/hitoshi/wantify/internal/share"
	"github.com/hitoshi/wantify/internal/telemetry"
	"github.com/hitoshi/wantify/internal/user"
	"github.com/hitoshi/wantify/internal/wishlist"
	"github.com/hitoshi/wantify/internal/worker/cleanup"
)

// Version はビルド時に -ldflags で埋め込まれるバージョン。
var Version = "dev"

// oauthHTTPTimeout はIdPへのトークン交換・ユーザー情報取得のタイムアウト。
const oauthHTTPTimeout = 10 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(ctx context.Context, w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// enabledProviders はクライアントIDとシークレットが設定されたOAuthプロバイダーを返す。
// IdPとの通信にはSSRF対策済みのHTTPクライアントを使う。
func enabledProviders(cfg *config.Config, guard security.URLGuard) []auth.OAuthProvider {
	client := guard.NewSafeClient(oauthHTTPTimeout)

	candidates := []struct {
		name         model.Provider
		clientID     string
		clientSecret string
		build        func(auth.ProviderConfig) auth.OAuthProvider
	}{
		{model.ProviderGoogle, cfg.GoogleClientID, cfg.GoogleClientSecret, auth.NewGoogleProvider},
		{model.ProviderGitHub, cfg.GitHubClientID, cfg.GitHubClientSecret, auth.NewGitHubProvider},
		{model.ProviderDiscord, cfg.DiscordClientID, cfg.DiscordClientSecret, auth.NewDiscordProvider},
	}

	var providers []auth.OAuthProvider
	for _, c := range candidates {
		pc := auth.ProviderConfig{
			ClientID:     c.clientID,
			ClientSecret: c.clientSecret,
			RedirectURL:  cfg.RedirectURL(string(c.name)),
			HTTPClient:   client,
		}
		if !pc.Enabled() {
			slog.Info("oauth provider disabled", slog.String("provider", string(c.name)))
			continue
		}
		providers = append(providers, c.build(pc))
	}
	return providers
}

// buildRouter は全依存関係をワイヤリングし、APIサーバーのHTTPハンドラーを返す。
func buildRouter(cfg *config.Config, db *sql.DB, reg *prometheus.Registry) (http.Handler, error) {
	// 1. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	wishlistRepo := repository.NewPostgresWishlistRepo(db)
	itemRepo := repository.NewPostgresItemRepo(db)
	shareRepo := repository.NewPostgresShareRepo(db)
	verificationRepo := repository.NewPostgresEmailVerificationRepo(db)

	// 2. セキュリティ・メトリクスの初期化
	guard := security.NewURLGuard()
	sanitizer := security.NewTextSanitizer()
	collector := metrics.NewCollector(reg)

	// 3. ドメインサービスの初期化
	sessions := auth.NewSessionManager(sessionRepo, collector)
	authService := auth.NewService(enabledProviders(cfg, guard), userRepo, identRepo, sessions, collector)
	resolver := auth.NewResolver(sessions, userRepo, collector)

	codec, err := share.NewCodec(cfg.SharedSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to create share codec: %w", err)
	}

	wishlistService := wishlist.NewService(wishlistRepo, itemRepo, sanitizer, guard)
	shareService := share.NewService(shareRepo, wishlistRepo, itemRepo, codec)
	userService := user.NewService(userRepo, verificationRepo, mail.NewLogSender(cfg.MailFrom))

	// 4. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:           slog.Default(),
		IdentityResolver: resolver,
		Cookies: middleware.CookieConfig{
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:            collector,
		MetricsHandler:     metrics.Handler(reg),
		HealthChecker:      db,
		BaseURL:            cfg.BaseURL,

		AuthService:     authService,
		WishlistService: wishlistService,
		ShareService:    shareService,
		UserService:     userService,
	})

	return telemetry.Handler(router), nil
}

// newRegistry はプロセス・Goランタイムのメトリクスを含むレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	shutdownTracing, err := telemetry.Init(ctx, cfg.OTLPEndpoint, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Error("failed to shutdown tracing", slog.String("error", err.Error()))
		}
	}()

	db, err := openDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	router, err := buildRouter(cfg, db, newRegistry())
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return serveUntilDone(ctx, server, "API server")
}

// runWorker はワーカーモードで起動する。
// クリーンアップジョブを定期実行し、/health と /metrics を公開する。
// ctxがキャンセルされるとシャットダウンする。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	reg := newRegistry()
	job := cleanup.NewJob(db, slog.Default(), metrics.NewCollector(reg), cleanup.Config{
		BatchSize:        cfg.CleanupBatchSize,
		BatchesPerSecond: cfg.CleanupBatchesPerSecond,
		SessionRetention: cfg.SessionRetention,
	})

	mux := http.NewServeMux()
	mux.Handle("/health", handler.NewHealthHandler(db))
	mux.Handle("/metrics", metrics.Handler(reg))
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	jobCtx, cancelJob := context.WithCancel(ctx)
	jobDone := make(chan struct{})
	go func() {
		defer close(jobDone)
		job.Start(jobCtx, cfg.CleanupInterval)
	}()

	err = serveUntilDone(ctx, server, "worker")
	cancelJob()
	<-jobDone
	return err
}

// serveUntilDone はserverを起動し、ctxがキャンセルされるまで待ってからシャットダウンする。
func serveUntilDone(ctx context.Context, server *http.Server, name string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s listen error: %w", name, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down " + name + "...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", name, err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("schema_version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(ctx context.Context, port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
