// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`

	// Server
	ServerPort string `env:"SERVER_PORT,default=8080"`
	BaseURL    string `env:"BASE_URL"`
	LogLevel   string `env:"LOG_LEVEL,default=info"`

	// Share
	SharedSalt string `env:"WISHLIST_SHARED_SALT"`

	// OAuth（クライアントIDとシークレットの両方が設定されたプロバイダーのみ有効）
	GoogleClientID      string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret  string `env:"GOOGLE_CLIENT_SECRET"`
	GitHubClientID      string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret  string `env:"GITHUB_CLIENT_SECRET"`
	DiscordClientID     string `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET"`

	// Cookie
	CookieDomain string `env:"COOKIE_DOMAIN"`
	CookieSecure bool

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`

	// Telemetry
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Mail
	MailFrom string `env:"MAIL_FROM,default=no-reply@wantify.local"`

	// Cleanup worker
	CleanupInterval         time.Duration `env:"CLEANUP_INTERVAL,default=1h"`
	CleanupBatchSize        int           `env:"CLEANUP_BATCH_SIZE,default=500"`
	CleanupBatchesPerSecond float64       `env:"CLEANUP_BATCHES_PER_SECOND,default=5"`
	SessionRetention        time.Duration `env:"SESSION_RETENTION,default=720h"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load(ctx context.Context) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	// Required fields
	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}
	if cfg.SharedSalt == "" {
		missing = append(missing, "WISHLIST_SHARED_SALT")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	return cfg, nil
}

// RedirectURL はプロバイダーのOAuthコールバックURLを返す。
func (c *Config) RedirectURL(provider string) string {
	return c.BaseURL + "/auth/sign-in/" + provider + "/callback"
}
