// Package model はドメインモデルを定義する。
package model

import "time"

// Provider は外部OAuthプロバイダーの識別子。
type Provider string

const (
	ProviderGoogle  Provider = "google"
	ProviderGitHub  Provider = "github"
	ProviderDiscord Provider = "discord"
)

// ParseProvider は文字列からProviderを取得する。未対応の場合はfalseを返す。
func ParseProvider(s string) (Provider, bool) {
	switch Provider(s) {
	case ProviderGoogle, ProviderGitHub, ProviderDiscord:
		return Provider(s), true
	default:
		return "", false
	}
}

// User はサービス利用ユーザーを表す。
// ゲスト（GuestIDあり、IsGuest=true、連携なし）か
// 正規アカウント（GuestIDなし、IsGuest=false、連携1件以上）のどちらか一方。
type User struct {
	ID            string
	GuestID       string // ゲストの間のみ設定される
	IsGuest       bool
	Identities    []Identity
	Email         string
	EmailVerified bool
	Name          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// ユーザーごとにプロバイダー1件まで。
type Identity struct {
	ID               string
	UserID           string
	Provider         Provider
	ProviderUserID   string
	ProviderUsername string
	CreatedAt        time.Time
}

// Linked はユーザーが指定プロバイダーと連携済みかを返す。
func (u *User) Linked(p Provider) bool {
	for _, ident := range u.Identities {
		if ident.Provider == p {
			return true
		}
	}
	return false
}

// Session はユーザーのログインセッションを表す。
// SecretHashはトークン後半（secret）のSHA-256ダイジェストで、平文は保持しない。
type Session struct {
	ID             string
	UserID         string
	SecretHash     []byte
	CreatedAt      time.Time
	LastActivityAt time.Time
	Deletion       Deletion
}

// EmailVerificationRequest はメールアドレス確認リクエストを表す。
type EmailVerificationRequest struct {
	ID        string
	UserID    string
	Email     string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired は確認リクエストが期限切れかを返す。
func (r *EmailVerificationRequest) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
