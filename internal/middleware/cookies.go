package middleware

import (
	"net/http"
	"time"
)

const (
	// SessionCookieName は "id.secret" 形式のセッショントークンを保持するCookie。
	SessionCookieName = "session_token"
	// GuestCookieName はゲストIDを保持するCookie。
	GuestCookieName = "wantify_guest"

	sessionCookieMaxAge = 10 * 24 * time.Hour
	guestCookieMaxAge   = 365 * 24 * time.Hour
	// OAuthCookieMaxAge はOAuthのstate・verifier Cookieの有効期間。
	OAuthCookieMaxAge = 10 * time.Minute
)

// CookieConfig はCookie発行時の共通設定。
type CookieConfig struct {
	Secure bool
	Domain string
}

// SetCookie はHttpOnly・SameSite=LaxのCookieを設定する。
func (c CookieConfig) SetCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie はCookieを削除する。
func (c CookieConfig) ClearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetSessionCookie はセッショントークンCookieを設定する。
func (c CookieConfig) SetSessionCookie(w http.ResponseWriter, token string) {
	c.SetCookie(w, SessionCookieName, token, sessionCookieMaxAge)
}

// SetGuestCookie はゲストID Cookieを設定する。
func (c CookieConfig) SetGuestCookie(w http.ResponseWriter, guestID string) {
	c.SetCookie(w, GuestCookieName, guestID, guestCookieMaxAge)
}

// CookieValue はCookieの値を返す。存在しない場合は空文字列を返す。
func CookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
