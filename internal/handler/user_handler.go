package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/wantify/internal/middleware"
	"github.com/hitoshi/wantify/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// RequestEmailVerification は確認コードを発行してメールで送信する。
	RequestEmailVerification(ctx context.Context, user *model.User, email string) error
	// ConfirmEmailVerification は確認コードを照合し、メールアドレスを確定する。
	ConfirmEmailVerification(ctx context.Context, user *model.User, code string) (*model.User, error)
	// Withdraw はユーザーを退会済みにし、所有するウィッシュリストを論理削除する。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	cookies middleware.CookieConfig
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, cookies middleware.CookieConfig) *UserHandler {
	return &UserHandler{
		service: service,
		cookies: cookies,
	}
}

// Me は現在の利用者情報を返す。ゲストも含む。
// GET /api/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toMeResponse(user))
}

// RequestEmailVerification はメールアドレス確認コードを発行する。
// POST /api/users/me/email-verification
func (h *UserHandler) RequestEmailVerification(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req emailVerificationRequest
	if err := bind(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	if err := h.service.RequestEmailVerification(r.Context(), user, req.Email); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ConfirmEmailVerification は確認コードを照合する。
// POST /api/users/me/email-verification/confirm
func (h *UserHandler) ConfirmEmailVerification(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req confirmEmailRequest
	if err := bind(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	updated, err := h.service.ConfirmEmailVerification(r.Context(), user, req.Code)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMeResponse(updated))
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), user.ID); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	h.cookies.ClearCookie(w, middleware.SessionCookieName)
	h.cookies.ClearCookie(w, middleware.GuestCookieName)
	w.WriteHeader(http.StatusNoContent)
}
