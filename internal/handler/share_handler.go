package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/wantify/internal/middleware"
	"github.com/hitoshi/wantify/internal/model"
	"github.com/hitoshi/wantify/internal/share"
)

// ShareServiceInterface は共有リンクハンドラーが必要とするサービスインターフェース。
type ShareServiceInterface interface {
	Issue(ctx context.Context, wishlistID string, user *model.User, duration model.ShareDuration) (*share.Link, error)
	UpdateDuration(ctx context.Context, token string, user *model.User, duration model.ShareDuration) error
	Revoke(ctx context.Context, wishlistID string, user *model.User) error
	View(ctx context.Context, token string) (*model.SharedWishlistView, error)
}

// ShareHandler は共有リンクのHTTPハンドラー。
type ShareHandler struct {
	service ShareServiceInterface
	baseURL string
}

// NewShareHandler はShareHandlerを生成する。baseURLは共有URLの組み立てに使う。
func NewShareHandler(service ShareServiceInterface, baseURL string) *ShareHandler {
	return &ShareHandler{
		service: service,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Issue は共有リンクを発行する。有効なリンクがあればそれを返す。
// POST /api/wishlists/{id}/share
func (h *ShareHandler) Issue(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req shareRequest
	if err := bind(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	link, err := h.service.Issue(r.Context(), chi.URLParam(r, "id"), user, model.ShareDuration(req.Duration))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, shareResponse{
		ShareID:      link.Token,
		URL:          h.baseURL + "/share/" + link.Token,
		DurationType: string(link.Share.DurationType),
		ExpiresAt:    link.Share.ExpiresAt,
	})
}

// UpdateDuration は共有リンクの有効期間を変更する。
// PATCH /wishlist/shared/{shareId}
func (h *ShareHandler) UpdateDuration(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req updateShareRequest
	if err := bind(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	if err := h.service.UpdateDuration(r.Context(), chi.URLParam(r, "shareId"), user, model.ShareDuration(req.NewDuration)); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Revoke は共有リンクを取り消す。
// DELETE /api/wishlists/{id}/share
func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.service.Revoke(r.Context(), chi.URLParam(r, "id"), user); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// View は共有ページの内容を返す。認証不要。
// GET /share/{token}
func (h *ShareHandler) View(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSharedWishlistResponse(view))
}
