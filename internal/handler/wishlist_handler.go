package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/wantify/internal/middleware"
	"github.com/hitoshi/wantify/internal/model"
)

// WishlistServiceInterface はウィッシュリストハンドラーが必要とするサービスインターフェース。
type WishlistServiceInterface interface {
	List(ctx context.Context, user *model.User) ([]model.Wishlist, error)
	Get(ctx context.Context, id string, user *model.User) (*model.WishlistWithItems, error)
	Create(ctx context.Context, user *model.User) (*model.Wishlist, error)
	Rename(ctx context.Context, id string, user *model.User, name string) (*model.Wishlist, error)
	ToggleLock(ctx context.Context, id string, user *model.User) (*model.Wishlist, error)
	SaveAddress(ctx context.Context, id string, user *model.User, addr model.Address) (*model.Wishlist, error)
	Delete(ctx context.Context, id string, user *model.User) error

	AddItem(ctx context.Context, wishlistID string, user *model.User, in model.ItemInput) (*model.WishlistItem, error)
	UpdateItem(ctx context.Context, wishlistID, itemID string, user *model.User, in model.ItemInput) (*model.WishlistItem, error)
	DeleteItem(ctx context.Context, wishlistID, itemID string, user *model.User) error
}

// WishlistHandler はウィッシュリストとアイテムのHTTPハンドラー。
type WishlistHandler struct {
	service WishlistServiceInterface
}

// NewWishlistHandler はWishlistHandlerを生成する。
func NewWishlistHandler(service WishlistServiceInterface) *WishlistHandler {
	return &WishlistHandler{
		service: service,
	}
}

// currentUser はIdentityMiddlewareが解決した利用者を返す。
// 利用者がいない場合は401を書き込みfalseを返す。
func currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, model.NewUnauthenticatedError())
		return nil, false
	}
	return user, true
}

// List はウィッシュリスト一覧を返す。
// GET /api/wishlists
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	wishlists, err := h.service.List(r.Context(), user)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	resp := make([]wishlistResponse, 0, len(wishlists))
	for i := range wishlists {
		resp = append(resp, toWishlistResponse(&wishlists[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create はウィッシュリストを作成する。
// POST /api/wishlists
func (h *WishlistHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	wishlist, err := h.service.Create(r.Context(), user)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWishlistResponse(wishlist))
}

// Get はアイテムを含むウィッシュリストを返す。
// GET /api/wishlists/{id}
func (h *WishlistHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), user)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWishlistDetailResponse(detail))
}

// Rename はウィッシュリスト名を変更する。
// PATCH /api/wishlists/{id}/name
func (h *WishlistHandler) Rename(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req renameRequest
	if err := bind(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	wishlist, err := h.service.Rename(r.Context(), chi.URLParam(r, "id"), user, req.Name)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWishlistResponse(wishlist))
}

// ToggleLock はロック状態を反転する。
// POST /api/wishlists/{id}/lock
func (h *WishlistHandler) ToggleLock(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	wishlist, err := h.service.ToggleLock(r.Context(), chi.URLParam(r, "id"), user)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWishlistResponse(wishlist))
}

// SaveAddress は配送先住所を保存する。
// PUT /api/wishlists/{id}/address
func (h *WishlistHandler) SaveAddress(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req addressRequest
	if err := bind(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	wishlist, err := h.service.SaveAddress(r.Context(), chi.URLParam(r, "id"), user, req.address())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWishlistResponse(wishlist))
}

// Delete はウィッシュリストをアイテム・共有リンクごと論理削除する。
// DELETE /api/wishlists/{id}
func (h *WishlistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), user); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem はアイテムを追加する。
// POST /api/wishlists/{id}/items
func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if err := bind(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	item, err := h.service.AddItem(r.Context(), chi.URLParam(r, "id"), user, req.input())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemResponse(item))
}

// UpdateItem はアイテムを更新する。
// PUT /api/wishlists/{id}/items/{itemId}
func (h *WishlistHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if err := bind(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	item, err := h.service.UpdateItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"), user, req.input())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// DeleteItem はアイテムを論理削除する。
// DELETE /api/wishlists/{id}/items/{itemId}
func (h *WishlistHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"), user); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
