package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/wantify/internal/model"
)

// addressResponse は住所のAPIレスポンス。
type addressResponse struct {
	StreetAddress string `json:"streetAddress"`
	AddressLine2  string `json:"addressLine2"`
	City          string `json:"city"`
	State         string `json:"state"`
	ZipCode       string `json:"zipCode"`
}

// wishlistResponse はウィッシュリストのAPIレスポンス。
type wishlistResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	IsLocked  bool            `json:"isLocked"`
	Address   addressResponse `json:"address"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// itemResponse はアイテムのAPIレスポンス。金額は小数点以下2桁の文字列で返す。
type itemResponse struct {
	ID           string    `json:"id"`
	WishlistID   string    `json:"wishlistId"`
	ItemName     string    `json:"itemName"`
	ItemURL      string    `json:"itemUrl"`
	ItemCost     string    `json:"itemCost"`
	ItemQuantity int       `json:"itemQuantity"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// wishlistDetailResponse はアイテムを含むウィッシュリストのAPIレスポンス。
type wishlistDetailResponse struct {
	wishlistResponse
	Items []itemResponse `json:"items"`
}

// shareResponse は共有リンクのAPIレスポンス。shareIdは公開トークン。
type shareResponse struct {
	ShareID      string     `json:"shareId"`
	URL          string     `json:"url"`
	DurationType string     `json:"durationType"`
	ExpiresAt    *time.Time `json:"expiresAt"`
}

// sharedItemResponse は共有ページのアイテム。内部IDは含めない。
type sharedItemResponse struct {
	ItemName string `json:"itemName"`
	ItemURL  string `json:"itemUrl"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

// sharedWishlistResponse は共有ページのAPIレスポンス。
type sharedWishlistResponse struct {
	WishlistName string               `json:"wishlistName"`
	Items        []sharedItemResponse `json:"items"`
}

// meResponse は現在の利用者のAPIレスポンス。
type meResponse struct {
	ID            string   `json:"id"`
	IsGuest       bool     `json:"isGuest"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	EmailVerified bool     `json:"emailVerified"`
	Providers     []string `json:"providers"`
}

func toWishlistResponse(w *model.Wishlist) wishlistResponse {
	return wishlistResponse{
		ID:       w.ID,
		Name:     w.Name,
		IsLocked: w.IsLocked,
		Address: addressResponse{
			StreetAddress: w.Address.StreetAddress,
			AddressLine2:  w.Address.AddressLine2,
			City:          w.Address.City,
			State:         w.Address.State,
			ZipCode:       w.Address.ZipCode,
		},
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func toItemResponse(item *model.WishlistItem) itemResponse {
	return itemResponse{
		ID:           item.ID,
		WishlistID:   item.WishlistID,
		ItemName:     item.ItemName,
		ItemURL:      item.URL,
		ItemCost:     item.Price.StringFixed(2),
		ItemQuantity: item.Quantity,
		ImageURL:     item.ImageURL,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}

func toWishlistDetailResponse(w *model.WishlistWithItems) wishlistDetailResponse {
	resp := wishlistDetailResponse{
		wishlistResponse: toWishlistResponse(&w.Wishlist),
		Items:            make([]itemResponse, 0, len(w.Items)),
	}
	for i := range w.Items {
		resp.Items = append(resp.Items, toItemResponse(&w.Items[i]))
	}
	return resp
}

func toSharedWishlistResponse(v *model.SharedWishlistView) sharedWishlistResponse {
	resp := sharedWishlistResponse{
		WishlistName: v.WishlistName,
		Items:        make([]sharedItemResponse, 0, len(v.Items)),
	}
	for _, item := range v.Items {
		resp.Items = append(resp.Items, sharedItemResponse{
			ItemName: item.ItemName,
			ItemURL:  item.URL,
			Price:    item.Price.StringFixed(2),
			Quantity: item.Quantity,
		})
	}
	return resp
}

func toMeResponse(u *model.User) meResponse {
	providers := make([]string, 0, len(u.Identities))
	for _, ident := range u.Identities {
		providers = append(providers, string(ident.Provider))
	}
	return meResponse{
		ID:            u.ID,
		IsGuest:       u.IsGuest,
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Providers:     providers,
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
