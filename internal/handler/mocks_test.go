package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/wantify/internal/auth"
	"github.com/hitoshi/wantify/internal/middleware"
	"github.com/hitoshi/wantify/internal/model"
	"github.com/hitoshi/wantify/internal/share"
)

// --- モック定義 ---

type mockAuthService struct {
	providers        map[string]auth.OAuthProvider
	beginFn          func(provider auth.OAuthProvider) (*auth.SignInStart, error)
	handleCallbackFn func(ctx context.Context, provider model.Provider, claims *auth.Claims, guestID string) (*auth.SignInResult, error)
	signOutFn        func(ctx context.Context, token string) (bool, error)
}

func (m *mockAuthService) Provider(name string) (auth.OAuthProvider, bool) {
	p, ok := m.providers[name]
	return p, ok
}

func (m *mockAuthService) Begin(provider auth.OAuthProvider) (*auth.SignInStart, error) {
	if m.beginFn != nil {
		return m.beginFn(provider)
	}
	return &auth.SignInStart{URL: "https://idp.example.com/authorize", State: "state-1"}, nil
}

func (m *mockAuthService) HandleCallback(ctx context.Context, provider model.Provider, claims *auth.Claims, guestID string) (*auth.SignInResult, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, provider, claims, guestID)
	}
	return nil, nil
}

func (m *mockAuthService) SignOut(ctx context.Context, token string) (bool, error) {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, token)
	}
	return false, nil
}

type mockProvider struct {
	name       model.Provider
	pkce       bool
	exchangeFn func(ctx context.Context, code, verifier string) (*auth.Claims, error)
}

func (m *mockProvider) Name() model.Provider { return m.name }
func (m *mockProvider) UsesPKCE() bool       { return m.pkce }

func (m *mockProvider) AuthCodeURL(state, verifier string) string {
	return "https://idp.example.com/authorize?state=" + state
}

func (m *mockProvider) Exchange(ctx context.Context, code, verifier string) (*auth.Claims, error) {
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, code, verifier)
	}
	return &auth.Claims{ProviderUserID: "idp-1", Username: "octocat"}, nil
}

type mockWishlistService struct {
	listFn        func(ctx context.Context, user *model.User) ([]model.Wishlist, error)
	getFn         func(ctx context.Context, id string, user *model.User) (*model.WishlistWithItems, error)
	createFn      func(ctx context.Context, user *model.User) (*model.Wishlist, error)
	renameFn      func(ctx context.Context, id string, user *model.User, name string) (*model.Wishlist, error)
	toggleLockFn  func(ctx context.Context, id string, user *model.User) (*model.Wishlist, error)
	saveAddressFn func(ctx context.Context, id string, user *model.User, addr model.Address) (*model.Wishlist, error)
	deleteFn      func(ctx context.Context, id string, user *model.User) error
	addItemFn     func(ctx context.Context, wishlistID string, user *model.User, in model.ItemInput) (*model.WishlistItem, error)
	updateItemFn  func(ctx context.Context, wishlistID, itemID string, user *model.User, in model.ItemInput) (*model.WishlistItem, error)
	deleteItemFn  func(ctx context.Context, wishlistID, itemID string, user *model.User) error
}

func (m *mockWishlistService) List(ctx context.Context, user *model.User) ([]model.Wishlist, error) {
	if m.listFn != nil {
		return m.listFn(ctx, user)
	}
	return nil, nil
}

func (m *mockWishlistService) Get(ctx context.Context, id string, user *model.User) (*model.WishlistWithItems, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id, user)
	}
	return nil, model.NewWishlistNotFoundError(id)
}

func (m *mockWishlistService) Create(ctx context.Context, user *model.User) (*model.Wishlist, error) {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return &model.Wishlist{ID: "w-new", UserID: user.ID, Name: "My Wishlist: 1"}, nil
}

func (m *mockWishlistService) Rename(ctx context.Context, id string, user *model.User, name string) (*model.Wishlist, error) {
	if m.renameFn != nil {
		return m.renameFn(ctx, id, user, name)
	}
	return &model.Wishlist{ID: id, Name: name}, nil
}

func (m *mockWishlistService) ToggleLock(ctx context.Context, id string, user *model.User) (*model.Wishlist, error) {
	if m.toggleLockFn != nil {
		return m.toggleLockFn(ctx, id, user)
	}
	return &model.Wishlist{ID: id, IsLocked: true}, nil
}

func (m *mockWishlistService) SaveAddress(ctx context.Context, id string, user *model.User, addr model.Address) (*model.Wishlist, error) {
	if m.saveAddressFn != nil {
		return m.saveAddressFn(ctx, id, user, addr)
	}
	return &model.Wishlist{ID: id, Address: addr}, nil
}

func (m *mockWishlistService) Delete(ctx context.Context, id string, user *model.User) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, user)
	}
	return nil
}

func (m *mockWishlistService) AddItem(ctx context.Context, wishlistID string, user *model.User, in model.ItemInput) (*model.WishlistItem, error) {
	if m.addItemFn != nil {
		return m.addItemFn(ctx, wishlistID, user, in)
	}
	return &model.WishlistItem{ID: "i-new", WishlistID: wishlistID, ItemName: in.ItemName, Price: in.Price, Quantity: in.QuantityOrDefault(), URL: in.URL}, nil
}

func (m *mockWishlistService) UpdateItem(ctx context.Context, wishlistID, itemID string, user *model.User, in model.ItemInput) (*model.WishlistItem, error) {
	if m.updateItemFn != nil {
		return m.updateItemFn(ctx, wishlistID, itemID, user, in)
	}
	return &model.WishlistItem{ID: itemID, WishlistID: wishlistID, ItemName: in.ItemName, Price: in.Price, Quantity: in.QuantityOrDefault(), URL: in.URL}, nil
}

func (m *mockWishlistService) DeleteItem(ctx context.Context, wishlistID, itemID string, user *model.User) error {
	if m.deleteItemFn != nil {
		return m.deleteItemFn(ctx, wishlistID, itemID, user)
	}
	return nil
}

type mockShareService struct {
	issueFn          func(ctx context.Context, wishlistID string, user *model.User, duration model.ShareDuration) (*share.Link, error)
	updateDurationFn func(ctx context.Context, token string, user *model.User, duration model.ShareDuration) error
	revokeFn         func(ctx context.Context, wishlistID string, user *model.User) error
	viewFn           func(ctx context.Context, token string) (*model.SharedWishlistView, error)
}

func (m *mockShareService) Issue(ctx context.Context, wishlistID string, user *model.User, duration model.ShareDuration) (*share.Link, error) {
	if m.issueFn != nil {
		return m.issueFn(ctx, wishlistID, user, duration)
	}
	return &share.Link{Share: &model.SharedWishlist{ID: "s-1", WishlistID: wishlistID, DurationType: model.ShareThirtyDays}, Token: "tok123456789"}, nil
}

func (m *mockShareService) UpdateDuration(ctx context.Context, token string, user *model.User, duration model.ShareDuration) error {
	if m.updateDurationFn != nil {
		return m.updateDurationFn(ctx, token, user, duration)
	}
	return nil
}

func (m *mockShareService) Revoke(ctx context.Context, wishlistID string, user *model.User) error {
	if m.revokeFn != nil {
		return m.revokeFn(ctx, wishlistID, user)
	}
	return nil
}

func (m *mockShareService) View(ctx context.Context, token string) (*model.SharedWishlistView, error) {
	if m.viewFn != nil {
		return m.viewFn(ctx, token)
	}
	return nil, model.NewShareNotFoundError()
}

type mockUserService struct {
	requestFn  func(ctx context.Context, user *model.User, email string) error
	confirmFn  func(ctx context.Context, user *model.User, code string) (*model.User, error)
	withdrawFn func(ctx context.Context, userID string) error
}

func (m *mockUserService) RequestEmailVerification(ctx context.Context, user *model.User, email string) error {
	if m.requestFn != nil {
		return m.requestFn(ctx, user, email)
	}
	return nil
}

func (m *mockUserService) ConfirmEmailVerification(ctx context.Context, user *model.User, code string) (*model.User, error) {
	if m.confirmFn != nil {
		return m.confirmFn(ctx, user, code)
	}
	return user, nil
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

// stubResolver は常に同じ利用者を返すIdentityResolver。
type stubResolver struct {
	user *model.User
}

func (s *stubResolver) Resolve(ctx context.Context, sessionToken, guestID string) (*auth.Identity, error) {
	ident := &auth.Identity{User: s.user}
	if sessionToken != "" && !s.user.IsGuest {
		ident.Session = &model.Session{ID: "s-1", UserID: s.user.ID}
	}
	return ident, nil
}

// --- ヘルパー ---

var (
	testUser  = &model.User{ID: "user-1", Name: "octocat", Identities: []model.Identity{{Provider: model.ProviderGitHub}}}
	testGuest = &model.User{ID: "user-g", GuestID: "0b8e9c7a-3f52-4c1e-9d7b-2a6f1e4c8b90", IsGuest: true}
)

// newRequest はURLパラメータと利用者を設定したリクエストを生成する。
func newRequest(method, target string, body string, params map[string]string, user *model.User) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if user != nil {
		ctx = middleware.ContextWithUser(ctx, user)
	}
	return req.WithContext(ctx)
}

// newFormRequest はapplication/x-www-form-urlencodedのボディを持つリクエストを生成する。
func newFormRequest(method, target, form string, params map[string]string, user *model.User) *http.Request {
	req := newRequest(method, target, "", params, user)
	req.Body = io.NopCloser(strings.NewReader(form))
	req.ContentLength = int64(len(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
