package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/wantify/internal/middleware"
	"github.com/hitoshi/wantify/internal/model"
)

func TestUserHandler_Me(t *testing.T) {
	tests := []struct {
		name          string
		user          *model.User
		wantGuest     bool
		wantProviders int
	}{
		{"サインイン済み", testUser, false, 1},
		{"ゲスト", testGuest, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewUserHandler(&mockUserService{}, middleware.CookieConfig{})

			req := newRequest(http.MethodGet, "/api/me", "", nil, tt.user)
			w := httptest.NewRecorder()

			h.Me(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			var body meResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body.ID != tt.user.ID {
				t.Errorf("id = %q, want %q", body.ID, tt.user.ID)
			}
			if body.IsGuest != tt.wantGuest {
				t.Errorf("isGuest = %v, want %v", body.IsGuest, tt.wantGuest)
			}
			if len(body.Providers) != tt.wantProviders {
				t.Errorf("len(providers) = %d, want %d", len(body.Providers), tt.wantProviders)
			}
		})
	}
}

func TestUserHandler_Me_NoUser_Returns401(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, middleware.CookieConfig{})

	req := newRequest(http.MethodGet, "/api/me", "", nil, nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestUserHandler_RequestEmailVerification(t *testing.T) {
	var gotEmail string
	svc := &mockUserService{
		requestFn: func(ctx context.Context, user *model.User, email string) error {
			gotEmail = email
			return nil
		},
	}
	h := NewUserHandler(svc, middleware.CookieConfig{})

	req := newRequest(http.MethodPost, "/api/users/me/email-verification", `{"email":"alice@example.com"}`, nil, testUser)
	w := httptest.NewRecorder()

	h.RequestEmailVerification(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
	if gotEmail != "alice@example.com" {
		t.Errorf("email = %q, want %q", gotEmail, "alice@example.com")
	}
}

func TestUserHandler_RequestEmailVerification_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "メールアドレスなし",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeValidation,
		},
		{
			name:       "形式不正",
			body:       `{"email":"not-an-email"}`,
			serviceErr: model.NewValidationError("Invalid email", map[string]string{"email": "invalid"}),
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeValidation,
		},
		{
			name:       "ゲスト",
			body:       `{"email":"alice@example.com"}`,
			serviceErr: model.NewUnauthenticatedError(),
			wantStatus: http.StatusUnauthorized,
			wantCode:   model.ErrCodeUnauthenticated,
		},
		{
			name:       "発行失敗",
			body:       `{"email":"alice@example.com"}`,
			serviceErr: model.NewEmailVerificationNotCreatedError(),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   model.ErrCodeEmailVerificationNotCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockUserService{
				requestFn: func(ctx context.Context, user *model.User, email string) error {
					return tt.serviceErr
				},
			}
			h := NewUserHandler(svc, middleware.CookieConfig{})

			req := newRequest(http.MethodPost, "/api/users/me/email-verification", tt.body, nil, testUser)
			w := httptest.NewRecorder()

			h.RequestEmailVerification(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if body := decodeErrorBody(t, w); body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestUserHandler_ConfirmEmailVerification(t *testing.T) {
	svc := &mockUserService{
		confirmFn: func(ctx context.Context, user *model.User, code string) (*model.User, error) {
			if code != "123456" {
				return nil, model.NewEmailVerificationNotFoundError()
			}
			u := *user
			u.Email = "alice@example.com"
			u.EmailVerified = true
			return &u, nil
		},
	}
	h := NewUserHandler(svc, middleware.CookieConfig{})

	t.Run("一致", func(t *testing.T) {
		req := newRequest(http.MethodPost, "/api/users/me/email-verification/confirm", `{"code":"123456"}`, nil, testUser)
		w := httptest.NewRecorder()

		h.ConfirmEmailVerification(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var body meResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !body.EmailVerified || body.Email != "alice@example.com" {
			t.Errorf("body = %+v, want verified alice@example.com", body)
		}
	})

	t.Run("不一致", func(t *testing.T) {
		req := newRequest(http.MethodPost, "/api/users/me/email-verification/confirm", `{"code":"000000"}`, nil, testUser)
		w := httptest.NewRecorder()

		h.ConfirmEmailVerification(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if body := decodeErrorBody(t, w); body.Code != model.ErrCodeEmailVerificationNotFound {
			t.Errorf("code = %q, want %q", body.Code, model.ErrCodeEmailVerificationNotFound)
		}
	})
}

func TestUserHandler_Withdraw_Success(t *testing.T) {
	withdrawCalled := false
	svc := &mockUserService{
		withdrawFn: func(ctx context.Context, userID string) error {
			withdrawCalled = true
			if userID != testUser.ID {
				t.Errorf("userID = %q, want %q", userID, testUser.ID)
			}
			return nil
		},
	}
	h := NewUserHandler(svc, middleware.CookieConfig{})

	req := newRequest(http.MethodDelete, "/api/users/me", "", nil, testUser)
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if !withdrawCalled {
		t.Error("expected Withdraw to be called")
	}
	for _, name := range []string{middleware.SessionCookieName, middleware.GuestCookieName} {
		if c := findCookie(resp, name); c == nil || c.MaxAge >= 0 {
			t.Errorf("cookie %s should be cleared, got %+v", name, c)
		}
	}
}

func TestUserHandler_Withdraw_NoUser_ReturnsUnauthorized(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, middleware.CookieConfig{})

	req := newRequest(http.MethodDelete, "/api/users/me", "", nil, nil)
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestUserHandler_Withdraw_ServiceError_Returns500(t *testing.T) {
	svc := &mockUserService{
		withdrawFn: func(ctx context.Context, userID string) error {
			return errors.New("database error")
		},
	}
	h := NewUserHandler(svc, middleware.CookieConfig{})

	req := newRequest(http.MethodDelete, "/api/users/me", "", nil, testUser)
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if findCookie(w.Result(), middleware.SessionCookieName) != nil {
		t.Error("session cookie should be kept when withdraw fails")
	}
}

func TestUserHandler_Withdraw_LockedWishlist_Returns423(t *testing.T) {
	svc := &mockUserService{
		withdrawFn: func(ctx context.Context, userID string) error {
			return model.NewWishlistLockedError("w-1")
		},
	}
	h := NewUserHandler(svc, middleware.CookieConfig{})

	req := newRequest(http.MethodDelete, "/api/users/me", "", nil, testUser)
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	if w.Code != http.StatusLocked {
		t.Errorf("status = %d, want %d", w.Code, http.StatusLocked)
	}
	if findCookie(w.Result(), middleware.SessionCookieName) != nil {
		t.Error("session cookie should be kept when withdraw is rejected")
	}
}
