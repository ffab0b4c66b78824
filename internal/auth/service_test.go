package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/wantify/internal/metrics"
	"github.com/hitoshi/wantify/internal/model"
)

func newTestService(userRepo *mockUserRepo, identRepo *mockIdentityRepo, sessions *memSessionRepo, rec *recordingCollector) *Service {
	mgr := NewSessionManager(sessions, rec)
	mgr.Now = func() time.Time { return baseTime }
	svc := NewService(
		[]OAuthProvider{
			&mockOAuthProvider{name: model.ProviderGoogle, pkce: true},
			&mockOAuthProvider{name: model.ProviderGitHub},
		},
		userRepo, identRepo, mgr, rec,
	)
	svc.Now = func() time.Time { return baseTime }
	return svc
}

func TestService_Provider(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockIdentityRepo{}, newMemSessionRepo(), &recordingCollector{})

	if _, ok := svc.Provider("google"); !ok {
		t.Error("google should be enabled")
	}
	if _, ok := svc.Provider("discord"); ok {
		t.Error("discord is not configured and should be disabled")
	}
	if _, ok := svc.Provider("facebook"); ok {
		t.Error("unknown provider should not resolve")
	}
}

func TestService_Begin(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockIdentityRepo{}, newMemSessionRepo(), &recordingCollector{})

	t.Run("PKCEプロバイダーはverifierを生成する", func(t *testing.T) {
		p, _ := svc.Provider("google")
		start, err := svc.Begin(p)
		if err != nil {
			t.Fatalf("Begin() error = %v", err)
		}
		if start.State == "" || start.Verifier == "" {
			t.Errorf("state = %q, verifier = %q, want both set", start.State, start.Verifier)
		}
		if !strings.Contains(start.URL, "state="+start.State) {
			t.Errorf("URL %q should carry the state", start.URL)
		}
	})

	t.Run("非PKCEプロバイダーはverifierなし", func(t *testing.T) {
		p, _ := svc.Provider("github")
		start, err := svc.Begin(p)
		if err != nil {
			t.Fatalf("Begin() error = %v", err)
		}
		if start.Verifier != "" {
			t.Errorf("verifier = %q, want empty", start.Verifier)
		}
	})
}

func TestService_HandleCallback_ExistingUser(t *testing.T) {
	rec := &recordingCollector{}
	promoteCalled := false
	svc := newTestService(
		&mockUserRepo{
			findByIDFn: func(_ context.Context, id string) (*model.User, error) {
				return &model.User{ID: id}, nil
			},
			promoteGuestFn: func(context.Context, string, *model.Identity, time.Time) (*model.User, error) {
				promoteCalled = true
				return nil, nil
			},
		},
		&mockIdentityRepo{
			findByProviderFn: func(_ context.Context, provider model.Provider, providerUserID string) (*model.Identity, error) {
				if provider != model.ProviderGoogle || providerUserID != "sub-1" {
					t.Errorf("lookup = %s/%s, want google/sub-1", provider, providerUserID)
				}
				return &model.Identity{ID: "ident-1", UserID: "user-1"}, nil
			},
		},
		newMemSessionRepo(), rec,
	)

	result, err := svc.HandleCallback(context.Background(), model.ProviderGoogle, &Claims{ProviderUserID: "sub-1"}, "guest-1")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if result.User.ID != "user-1" {
		t.Errorf("user = %q, want user-1", result.User.ID)
	}
	if result.GuestPromoted || promoteCalled {
		t.Error("linked account must win over the guest cookie")
	}
	if result.Token == "" {
		t.Error("token should be issued")
	}
	if got := rec.signIns; len(got) != 1 || got[0] != "google:"+metrics.OutcomeExisting {
		t.Errorf("signIns = %v", got)
	}
}

func TestService_HandleCallback_PromotesGuest(t *testing.T) {
	rec := &recordingCollector{}
	var promotedIdentity *model.Identity
	svc := newTestService(
		&mockUserRepo{
			promoteGuestFn: func(_ context.Context, guestID string, identity *model.Identity, now time.Time) (*model.User, error) {
				if guestID != "guest-1" {
					t.Errorf("guestID = %q, want guest-1", guestID)
				}
				promotedIdentity = identity
				return &model.User{ID: "user-guest", Name: identity.ProviderUsername}, nil
			},
			createWithIdentityFn: func(context.Context, *model.User, *model.Identity) error {
				t.Error("should not create a new user when a guest can be promoted")
				return nil
			},
		},
		&mockIdentityRepo{},
		newMemSessionRepo(), rec,
	)

	result, err := svc.HandleCallback(context.Background(), model.ProviderGitHub, &Claims{ProviderUserID: "42", Username: "octo"}, "guest-1")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if !result.GuestPromoted {
		t.Error("GuestPromoted should be true")
	}
	if result.User.ID != "user-guest" {
		t.Errorf("user = %q, want the guest's own ID", result.User.ID)
	}
	if promotedIdentity.Provider != model.ProviderGitHub || promotedIdentity.ProviderUserID != "42" || promotedIdentity.ProviderUsername != "octo" {
		t.Errorf("identity = %+v", promotedIdentity)
	}
	if got := rec.signIns; len(got) != 1 || got[0] != "github:"+metrics.OutcomePromoted {
		t.Errorf("signIns = %v", got)
	}
}

func TestService_HandleCallback_GuestNotFound(t *testing.T) {
	rec := &recordingCollector{}
	sessions := newMemSessionRepo()
	svc := newTestService(&mockUserRepo{}, &mockIdentityRepo{}, sessions, rec)

	_, err := svc.HandleCallback(context.Background(), model.ProviderGoogle, &Claims{ProviderUserID: "sub-1"}, "missing-guest")
	if !model.IsKind(err, model.KindValidation) {
		t.Fatalf("error = %v, want validation kind", err)
	}
	if len(sessions.sessions) != 0 {
		t.Error("no session should be created")
	}
	if got := rec.signIns; len(got) != 1 || got[0] != "google:"+metrics.OutcomeFailed {
		t.Errorf("signIns = %v", got)
	}
}

func TestService_HandleCallback_NewUser(t *testing.T) {
	var created *model.User
	var createdIdentity *model.Identity
	svc := newTestService(
		&mockUserRepo{
			createWithIdentityFn: func(_ context.Context, user *model.User, identity *model.Identity) error {
				created = user
				createdIdentity = identity
				return nil
			},
		},
		&mockIdentityRepo{},
		newMemSessionRepo(), &recordingCollector{},
	)

	result, err := svc.HandleCallback(context.Background(), model.ProviderGoogle, &Claims{ProviderUserID: "sub-9", Username: "Alice"}, "")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if created == nil || created.IsGuest {
		t.Fatalf("created = %+v, want full account", created)
	}
	if created.Name != "Alice" {
		t.Errorf("Name = %q, want Alice", created.Name)
	}
	if createdIdentity.UserID != created.ID {
		t.Errorf("identity.UserID = %q, want %q", createdIdentity.UserID, created.ID)
	}
	if result.Outcome != metrics.OutcomeNewUser {
		t.Errorf("Outcome = %q, want %q", result.Outcome, metrics.OutcomeNewUser)
	}
}

func TestService_HandleCallback_SessionNotCreated(t *testing.T) {
	sessions := newMemSessionRepo()
	sessions.createErr = errors.New("insert failed")
	svc := newTestService(&mockUserRepo{}, &mockIdentityRepo{}, sessions, &recordingCollector{})

	_, err := svc.HandleCallback(context.Background(), model.ProviderGoogle, &Claims{ProviderUserID: "sub-1"}, "")
	if !model.IsKind(err, model.KindNotCreated) {
		t.Fatalf("error = %v, want not_created", err)
	}
}

func TestService_HandleCallback_IdentityLookupFailure(t *testing.T) {
	svc := newTestService(
		&mockUserRepo{},
		&mockIdentityRepo{
			findByProviderFn: func(context.Context, model.Provider, string) (*model.Identity, error) {
				return nil, errors.New("db down")
			},
		},
		newMemSessionRepo(), &recordingCollector{},
	)

	_, err := svc.HandleCallback(context.Background(), model.ProviderGoogle, &Claims{ProviderUserID: "sub-1"}, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := model.AsAPIError(err); ok {
		t.Error("storage failure should not be a typed API error")
	}
}

func TestService_SignOut(t *testing.T) {
	sessions := newMemSessionRepo()
	svc := newTestService(&mockUserRepo{}, &mockIdentityRepo{}, sessions, &recordingCollector{})
	token, _, err := svc.sessions.Create(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}

	deleted, err := svc.SignOut(context.Background(), token)
	if err != nil || !deleted {
		t.Fatalf("SignOut() = %v, %v, want true, nil", deleted, err)
	}

	deleted, err = svc.SignOut(context.Background(), token)
	if err != nil || deleted {
		t.Errorf("second SignOut() = %v, %v, want false, nil", deleted, err)
	}
}
