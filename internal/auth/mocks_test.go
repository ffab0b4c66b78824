package auth

import (
	"context"
	"time"

	"github.com/hitoshi/wantify/internal/model"
	"github.com/hitoshi/wantify/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.User, error)
	findByGuestIDFn      func(ctx context.Context, guestID string) (*model.User, error)
	createGuestFn        func(ctx context.Context, user *model.User) error
	createWithIdentityFn func(ctx context.Context, user *model.User, identity *model.Identity) error
	promoteGuestFn       func(ctx context.Context, guestID string, identity *model.Identity, now time.Time) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByGuestID(ctx context.Context, guestID string) (*model.User, error) {
	if m.findByGuestIDFn != nil {
		return m.findByGuestIDFn(ctx, guestID)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateGuest(ctx context.Context, user *model.User) error {
	if m.createGuestFn != nil {
		return m.createGuestFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	if m.createWithIdentityFn != nil {
		return m.createWithIdentityFn(ctx, user, identity)
	}
	return nil
}

func (m *mockUserRepo) PromoteGuest(ctx context.Context, guestID string, identity *model.Identity, now time.Time) (*model.User, error) {
	if m.promoteGuestFn != nil {
		return m.promoteGuestFn(ctx, guestID, identity, now)
	}
	return nil, nil
}

func (m *mockUserRepo) Withdraw(_ context.Context, _ string, _ time.Time) error {
	return nil
}

type mockIdentityRepo struct {
	findByProviderFn func(ctx context.Context, provider model.Provider, providerUserID string) (*model.Identity, error)
}

func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider model.Provider, providerUserID string) (*model.Identity, error) {
	if m.findByProviderFn != nil {
		return m.findByProviderFn(ctx, provider, providerUserID)
	}
	return nil, nil
}

func (m *mockIdentityRepo) ListByUserID(_ context.Context, _ string) ([]model.Identity, error) {
	return nil, nil
}

// memSessionRepo はメモリ上にセッションを保持するSessionRepositoryの実装。
type memSessionRepo struct {
	sessions  map[string]*model.Session
	createErr error
	findErr   error
	touches   int
	deletes   int
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[string]*model.Session{}}
}

func (m *memSessionRepo) Create(_ context.Context, session *model.Session) error {
	if m.createErr != nil {
		return m.createErr
	}
	s := *session
	m.sessions[session.ID] = &s
	return nil
}

func (m *memSessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memSessionRepo) Touch(_ context.Context, id string, prev, now time.Time) (bool, error) {
	s, ok := m.sessions[id]
	if !ok || !s.LastActivityAt.Equal(prev) {
		return false, nil
	}
	m.touches++
	s.LastActivityAt = now
	return true, nil
}

func (m *memSessionRepo) SoftDelete(_ context.Context, id string, now time.Time) (bool, error) {
	s, ok := m.sessions[id]
	if !ok || s.Deletion.IsDeleted() {
		return false, nil
	}
	m.deletes++
	s.Deletion = model.DeletedAt(now)
	return true, nil
}

type mockOAuthProvider struct {
	name       model.Provider
	pkce       bool
	exchangeFn func(ctx context.Context, code, verifier string) (*Claims, error)
}

func (m *mockOAuthProvider) Name() model.Provider { return m.name }
func (m *mockOAuthProvider) UsesPKCE() bool       { return m.pkce }

func (m *mockOAuthProvider) AuthCodeURL(state, verifier string) string {
	return "https://idp.example.com/authorize?state=" + state + "&verifier=" + verifier
}

func (m *mockOAuthProvider) Exchange(ctx context.Context, code, verifier string) (*Claims, error) {
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, code, verifier)
	}
	return &Claims{}, nil
}

// recordingCollector は呼び出されたメトリクスを記録する。
type recordingCollector struct {
	signIns     []string
	validations []string
	guests      int
}

func (r *recordingCollector) RecordHTTPStatus(int)                {}
func (r *recordingCollector) RecordRequestDuration(time.Duration) {}
func (r *recordingCollector) RecordSignIn(provider, outcome string) {
	r.signIns = append(r.signIns, provider+":"+outcome)
}
func (r *recordingCollector) RecordSessionValidation(result string) {
	r.validations = append(r.validations, result)
}
func (r *recordingCollector) RecordGuestCreated()             { r.guests++ }
func (r *recordingCollector) RecordCleanupRows(string, int64) {}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.IdentityRepository = (*mockIdentityRepo)(nil)
var _ repository.SessionRepository = (*memSessionRepo)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)
