package portfolio

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockSessionProvider implements SessionProvider
type MockSessionProvider struct {
	mock.Mock
}

func (m *MockSessionProvider) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	args := m.Called(ctx, email, password)
	identity, _ := args.Get(0).(*Identity)
	return identity, args.Error(1)
}

func (m *MockSessionProvider) SignUp(ctx context.Context, username, email, password string) (*Identity, error) {
	args := m.Called(ctx, username, email, password)
	identity, _ := args.Get(0).(*Identity)
	return identity, args.Error(1)
}

func (m *MockSessionProvider) SignInWithProvider(ctx context.Context, assertion ProviderAssertion) (*Identity, error) {
	args := m.Called(ctx, assertion)
	identity, _ := args.Get(0).(*Identity)
	return identity, args.Error(1)
}

func (m *MockSessionProvider) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(Token), args.Error(1)
}

// MockProfileStore implements ProfileStore
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) Fetch(ctx context.Context, bearer string) (*RemoteProfile, error) {
	args := m.Called(ctx, bearer)
	profile, _ := args.Get(0).(*RemoteProfile)
	return profile, args.Error(1)
}

func (m *MockProfileStore) Store(ctx context.Context, bearer string, profile RemoteProfile) error {
	args := m.Called(ctx, bearer, profile)
	return args.Error(0)
}

// MockExporter implements DocumentExporter
type MockExporter struct {
	mock.Mock
}

func (m *MockExporter) Export(ctx context.Context, draft ProfileDraft, prompt Prompter) (*Artifact, error) {
	args := m.Called(ctx, draft, prompt)
	artifact, _ := args.Get(0).(*Artifact)
	return artifact, args.Error(1)
}

// stubPrincipal implements Principal
type stubPrincipal struct {
	mu       sync.Mutex
	identity *Identity
	err      error
}

func (p *stubPrincipal) Identity() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.identity
}

func (p *stubPrincipal) BearerToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	if p.identity == nil {
		return "", ErrNotSignedIn
	}
	return p.identity.Token.IDToken, nil
}

func testIdentity() *Identity {
	return &Identity{
		ID:          "uid-1",
		DisplayName: "Ada Lovelace",
		Email:       "ada@example.com",
		Provider:    "password",
		Token:       Token{IDToken: "id-token-1", RefreshToken: "refresh-1"},
	}
}
