package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-portfolio/sessionstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestSessionContext(t *testing.T, provider SessionProvider, profiles ProfileStore, opts ...SessionContextOption) *SessionContext {
	t.Helper()
	sessions := NewSessionContext(provider, profiles, opts...)
	require.NoError(t, sessions.Init(context.Background()))
	t.Cleanup(func() { _ = sessions.Close() })
	return sessions
}

func signIn(t *testing.T, provider *MockSessionProvider, s *Session, identity *Identity) {
	t.Helper()
	provider.On("SignIn", mock.Anything, identity.Email, "secret1").Return(identity, nil).Once()
	require.NoError(t, s.Credentials.SubmitSignIn(context.Background(), identity.Email, "secret1"))
}

func TestSessionContextRequiresInit(t *testing.T) {
	sessions := NewSessionContext(new(MockSessionProvider), new(MockProfileStore))

	_, err := sessions.Session(context.Background(), "")
	require.Error(t, err)
	assert.True(t, HasTextCode(err, "SESSION_CONTEXT_NOT_READY"))
}

func TestSessionContextCreatesAndReusesSessions(t *testing.T) {
	sessions := newTestSessionContext(t, new(MockSessionProvider), new(MockProfileStore))

	s, err := sessions.Session(context.Background(), "")
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)
	assert.False(t, s.SignedIn())
	assert.Equal(t, ModeSignIn, s.Credentials.Mode())

	again, err := sessions.Session(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Same(t, s, again)

	unknown, err := sessions.Session(context.Background(), "not-a-session")
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-session", unknown.ID)
}

func TestSessionSurvivesRestart(t *testing.T) {
	store := sessionstore.NewMemory()
	provider := new(MockSessionProvider)

	first := newTestSessionContext(t, provider, new(MockProfileStore), WithSessionStore(store))
	s, err := first.Session(context.Background(), "")
	require.NoError(t, err)

	signIn(t, provider, s, testIdentity())
	assert.Equal(t, ProfilePath, s.TakeRedirect())
	assert.Empty(t, s.TakeRedirect())

	s.Profile.Edit(FieldAbout, "half written")
	require.NoError(t, s.Save(context.Background()))

	second := newTestSessionContext(t, provider, new(MockProfileStore), WithSessionStore(store))
	restored, err := second.Session(context.Background(), s.ID)
	require.NoError(t, err)

	assert.Equal(t, s.ID, restored.ID)
	require.True(t, restored.SignedIn())
	assert.Equal(t, "uid-1", restored.Identity().ID)
	assert.Equal(t, "half written", restored.Profile.Draft().About)
}

func TestSessionDiscardsUnreadableRecord(t *testing.T) {
	store := sessionstore.NewMemory()
	require.NoError(t, store.Set(context.Background(), "broken", []byte("{"), 0))

	sessions := newTestSessionContext(t, new(MockSessionProvider), new(MockProfileStore), WithSessionStore(store))
	s, err := sessions.Session(context.Background(), "broken")
	require.NoError(t, err)
	assert.NotEqual(t, "broken", s.ID)
	assert.False(t, s.SignedIn())
}

func TestSessionSignOut(t *testing.T) {
	provider := new(MockSessionProvider)
	sessions := newTestSessionContext(t, provider, new(MockProfileStore))

	s, err := sessions.Session(context.Background(), "")
	require.NoError(t, err)
	signIn(t, provider, s, testIdentity())
	s.Profile.Edit(FieldName, "Ada")

	require.NoError(t, sessions.SignOut(context.Background(), s))

	assert.False(t, s.SignedIn())
	assert.Equal(t, ProfileDraft{}, s.Profile.Draft())
	assert.Equal(t, ModeSignIn, s.Credentials.Mode())

	_, ok := IdentityFromContext(WithSession(context.Background(), s))
	assert.False(t, ok)
}

func TestSessionNewIdentityResetsProfile(t *testing.T) {
	provider := new(MockSessionProvider)
	sessions := newTestSessionContext(t, provider, new(MockProfileStore))

	s, err := sessions.Session(context.Background(), "")
	require.NoError(t, err)
	signIn(t, provider, s, testIdentity())
	s.Profile.Edit(FieldName, "Ada")

	signIn(t, provider, s, testIdentity())
	assert.Equal(t, "Ada", s.Profile.Draft().Name, "same user keeps the draft")

	other := &Identity{ID: "uid-2", Email: "grace@example.com", Token: Token{IDToken: "id-token-2"}}
	signIn(t, provider, s, other)
	assert.Equal(t, ProfileDraft{}, s.Profile.Draft())
	assert.Equal(t, "uid-2", s.Identity().ID)
}

func TestSessionBearerTokenRefreshes(t *testing.T) {
	store := sessionstore.NewMemory()
	provider := new(MockSessionProvider)
	sessions := newTestSessionContext(t, provider, new(MockProfileStore), WithSessionStore(store))

	s, err := sessions.Session(context.Background(), "")
	require.NoError(t, err)

	stale := testIdentity()
	stale.Token.ExpiresAt = time.Now().Add(-time.Minute)
	signIn(t, provider, s, stale)

	provider.On("Refresh", mock.Anything, "refresh-1").
		Return(Token{IDToken: "id-token-2", ExpiresAt: time.Now().Add(time.Hour)}, nil).Once()

	token, err := s.BearerToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id-token-2", token)

	identity := s.Identity()
	assert.Equal(t, "refresh-1", identity.Token.RefreshToken)

	token, err = s.BearerToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id-token-2", token)
	provider.AssertNumberOfCalls(t, "Refresh", 1)

	data, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Contains(t, string(data), "id-token-2")
}

func TestSessionBearerTokenRefreshDoesNotBlockSession(t *testing.T) {
	provider := new(MockSessionProvider)
	sessions := newTestSessionContext(t, provider, new(MockProfileStore))

	s, err := sessions.Session(context.Background(), "")
	require.NoError(t, err)

	stale := testIdentity()
	stale.Token.ExpiresAt = time.Now().Add(-time.Minute)
	signIn(t, provider, s, stale)

	provider.On("Refresh", mock.Anything, "refresh-1").
		Run(func(mock.Arguments) {
			done := make(chan *Identity, 1)
			go func() { done <- s.Identity() }()
			select {
			case identity := <-done:
				assert.Equal(t, "id-token-1", identity.Token.IDToken)
			case <-time.After(time.Second):
				t.Error("session locked during token refresh")
			}
		}).
		Return(Token{IDToken: "id-token-2", ExpiresAt: time.Now().Add(time.Hour)}, nil).Once()

	token, err := s.BearerToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id-token-2", token)
	assert.Equal(t, "id-token-2", s.Identity().Token.IDToken)
}

func TestSessionRestartKeepsLoadedFlag(t *testing.T) {
	store := sessionstore.NewMemory()
	provider := new(MockSessionProvider)

	first := newTestSessionContext(t, provider, new(MockProfileStore), WithSessionStore(store))
	s, err := first.Session(context.Background(), "")
	require.NoError(t, err)
	signIn(t, provider, s, testIdentity())

	s.Profile.Edit(FieldName, "Unsaved Edit")
	require.NoError(t, s.Save(context.Background()))

	profiles := new(MockProfileStore)
	second := newTestSessionContext(t, provider, profiles, WithSessionStore(store))
	restored, err := second.Session(context.Background(), s.ID)
	require.NoError(t, err)

	assert.True(t, restored.Profile.Loaded())
	require.NoError(t, restored.Profile.LoadOnce(context.Background()))
	assert.Equal(t, "Unsaved Edit", restored.Profile.Draft().Name)
	profiles.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestSessionBearerTokenWithoutIdentity(t *testing.T) {
	sessions := newTestSessionContext(t, new(MockSessionProvider), new(MockProfileStore))
	s, err := sessions.Session(context.Background(), "")
	require.NoError(t, err)

	_, err = s.BearerToken(context.Background())
	assert.True(t, HasTextCode(err, TextCodeNotSignedIn))
}
