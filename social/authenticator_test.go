package social

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/goliatone/go-logger/glog"
	portfolio "github.com/goliatone/go-portfolio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name        string
	firebaseID  string
	token       *Token
	profile     *SocialProfile
	exchangeErr error
	userInfoErr error

	gotCode     string
	gotVerifier string
}

func (p *stubProvider) Name() string       { return p.name }
func (p *stubProvider) FirebaseID() string { return p.firebaseID }

func (p *stubProvider) AuthCodeURL(state string, opts ...AuthCodeOption) string {
	cfg := ApplyAuthCodeOptions([]string{"profile"}, opts...)
	q := url.Values{}
	q.Set("state", state)
	q.Set("code_challenge", cfg.CodeChallenge)
	q.Set("code_challenge_method", cfg.CodeChallengeMethod)
	return "https://provider.test/authorize?" + q.Encode()
}

func (p *stubProvider) Exchange(_ context.Context, code string, opts ...ExchangeOption) (*Token, error) {
	p.gotCode = code
	p.gotVerifier = ApplyExchangeOptions(opts...).CodeVerifier
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return p.token, nil
}

func (p *stubProvider) UserInfo(context.Context, *Token) (*SocialProfile, error) {
	if p.userInfoErr != nil {
		return nil, p.userInfoErr
	}
	return p.profile, nil
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		name:       "github",
		firebaseID: "github.com",
		token:      &Token{AccessToken: "gh-access", TokenType: "bearer"},
		profile: &SocialProfile{
			ProviderUserID: "42",
			Provider:       "github",
			Email:          "ada@example.com",
			Name:           "Ada Lovelace",
			Username:       "ada",
			ProfileURL:     "https://github.com/ada",
		},
	}
}

func newTestAuthenticator(t *testing.T, providers ...SocialProvider) *SocialAuthenticator {
	t.Helper()
	opts := []SocialAuthOption{WithLogger(glog.Nop())}
	for _, p := range providers {
		opts = append(opts, WithProvider(p))
	}
	sa, err := NewSocialAuthenticator(SocialAuthConfig{
		StateSecret: []byte("a-very-long-state-secret-value"),
		RequestURI:  "http://localhost:8080",
	}, opts...)
	require.NoError(t, err)
	return sa
}

func stateFromURL(t *testing.T, raw string) (state, challenge string) {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query().Get("state"), u.Query().Get("code_challenge")
}

func TestNewSocialAuthenticatorNeedsSecret(t *testing.T) {
	_, err := NewSocialAuthenticator(SocialAuthConfig{})
	require.Error(t, err)

	sa, err := NewSocialAuthenticator(SocialAuthConfig{}, WithStateManager(testStateManager(t, time.Minute)))
	require.NoError(t, err)
	assert.Empty(t, sa.ListProviders())
}

func TestBeginAuthUnknownProvider(t *testing.T) {
	sa := newTestAuthenticator(t)

	_, err := sa.BeginAuth(context.Background(), "myspace", "sid-1", portfolio.ModeSignIn)
	assert.True(t, portfolio.HasTextCode(err, ErrProviderNotFound.TextCode))
}

func TestAuthRoundTrip(t *testing.T) {
	provider := newStubProvider()
	sa := newTestAuthenticator(t, provider)

	redirect, err := sa.BeginAuth(context.Background(), "github", "sid-1", portfolio.ModeSignUp)
	require.NoError(t, err)
	assert.Equal(t, "github", redirect.Provider)

	state, challenge := stateFromURL(t, redirect.URL)
	assert.Equal(t, redirect.State, state)
	assert.NotEmpty(t, challenge)

	result, err := sa.CompleteAuth(context.Background(), "github", "code-1", state, "sid-1")
	require.NoError(t, err)

	assert.Equal(t, "code-1", provider.gotCode)
	assert.Equal(t, challenge, computeCodeChallenge(provider.gotVerifier))
	assert.Equal(t, portfolio.ModeSignUp, result.Mode)
	assert.Equal(t, portfolio.ProviderAssertion{
		ProviderID:  "github.com",
		AccessToken: "gh-access",
		RequestURI:  "http://localhost:8080",
		Name:        "Ada Lovelace",
		Email:       "ada@example.com",
		Username:    "ada",
		ProfileURL:  "https://github.com/ada",
	}, result.Assertion)
}

func TestCompleteAuthRejectsOtherSession(t *testing.T) {
	sa := newTestAuthenticator(t, newStubProvider())

	redirect, err := sa.BeginAuth(context.Background(), "github", "sid-1", portfolio.ModeSignIn)
	require.NoError(t, err)

	_, err = sa.CompleteAuth(context.Background(), "github", "code", redirect.State, "sid-2")
	assert.ErrorIs(t, err, ErrSessionMismatch)
}

func TestCompleteAuthRejectsOtherProvider(t *testing.T) {
	google := newStubProvider()
	google.name, google.firebaseID = "google", "google.com"
	sa := newTestAuthenticator(t, newStubProvider(), google)

	redirect, err := sa.BeginAuth(context.Background(), "github", "sid-1", portfolio.ModeSignIn)
	require.NoError(t, err)

	_, err = sa.CompleteAuth(context.Background(), "google", "code", redirect.State, "sid-1")
	assert.True(t, portfolio.HasTextCode(err, ErrInvalidState.TextCode))
}

func TestCompleteAuthExpiredState(t *testing.T) {
	sa := newTestAuthenticator(t, newStubProvider())

	redirect, err := sa.BeginAuth(context.Background(), "github", "sid-1", portfolio.ModeSignIn)
	require.NoError(t, err)

	sa.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = sa.CompleteAuth(context.Background(), "github", "code", redirect.State, "sid-1")
	assert.ErrorIs(t, err, ErrStateExpired)
}

func TestCompleteAuthWrapsProviderFailures(t *testing.T) {
	provider := newStubProvider()
	provider.exchangeErr = &ProviderError{Provider: "github", Operation: "exchange", Code: "bad_verification_code"}
	sa := newTestAuthenticator(t, provider)

	redirect, err := sa.BeginAuth(context.Background(), "github", "sid-1", portfolio.ModeSignIn)
	require.NoError(t, err)

	_, err = sa.CompleteAuth(context.Background(), "github", "code", redirect.State, "sid-1")
	require.Error(t, err)
	assert.True(t, portfolio.HasTextCode(err, ErrTokenExchangeFailed.TextCode))

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "bad_verification_code", perr.Code)

	provider.exchangeErr = nil
	provider.userInfoErr = errors.New("rate limited")
	redirect, err = sa.BeginAuth(context.Background(), "github", "sid-1", portfolio.ModeSignIn)
	require.NoError(t, err)

	_, err = sa.CompleteAuth(context.Background(), "github", "code", redirect.State, "sid-1")
	assert.True(t, portfolio.HasTextCode(err, ErrUserInfoFailed.TextCode))
}

func TestListProviders(t *testing.T) {
	google := newStubProvider()
	google.name = "google"
	sa := newTestAuthenticator(t, google, newStubProvider())

	assert.Equal(t, []ProviderInfo{
		{Name: "github", Label: "GitHub"},
		{Name: "google", Label: "Google"},
	}, sa.ListProviders())
}
