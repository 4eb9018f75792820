package social

import (
	"context"
	"sort"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	portfolio "github.com/goliatone/go-portfolio"
)

// SocialAuthenticator runs the consent round trip and turns the result
// into a credential the identity backend accepts.
type SocialAuthenticator struct {
	providers    map[string]SocialProvider
	stateManager StateManager
	logger       glog.Logger
	now          func() time.Time
	config       SocialAuthConfig
}

// SocialAuthConfig configures the authenticator.
type SocialAuthConfig struct {
	// StateSecret seeds the state keys when no StateManager is given.
	StateSecret []byte
	StateTTL    time.Duration
	// RequestURI is forwarded to the identity backend with each assertion.
	RequestURI string
}

// SocialAuthOption configures the authenticator.
type SocialAuthOption func(*SocialAuthenticator)

// WithProvider registers a provider under its name.
func WithProvider(provider SocialProvider) SocialAuthOption {
	return func(sa *SocialAuthenticator) {
		if provider != nil {
			sa.providers[provider.Name()] = provider
		}
	}
}

// WithStateManager replaces the secret derived state manager.
func WithStateManager(sm StateManager) SocialAuthOption {
	return func(sa *SocialAuthenticator) {
		sa.stateManager = sm
	}
}

// WithLogger sets the logger.
func WithLogger(logger glog.Logger) SocialAuthOption {
	return func(sa *SocialAuthenticator) {
		sa.logger = glog.Ensure(logger)
	}
}

// NewSocialAuthenticator needs either a StateSecret or WithStateManager.
func NewSocialAuthenticator(config SocialAuthConfig, opts ...SocialAuthOption) (*SocialAuthenticator, error) {
	if config.StateTTL == 0 {
		config.StateTTL = DefaultStateTTL
	}

	sa := &SocialAuthenticator{
		providers: make(map[string]SocialProvider),
		logger:    glog.Nop(),
		now:       time.Now,
		config:    config,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sa)
		}
	}

	if sa.stateManager == nil {
		sm, err := NewStateManagerFromSecret(config.StateSecret, config.StateTTL)
		if err != nil {
			return nil, err
		}
		sa.stateManager = sm
	}
	return sa, nil
}

// AuthRedirect is where to send the browser to start the flow.
type AuthRedirect struct {
	URL      string
	State    string
	Provider string
}

// BeginAuth builds the consent URL for provider, bound to sessionID.
func (sa *SocialAuthenticator) BeginAuth(ctx context.Context, providerName, sessionID string, mode portfolio.Mode) (*AuthRedirect, error) {
	provider, ok := sa.providers[providerName]
	if !ok {
		return nil, ErrProviderNotFound.Clone().WithMetadata(map[string]any{"provider": providerName})
	}

	codeVerifier, err := generateCodeVerifier()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to generate code verifier")
	}

	now := sa.now()
	stateToken, err := sa.stateManager.Encode(&OAuthState{
		Nonce:        generateNonce(),
		Provider:     providerName,
		SessionID:    sessionID,
		CodeVerifier: codeVerifier,
		Mode:         string(mode),
		IssuedAt:     now.Unix(),
		ExpiresAt:    now.Add(sa.config.StateTTL).Unix(),
	})
	if err != nil {
		return nil, err
	}

	sa.logger.WithContext(ctx).Debug("social auth started", "provider", providerName, "sid", sessionID)

	return &AuthRedirect{
		URL:      provider.AuthCodeURL(stateToken, WithPKCE(computeCodeChallenge(codeVerifier), "S256")),
		State:    stateToken,
		Provider: providerName,
	}, nil
}

// AuthResult is a completed consent round trip.
type AuthResult struct {
	Assertion portfolio.ProviderAssertion
	Profile   *SocialProfile
	Mode      portfolio.Mode
}

// CompleteAuth checks state, exchanges code and fetches the account.
func (sa *SocialAuthenticator) CompleteAuth(ctx context.Context, providerName, code, stateToken, sessionID string) (*AuthResult, error) {
	state, err := sa.stateManager.Decode(stateToken)
	if err != nil {
		return nil, err
	}
	if state.Provider != providerName {
		return nil, ErrInvalidState.Clone().WithMetadata(map[string]any{"cause": "provider mismatch"})
	}
	if state.SessionID != sessionID {
		return nil, ErrSessionMismatch
	}
	if sa.now().Unix() > state.ExpiresAt {
		return nil, ErrStateExpired
	}

	provider, ok := sa.providers[providerName]
	if !ok {
		return nil, ErrProviderNotFound.Clone().WithMetadata(map[string]any{"provider": providerName})
	}

	token, err := provider.Exchange(ctx, code, WithCodeVerifier(state.CodeVerifier))
	if err != nil {
		return nil, wrapProviderError(ErrTokenExchangeFailed, providerName, "exchange", err)
	}

	profile, err := provider.UserInfo(ctx, token)
	if err != nil {
		return nil, wrapProviderError(ErrUserInfoFailed, providerName, "user_info", err)
	}

	sa.logger.WithContext(ctx).Info("social auth completed", "provider", providerName, "provider_uid", profile.ProviderUserID)

	return &AuthResult{
		Assertion: portfolio.ProviderAssertion{
			ProviderID:  provider.FirebaseID(),
			IDToken:     token.IDToken,
			AccessToken: token.AccessToken,
			RequestURI:  sa.config.RequestURI,
			Name:        profile.Name,
			Email:       profile.Email,
			Username:    profile.Username,
			ProfileURL:  profile.ProfileURL,
		},
		Profile: profile,
		Mode:    portfolio.Mode(state.Mode),
	}, nil
}

// ProviderInfo describes a registered provider.
type ProviderInfo struct {
	Name  string
	Label string
}

// ListProviders returns the registered providers sorted by name.
func (sa *SocialAuthenticator) ListProviders() []ProviderInfo {
	out := make([]ProviderInfo, 0, len(sa.providers))
	for name := range sa.providers {
		out = append(out, ProviderInfo{Name: name, Label: label(name)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func label(name string) string {
	switch name {
	case "github":
		return "GitHub"
	case "google":
		return "Google"
	}
	return name
}
