package github

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-portfolio/social"
)

const (
	defaultAuthURL   = "https://github.com/login/oauth/authorize"
	defaultTokenURL  = "https://github.com/login/oauth/access_token"
	defaultUserURL   = "https://api.github.com/user"
	defaultEmailsURL = "https://api.github.com/user/emails"
)

// Config holds the GitHub OAuth app settings.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL   string
	TokenURL  string
	UserURL   string
	EmailsURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the scopes needed to read the account and email.
func DefaultScopes() []string {
	return []string{"read:user", "user:email"}
}

// Provider implements social.SocialProvider for GitHub.
type Provider struct {
	config     Config
	httpClient *http.Client
}

var _ social.SocialProvider = (*Provider)(nil)

// New creates a GitHub provider.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserURL == "" {
		cfg.UserURL = defaultUserURL
	}
	if cfg.EmailsURL == "" {
		cfg.EmailsURL = defaultEmailsURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Provider{config: cfg, httpClient: cfg.HTTPClient}
}

func (p *Provider) Name() string { return "github" }

func (p *Provider) FirebaseID() string { return "github.com" }

// AuthCodeURL implements social.SocialProvider.
func (p *Provider) AuthCodeURL(state string, opts ...social.AuthCodeOption) string {
	cfg := social.ApplyAuthCodeOptions(p.config.Scopes, opts...)

	params := url.Values{
		"client_id":    {p.config.ClientID},
		"redirect_uri": {p.config.CallbackURL},
		"scope":        {strings.Join(cfg.Scopes, " ")},
		"state":        {state},
		"allow_signup": {"true"},
	}
	if cfg.CodeChallenge != "" {
		method := cfg.CodeChallengeMethod
		if method == "" {
			method = "S256"
		}
		params.Set("code_challenge", cfg.CodeChallenge)
		params.Set("code_challenge_method", method)
	}

	return p.config.AuthURL + "?" + params.Encode()
}

// Exchange implements social.SocialProvider.
func (p *Provider) Exchange(ctx context.Context, code string, opts ...social.ExchangeOption) (*social.Token, error) {
	cfg := social.ApplyExchangeOptions(opts...)

	form := url.Values{
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {p.config.CallbackURL},
	}
	if cfg.CodeVerifier != "" {
		form.Set("code_verifier", cfg.CodeVerifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, providerError("exchange", 0, "", "", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var tokenResp tokenResponse
	status, err := p.do(req, "exchange", &tokenResp)
	if err != nil {
		return nil, err
	}

	// failures may still come back as 200 with an error field
	if tokenResp.Error != "" {
		return nil, providerError("exchange", status, tokenResp.Error, tokenResp.ErrorDesc, nil)
	}
	if tokenResp.AccessToken == "" {
		return nil, providerError("exchange", status, "missing_access_token", "missing access token", nil)
	}

	return &social.Token{
		AccessToken: tokenResp.AccessToken,
		TokenType:   tokenResp.TokenType,
		Scopes:      splitScopes(tokenResp.Scope),
	}, nil
}

// UserInfo implements social.SocialProvider. The primary email is read
// from the emails endpoint; the public profile email is the fallback.
func (p *Provider) UserInfo(ctx context.Context, token *social.Token) (*social.SocialProfile, error) {
	var u user
	if err := p.get(ctx, p.config.UserURL, token.AccessToken, "user_info", &u); err != nil {
		return nil, err
	}

	email, verified := u.Email, false
	var emails []emailEntry
	if err := p.get(ctx, p.config.EmailsURL, token.AccessToken, "emails", &emails); err == nil {
		if primary, ok := primaryEmail(emails); ok {
			email, verified = primary.Email, primary.Verified
		}
	}

	return u.profile(email, verified), nil
}

func (p *Provider) get(ctx context.Context, endpoint, accessToken, operation string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return providerError(operation, 0, "", "", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	_, err = p.do(req, operation, out)
	return err
}

func (p *Provider) do(req *http.Request, operation string, out any) (int, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, providerError(operation, 0, "", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, providerError(operation, resp.StatusCode, "", "", err)
	}

	if resp.StatusCode != http.StatusOK {
		code, desc := apiError(body)
		return resp.StatusCode, providerError(operation, resp.StatusCode, code, desc, nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, providerError(operation, resp.StatusCode, "invalid_response", "failed to decode response", err)
	}
	return resp.StatusCode, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

func apiError(body []byte) (string, string) {
	var payload struct {
		Error     string `json:"error"`
		ErrorDesc string `json:"error_description"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" || payload.ErrorDesc != "" {
			return payload.Error, payload.ErrorDesc
		}
		if payload.Message != "" {
			return "", payload.Message
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "github request failed"
	}
	return "", msg
}

// splitScopes reads GitHub's comma separated scope list.
func splitScopes(scopes string) []string {
	var out []string
	for _, part := range strings.Split(scopes, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func providerError(operation string, status int, code, description string, err error) *social.ProviderError {
	return &social.ProviderError{
		Provider:    "github",
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
	}
}
