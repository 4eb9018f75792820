package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	portfolio "github.com/goliatone/go-portfolio"
	"github.com/goliatone/go-print"
)

const defaultExpiresIn = time.Hour

// Provider implements portfolio.SessionProvider.
type Provider struct {
	config     Config
	httpClient *http.Client
	logger     glog.Logger
	validator  *TokenValidator
	jwks       *keyfunc.JWKS
	now        func() time.Time
}

var _ portfolio.SessionProvider = (*Provider)(nil)

// New validates cfg; signing keys are fetched by Init.
func New(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("firebase api key is required", errors.CategoryBadInput).
			WithTextCode("MISSING_API_KEY")
	}
	if cfg.VerifyTokens && cfg.ProjectID == "" {
		return nil, errors.New("firebase project id is required to verify tokens", errors.CategoryBadInput).
			WithTextCode("MISSING_PROJECT_ID")
	}

	cfg = cfg.withDefaults()
	p := &Provider{
		config:     cfg,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		now:        time.Now,
	}
	if cfg.VerifyTokens && cfg.Keyfunc != nil {
		p.validator = NewTokenValidator(cfg.ProjectID, cfg.Keyfunc)
	}
	return p, nil
}

// Init loads the signing keys when verification is on.
func (p *Provider) Init(ctx context.Context) error {
	if !p.config.VerifyTokens || p.validator != nil {
		return nil
	}

	jwks, err := keyfunc.Get(p.config.JWKSURL, keyfunc.Options{
		Client:            p.httpClient,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			p.logger.Warn("firebase jwks refresh failed", "error", err)
		},
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "failed to load firebase signing keys")
	}

	p.jwks = jwks
	p.validator = NewTokenValidator(p.config.ProjectID, jwks.Keyfunc)
	p.logger.Info("firebase signing keys loaded", "url", p.config.JWKSURL)
	return nil
}

// Close stops the background key refresh.
func (p *Provider) Close() error {
	if p.jwks != nil {
		p.jwks.EndBackground()
	}
	return nil
}

// SignIn implements portfolio.SessionProvider.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*portfolio.Identity, error) {
	var resp authResponse
	err := p.post(ctx, "accounts:signInWithPassword", passwordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return p.identity(resp, "password")
}

// SignUp implements portfolio.SessionProvider. The username becomes the
// account's display name; failing to set it does not fail the sign-up.
func (p *Provider) SignUp(ctx context.Context, username, email, password string) (*portfolio.Identity, error) {
	var resp authResponse
	err := p.post(ctx, "accounts:signUp", passwordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if username = strings.TrimSpace(username); username != "" {
		var upd authResponse
		err := p.post(ctx, "accounts:update", updateRequest{
			IDToken:           resp.IDToken,
			DisplayName:       username,
			ReturnSecureToken: true,
		}, &upd)
		if err != nil {
			p.logger.Warn("failed to set display name", "uid", resp.LocalID, "error", err)
		} else {
			resp.DisplayName = username
			if upd.IDToken != "" {
				resp.IDToken = upd.IDToken
				resp.RefreshToken = upd.RefreshToken
				resp.ExpiresIn = upd.ExpiresIn
			}
		}
	}

	return p.identity(resp, "password")
}

// SignInWithProvider implements portfolio.SessionProvider.
func (p *Provider) SignInWithProvider(ctx context.Context, assertion portfolio.ProviderAssertion) (*portfolio.Identity, error) {
	if assertion.ProviderID == "" || (assertion.IDToken == "" && assertion.AccessToken == "") {
		return nil, portfolio.NewAuthError("MISSING_PROVIDER_CREDENTIAL", nil)
	}

	postBody := url.Values{"providerId": {assertion.ProviderID}}
	if assertion.IDToken != "" {
		postBody.Set("id_token", assertion.IDToken)
	}
	if assertion.AccessToken != "" {
		postBody.Set("access_token", assertion.AccessToken)
	}

	requestURI := assertion.RequestURI
	if requestURI == "" {
		requestURI = p.config.RequestURI
	}

	var resp idpResponse
	err := p.post(ctx, "accounts:signInWithIdp", idpRequest{
		PostBody:            postBody.Encode(),
		RequestURI:          requestURI,
		ReturnSecureToken:   true,
		ReturnIdpCredential: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.ErrorMessage != "" {
		return nil, portfolio.NewAuthError(resp.ErrorMessage, nil).
			WithMetadata(map[string]any{"provider": assertion.ProviderID})
	}

	if resp.DisplayName == "" {
		resp.DisplayName = firstNonEmpty(resp.FullName, assertion.Name, assertion.Username)
	}
	if resp.Email == "" {
		resp.Email = assertion.Email
	}
	return p.identity(resp.authResponse, assertion.ProviderID)
}

// Refresh implements portfolio.TokenRefresher.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (portfolio.Token, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	endpoint := p.config.TokenURL + "?key=" + url.QueryEscape(p.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return portfolio.Token{}, errors.Wrap(err, errors.CategoryInternal, "failed to build refresh request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp refreshResponse
	if err := p.do(req, &resp); err != nil {
		return portfolio.Token{}, err
	}
	if resp.IDToken == "" {
		return portfolio.Token{}, portfolio.NewAuthError("INVALID_REFRESH_RESPONSE", nil)
	}

	return portfolio.Token{
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    p.expiresAt(resp.ExpiresIn),
	}, nil
}

func (p *Provider) identity(resp authResponse, provider string) (*portfolio.Identity, error) {
	if resp.IDToken == "" {
		return nil, portfolio.NewAuthError("MISSING_ID_TOKEN", nil)
	}

	claims, err := p.claims(resp.IDToken)
	if err != nil {
		return nil, portfolio.NewAuthError(portfolio.UserMessage(err), err)
	}

	identity := &portfolio.Identity{
		ID:          resp.LocalID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		Provider:    provider,
		Token: portfolio.Token{
			IDToken:      resp.IDToken,
			RefreshToken: resp.RefreshToken,
			ExpiresAt:    p.expiresAt(resp.ExpiresIn),
		},
	}

	if claims != nil {
		if p.validator != nil && identity.ID != "" && claims.Subject != identity.ID {
			return nil, portfolio.NewAuthError("ID_TOKEN_SUBJECT_MISMATCH", nil)
		}
		if identity.ID == "" {
			identity.ID = firstNonEmpty(claims.Subject, claims.UserID)
		}
		if identity.Email == "" {
			identity.Email = claims.Email
		}
		if identity.DisplayName == "" {
			identity.DisplayName = claims.Name
		}
	}

	if identity.ID == "" {
		return nil, portfolio.NewAuthError("MISSING_LOCAL_ID", nil)
	}
	return identity, nil
}

// claims verifies the token when a validator is configured. Otherwise
// claims are read best effort and unreadable tokens yield nil.
func (p *Provider) claims(token string) (*Claims, error) {
	if p.validator != nil {
		return p.validator.Validate(token)
	}
	claims, err := ParseUnverified(token)
	if err != nil {
		p.logger.Debug("id token claims unreadable", "error", err)
		return nil, nil
	}
	return claims, nil
}

func (p *Provider) expiresAt(expiresIn string) time.Time {
	d := defaultExpiresIn
	if secs, err := strconv.Atoi(strings.TrimSpace(expiresIn)); err == nil && secs > 0 {
		d = time.Duration(secs) * time.Second
	}
	return p.now().Add(d)
}

func (p *Provider) post(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to encode firebase request")
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", p.config.IdentityURL, method, url.QueryEscape(p.config.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to build firebase request")
	}
	req.Header.Set("Content-Type", "application/json")

	return p.do(req, out)
}

func (p *Provider) do(req *http.Request, out any) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return portfolio.NewNetworkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return portfolio.NewNetworkError(err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := parseAPIError(resp.StatusCode, body)
		p.logger.Debug("firebase request rejected", "path", req.URL.Path, "status", resp.StatusCode, "body", print.MaybePrettyJSON(apiErr))
		return portfolio.NewAuthError(apiErr.Message, apiErr).
			WithMetadata(map[string]any{"status": apiErr.Status})
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "failed to decode firebase response")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
