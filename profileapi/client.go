// Package profileapi talks to the remote profile API.
package profileapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	portfolio "github.com/goliatone/go-portfolio"
	"github.com/goliatone/go-print"
)

const (
	DefaultProfilePath = "/api/profile"
	DefaultMePath      = "/api/profile/me"

	// DefaultMaxResponseBytes caps how much of a response body is read.
	DefaultMaxResponseBytes int64 = 1 << 20
)

// TextCodeResponseTooLarge marks a body over Config.MaxResponseBytes.
const TextCodeResponseTooLarge = "RESPONSE_TOO_LARGE"

// Config holds the API location.
type Config struct {
	BaseURL string
	// ProfilePath receives writes, MePath serves the caller's profile.
	ProfilePath string
	MePath      string

	MaxResponseBytes int64

	HTTPClient *http.Client
	Logger     glog.Logger
}

// Client implements portfolio.ProfileStore over HTTP.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     glog.Logger
}

var _ portfolio.ProfileStore = (*Client)(nil)

// New creates a client; BaseURL is required.
func New(cfg Config) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, errors.New("profile api base url is required", errors.CategoryBadInput).
			WithTextCode("MISSING_API_BASE_URL")
	}
	if cfg.ProfilePath == "" {
		cfg.ProfilePath = DefaultProfilePath
	}
	if cfg.MePath == "" {
		cfg.MePath = DefaultMePath
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = DefaultMaxResponseBytes
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		config:     cfg,
		httpClient: client,
		logger:     glog.Ensure(cfg.Logger),
	}, nil
}

// Fetch implements portfolio.ProfileStore. A 404 means no profile yet.
func (c *Client) Fetch(ctx context.Context, bearer string) (*portfolio.RemoteProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+c.config.MePath, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to build profile request")
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusNotFound:
		return nil, nil
	case status != http.StatusOK:
		return nil, portfolio.NewRemoteError(status, errorMessage(body))
	}

	if len(bytes.TrimSpace(body)) == 0 || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return nil, nil
	}

	var profile portfolio.RemoteProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "failed to decode profile response").
			WithTextCode(portfolio.TextCodeRemoteRejected)
	}
	if profile.Skills == nil {
		profile.Skills = []string{}
	}
	return &profile, nil
}

// Store implements portfolio.ProfileStore.
func (c *Client) Store(ctx context.Context, bearer string, profile portfolio.RemoteProfile) error {
	if profile.Skills == nil {
		profile.Skills = []string{}
	}
	payload, err := json.Marshal(profile)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to encode profile")
	}
	c.logger.Debug("profile payload", "body", print.MaybePrettyJSON(profile))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+c.config.ProfilePath, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to build profile request")
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	status, body, err := c.do(req)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return portfolio.NewRemoteError(status, errorMessage(body))
	}
	return nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, portfolio.NewNetworkError(err)
	}
	defer resp.Body.Close()

	limit := c.config.MaxResponseBytes
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return resp.StatusCode, nil, portfolio.NewNetworkError(err)
	}
	if int64(len(body)) > limit {
		return resp.StatusCode, nil, errors.New("profile api response too large", errors.CategoryExternal).
			WithTextCode(TextCodeResponseTooLarge).
			WithCode(http.StatusBadGateway).
			WithMetadata(map[string]any{"limit": limit, "status": resp.StatusCode})
	}

	c.logger.Debug("profile api response", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)
	return resp.StatusCode, body, nil
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorMessage pulls the error text out of a response body.
func errorMessage(body []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Error != "" {
			return apiErr.Error
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return ""
}
