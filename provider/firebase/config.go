package firebase

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-logger/glog"
)

const (
	DefaultIdentityURL = "https://identitytoolkit.googleapis.com/v1"
	DefaultTokenURL    = "https://securetoken.googleapis.com/v1/token"
	DefaultJWKSURL     = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
)

// Config holds the Firebase web app settings.
type Config struct {
	APIKey            string
	ProjectID         string
	AuthDomain        string
	StorageBucket     string
	MessagingSenderID string
	AppID             string

	// IdentityURL and TokenURL override the REST endpoints.
	IdentityURL string
	TokenURL    string

	// RequestURI is sent with provider sign-ins. Defaults to the auth
	// domain, or http://localhost.
	RequestURI string

	// VerifyTokens checks ID token signatures, issuer and audience.
	VerifyTokens bool
	JWKSURL      string
	// Keyfunc replaces the JWKS lookup.
	Keyfunc jwt.Keyfunc

	HTTPClient *http.Client
	Logger     glog.Logger
}

func (c Config) withDefaults() Config {
	if c.IdentityURL == "" {
		c.IdentityURL = DefaultIdentityURL
	}
	c.IdentityURL = strings.TrimRight(c.IdentityURL, "/")
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.JWKSURL == "" {
		c.JWKSURL = DefaultJWKSURL
	}
	if c.RequestURI == "" {
		if c.AuthDomain != "" {
			c.RequestURI = "https://" + strings.TrimSuffix(c.AuthDomain, "/")
		} else {
			c.RequestURI = "http://localhost"
		}
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	c.Logger = glog.Ensure(c.Logger)
	return c
}

// Issuer is the expected iss claim for the project.
func (c Config) Issuer() string {
	return "https://securetoken.google.com/" + c.ProjectID
}
