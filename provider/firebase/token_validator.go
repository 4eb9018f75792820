package firebase

import (
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

const (
	TextCodeTokenInvalid = "ID_TOKEN_INVALID"
	TextCodeTokenExpired = "ID_TOKEN_EXPIRED"
)

// ErrTokenInvalid is returned for ID tokens failing verification.
var ErrTokenInvalid = errors.New("invalid id token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for expired ID tokens.
var ErrTokenExpired = errors.New("id token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// Claims are the Firebase ID token claims.
type Claims struct {
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	Firebase      struct {
		SignInProvider string `json:"sign_in_provider,omitempty"`
	} `json:"firebase"`
	jwt.RegisteredClaims
}

// TokenValidator verifies ID tokens issued for one project.
type TokenValidator struct {
	parser  *jwt.Parser
	keyfunc jwt.Keyfunc
}

// NewTokenValidator checks RS256 signatures with keyfunc, plus issuer,
// audience and expiry.
func NewTokenValidator(projectID string, keyfunc jwt.Keyfunc) *TokenValidator {
	cfg := Config{ProjectID: projectID}
	return &TokenValidator{
		keyfunc: keyfunc,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer()),
			jwt.WithAudience(projectID),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		),
	}
}

// Validate parses and verifies token.
func (v *TokenValidator) Validate(token string) (*Claims, error) {
	claims := &Claims{}
	if _, err := v.parser.ParseWithClaims(token, claims, v.keyfunc); err != nil {
		return nil, normalizeValidationError(err)
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid.Clone().WithMetadata(map[string]any{"cause": "missing subject"})
	}
	return claims, nil
}

// ParseUnverified reads the claims without checking the signature.
func ParseUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, normalizeValidationError(err)
	}
	return claims, nil
}

func normalizeValidationError(err error) error {
	clone := ErrTokenInvalid.Clone()
	if stderrors.Is(err, jwt.ErrTokenExpired) {
		clone = ErrTokenExpired.Clone()
	}
	clone.Source = err
	return clone.WithMetadata(map[string]any{
		"provider": "firebase",
		"cause":    err.Error(),
	})
}
