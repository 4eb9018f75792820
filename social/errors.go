package social

import "github.com/goliatone/go-errors"

const (
	TextCodeProviderNotFound  = "social_provider_not_found"
	TextCodeInvalidState      = "social_invalid_state"
	TextCodeStateExpired      = "social_state_expired"
	TextCodeSessionMismatch   = "social_session_mismatch"
	TextCodeTokenExchangeFail = "social_token_exchange_failed"
	TextCodeUserInfoFail      = "social_user_info_failed"
	TextCodeConsentDenied     = "social_consent_denied"
)

// ErrProviderNotFound is returned for an unknown provider name.
var ErrProviderNotFound = errors.New("social provider not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProviderNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidState is returned when the state is unreadable or tampered.
var ErrInvalidState = errors.New("invalid oauth state", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidState).
	WithCode(errors.CodeBadRequest)

// ErrStateExpired is returned when the consent round trip took too long.
var ErrStateExpired = errors.New("oauth state expired", errors.CategoryBadInput).
	WithTextCode(TextCodeStateExpired).
	WithCode(errors.CodeBadRequest)

// ErrSessionMismatch is returned when a callback lands in a different
// browser session than the one that started the flow.
var ErrSessionMismatch = errors.New("oauth flow started in another session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionMismatch).
	WithCode(errors.CodeForbidden)

// ErrTokenExchangeFailed is returned when the code exchange fails.
var ErrTokenExchangeFailed = errors.New("token exchange failed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExchangeFail).
	WithCode(errors.CodeUnauthorized)

// ErrUserInfoFailed is returned when the account lookup fails.
var ErrUserInfoFailed = errors.New("failed to fetch user info", errors.CategoryAuth).
	WithTextCode(TextCodeUserInfoFail).
	WithCode(errors.CodeUnauthorized)

// ErrConsentDenied is returned when the user cancels on the provider.
var ErrConsentDenied = errors.New("sign in was cancelled", errors.CategoryAuth).
	WithTextCode(TextCodeConsentDenied).
	WithCode(errors.CodeUnauthorized)
