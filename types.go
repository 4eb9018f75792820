package portfolio

import (
	"context"
	"time"

	"github.com/goliatone/go-logger/glog"
)

// Logger is the structured logger used by every component.
type Logger = glog.Logger

// SessionProvider wraps the identity backend.
type SessionProvider interface {
	TokenRefresher
	// SignIn authenticates an existing account with email and password.
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	// SignUp creates an account and records username as its display name.
	SignUp(ctx context.Context, username, email, password string) (*Identity, error)
	// SignInWithProvider exchanges a third-party credential for an identity.
	SignInWithProvider(ctx context.Context, assertion ProviderAssertion) (*Identity, error)
}

// TokenRefresher mints a fresh bearer credential from a refresh token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (Token, error)
}

// ProfileStore is the remote profile API.
type ProfileStore interface {
	// Fetch returns the profile owned by the bearer, or nil when none exists.
	Fetch(ctx context.Context, bearer string) (*RemoteProfile, error)
	// Store creates or replaces the profile owned by the bearer.
	Store(ctx context.Context, bearer string, profile RemoteProfile) error
}

// SessionStore persists browser session records.
type SessionStore interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Set(ctx context.Context, id string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// Prompter asks the user to confirm an action.
type Prompter interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, message string) (bool, error)

// Confirm implements Prompter.
func (f PrompterFunc) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// Answer returns a Prompter with a fixed decision.
func Answer(decision bool) Prompter {
	return PrompterFunc(func(context.Context, string) (bool, error) {
		return decision, nil
	})
}

// DocumentExporter renders a profile draft into a downloadable document.
type DocumentExporter interface {
	Export(ctx context.Context, draft ProfileDraft, prompt Prompter) (*Artifact, error)
}

// Artifact is a generated file offered for download.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Navigator moves the user to another view.
type Navigator func(path string)
