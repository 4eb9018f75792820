package portfolio

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// SessionLocalsKey is the fiber locals key holding the request's *Session.
const SessionLocalsKey = "portfolio.session"

// ErrNoSession is returned by handlers mounted without the session middleware.
var ErrNoSession = errors.New("no session bound to request", errors.CategoryInternal).
	WithTextCode("SESSION_MISSING").
	WithCode(errors.CodeInternal)

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithSession sets the session in the given context
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, s)
}

// SessionFromContext finds the session in the context.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionCtxKey).(*Session)
	return s, ok && s != nil
}

// SessionFromFiber finds the session in the fiber locals.
func SessionFromFiber(c *fiber.Ctx) (*Session, bool) {
	s, ok := c.Locals(SessionLocalsKey).(*Session)
	return s, ok && s != nil
}

// IdentityFromContext returns the signed in identity, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return nil, false
	}
	identity := s.Identity()
	return identity, identity != nil
}
