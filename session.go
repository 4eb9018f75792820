package portfolio

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-portfolio/sessionstore"
	"github.com/google/uuid"
)

// DefaultSessionTTL bounds how long an idle browser session is kept.
const DefaultSessionTTL = 24 * time.Hour

// ErrNotInitialized is returned before SessionContext.Init succeeds.
var ErrNotInitialized = errors.New("session context not initialized", errors.CategoryInternal).
	WithTextCode("SESSION_CONTEXT_NOT_READY").
	WithCode(errors.CodeInternal)

type initializer interface {
	Init(ctx context.Context) error
}

// SessionContext is the process wide owner of browser sessions and the
// identity backend they share.
type SessionContext struct {
	provider SessionProvider
	profiles ProfileStore
	store    SessionStore
	ttl      time.Duration
	logger   Logger
	now      func() time.Time

	mu        sync.Mutex
	live      map[string]*Session
	lastSweep time.Time
	ready     bool
}

// SessionContextOption configures a SessionContext.
type SessionContextOption func(*SessionContext)

// WithSessionStore sets the backing store. Defaults to memory.
func WithSessionStore(store SessionStore) SessionContextOption {
	return func(c *SessionContext) {
		if store != nil {
			c.store = store
		}
	}
}

// WithSessionTTL sets the idle lifetime of a session.
func WithSessionTTL(ttl time.Duration) SessionContextOption {
	return func(c *SessionContext) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithSessionLogger sets the logger shared with the forms.
func WithSessionLogger(logger Logger) SessionContextOption {
	return func(c *SessionContext) {
		c.logger = glog.Ensure(logger)
	}
}

// NewSessionContext wires the identity backend and profile API.
func NewSessionContext(provider SessionProvider, profiles ProfileStore, opts ...SessionContextOption) *SessionContext {
	c := &SessionContext{
		provider: provider,
		profiles: profiles,
		ttl:      DefaultSessionTTL,
		logger:   glog.Nop(),
		now:      time.Now,
		live:     make(map[string]*Session),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.store == nil {
		c.store = sessionstore.NewMemory()
	}
	return c
}

// Init bootstraps the store and the identity backend.
func (c *SessionContext) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}

	if err := c.store.Ping(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "session store unavailable")
	}
	if bootstrap, ok := c.provider.(initializer); ok {
		if err := bootstrap.Init(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryExternal, "identity provider bootstrap failed")
		}
	}

	c.ready = true
	c.logger.Info("session context ready", "ttl", c.ttl.String())
	return nil
}

// Close releases the store and identity backend.
func (c *SessionContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return nil
	}
	c.ready = false
	c.live = make(map[string]*Session)

	var errs []error
	if closer, ok := c.provider.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	errs = append(errs, c.store.Close())
	return errors.Join(errs...)
}

// Session returns the session for id, creating a fresh one when id is
// empty or unknown.
func (c *SessionContext) Session(ctx context.Context, id string) (*Session, error) {
	c.mu.Lock()
	if !c.ready {
		c.mu.Unlock()
		return nil, ErrNotInitialized
	}
	c.sweep()
	if s, ok := c.live[id]; ok && id != "" {
		s.touch(c.now())
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	var rec sessionRecord
	if id != "" {
		data, err := c.store.Get(ctx, id)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &rec); err != nil {
				c.logger.Warn("discarding unreadable session", "sid", id, "error", err)
				id = ""
				rec = sessionRecord{}
			}
		case errors.IsNotFound(err):
			id = ""
		default:
			return nil, errors.Wrap(err, errors.CategoryExternal, "failed to load session")
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	s := c.build(id, rec)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.live[id]; ok {
		return existing, nil
	}
	c.live[id] = s
	return s, nil
}

// Save persists the session's identity and drafts.
func (c *SessionContext) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s.record())
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to encode session")
	}
	if err := c.store.Set(ctx, s.ID, data, c.ttl); err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "failed to save session")
	}
	return nil
}

// SignOut drops the identity and both drafts.
func (c *SessionContext) SignOut(ctx context.Context, s *Session) error {
	s.mu.Lock()
	uid := ""
	if s.identity != nil {
		uid = s.identity.ID
	}
	s.identity = nil
	s.mu.Unlock()

	s.Credentials.ToggleToSignIn()
	s.Profile.Reset()

	c.logger.Info("user signed out", "sid", s.ID, "uid", uid)
	return c.Save(ctx, s)
}

func (c *SessionContext) build(id string, rec sessionRecord) *Session {
	s := &Session{
		ID:       id,
		context:  c,
		identity: rec.Identity,
		seen:     c.now(),
	}
	s.Credentials = NewCredentialForm(c.provider,
		WithMode(rec.Mode),
		WithCredentialDraft(rec.Credentials),
		WithNavigator(s.navigate),
		OnSignedIn(s.setIdentity),
		WithCredentialLogger(c.logger),
	)
	s.Profile = NewProfileForm(s, c.profiles,
		WithProfileDraft(rec.Profile),
		WithProfileLoaded(rec.Loaded),
		WithProfileLogger(c.logger),
	)
	return s
}

// sweep forgets idle sessions; their records stay in the store.
// Callers hold c.mu.
func (c *SessionContext) sweep() {
	now := c.now()
	if now.Sub(c.lastSweep) < time.Minute {
		return
	}
	c.lastSweep = now
	for id, s := range c.live {
		if s.idle(now, c.ttl) {
			delete(c.live, id)
		}
	}
}

type sessionRecord struct {
	Identity    *Identity       `json:"identity,omitempty"`
	Mode        Mode            `json:"mode,omitempty"`
	Credentials CredentialDraft `json:"credentials"`
	Profile     ProfileDraft    `json:"profile"`
	Loaded      bool            `json:"profile_loaded,omitempty"`
}

// Session is one browser's state: its identity and both form controllers.
type Session struct {
	ID          string
	Credentials *CredentialForm
	Profile     *ProfileForm

	context  *SessionContext
	mu       sync.Mutex
	identity *Identity
	redirect string
	seen     time.Time
}

// Identity returns a copy of the signed in identity, or nil.
func (s *Session) Identity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// SignedIn reports whether an identity is present.
func (s *Session) SignedIn() bool {
	return s.Identity() != nil
}

// BearerToken returns a valid ID token for the identity, persisting the
// session when the token had to be refreshed.
func (s *Session) BearerToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.identity == nil {
		s.mu.Unlock()
		return "", ErrNotSignedIn
	}
	identity := *s.identity
	s.mu.Unlock()

	before := identity.Token.IDToken
	token, err := identity.BearerToken(ctx, s.context.provider)
	if err != nil {
		return "", err
	}

	if token != before {
		s.mu.Lock()
		if s.identity != nil && s.identity.ID == identity.ID {
			s.identity.Token = identity.Token
		}
		s.mu.Unlock()

		if err := s.context.Save(ctx, s); err != nil {
			s.context.logger.Warn("failed to persist refreshed token", "sid", s.ID, "error", err)
		}
	}
	return token, nil
}

// Save persists the session.
func (s *Session) Save(ctx context.Context) error {
	return s.context.Save(ctx, s)
}

// TakeRedirect returns and clears the pending navigation target.
func (s *Session) TakeRedirect() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.redirect
	s.redirect = ""
	return path
}

func (s *Session) navigate(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirect = path
}

func (s *Session) setIdentity(identity *Identity) {
	s.mu.Lock()
	changed := s.identity == nil || s.identity.ID != identity.ID
	s.identity = identity
	s.mu.Unlock()

	if changed {
		s.Profile.Reset()
	}
}

func (s *Session) record() sessionRecord {
	s.mu.Lock()
	var identity *Identity
	if s.identity != nil {
		cp := *s.identity
		identity = &cp
	}
	s.mu.Unlock()
	return sessionRecord{
		Identity:    identity,
		Mode:        s.Credentials.Mode(),
		Credentials: s.Credentials.Draft(),
		Profile:     s.Profile.Draft(),
		Loaded:      s.Profile.Loaded(),
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = now
}

func (s *Session) idle(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.seen) > ttl && !s.Credentials.Busy() && !s.Profile.Busy()
}
