package portfolio

import (
	"context"
	"sync"

	"github.com/goliatone/go-logger/glog"
)

// ProfilePath is where users land after authenticating.
const ProfilePath = "/profile"

// CredentialForm drives the sign-in and sign-up forms. One operation may
// run at a time; a second one is rejected with ErrBusy.
type CredentialForm struct {
	provider   SessionProvider
	navigate   Navigator
	onSignedIn func(*Identity)
	logger     Logger

	mu    sync.Mutex
	mode  Mode
	draft CredentialDraft
	err   error
	busy  bool
}

// CredentialFormOption configures a CredentialForm.
type CredentialFormOption func(*CredentialForm)

// WithNavigator sets the function called after a successful sign-in.
func WithNavigator(nav Navigator) CredentialFormOption {
	return func(f *CredentialForm) {
		f.navigate = nav
	}
}

// OnSignedIn registers a callback receiving each new identity.
func OnSignedIn(fn func(*Identity)) CredentialFormOption {
	return func(f *CredentialForm) {
		f.onSignedIn = fn
	}
}

// WithCredentialLogger sets the logger.
func WithCredentialLogger(logger Logger) CredentialFormOption {
	return func(f *CredentialForm) {
		f.logger = glog.Ensure(logger)
	}
}

// WithMode sets the initial mode.
func WithMode(mode Mode) CredentialFormOption {
	return func(f *CredentialForm) {
		if mode == ModeSignUp {
			f.mode = ModeSignUp
		}
	}
}

// WithCredentialDraft restores previously typed values.
func WithCredentialDraft(draft CredentialDraft) CredentialFormOption {
	return func(f *CredentialForm) {
		f.draft = draft
	}
}

// NewCredentialForm returns a form in sign-in mode.
func NewCredentialForm(provider SessionProvider, opts ...CredentialFormOption) *CredentialForm {
	f := &CredentialForm{
		provider: provider,
		mode:     ModeSignIn,
		logger:   glog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

func (f *CredentialForm) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *CredentialForm) Draft() CredentialDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

func (f *CredentialForm) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *CredentialForm) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// ToggleToSignUp switches to sign-up, clearing the draft and error.
func (f *CredentialForm) ToggleToSignUp() { f.switchMode(ModeSignUp) }

// ToggleToSignIn switches to sign-in, clearing the draft and error.
func (f *CredentialForm) ToggleToSignIn() { f.switchMode(ModeSignIn) }

func (f *CredentialForm) switchMode(mode Mode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = mode
	f.draft = CredentialDraft{}
	f.err = nil
}

// SubmitSignIn validates the password length and signs in.
func (f *CredentialForm) SubmitSignIn(ctx context.Context, email, password string) error {
	payload := SignInPayload{Email: email, Password: password}
	err := f.prepare(CredentialDraft{Email: email, Password: password}, payload.Validate)
	if err != nil {
		return err
	}

	identity, err := f.provider.SignIn(ctx, email, password)
	return f.complete(ctx, "password", identity, err)
}

// SubmitSignUp validates the draft and creates an account. Success
// leaves the form in sign-in mode.
func (f *CredentialForm) SubmitSignUp(ctx context.Context, username, email, password, confirm string) error {
	payload := SignUpPayload{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
	}
	draft := CredentialDraft{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
	}
	if err := f.prepare(draft, payload.Validate); err != nil {
		return err
	}

	identity, err := f.provider.SignUp(ctx, username, email, password)
	return f.complete(ctx, "signup", identity, err)
}

// ContinueWithProvider signs in with a third-party credential. It works
// in both modes.
func (f *CredentialForm) ContinueWithProvider(ctx context.Context, assertion ProviderAssertion) error {
	if err := f.prepare(f.Draft(), nil); err != nil {
		return err
	}

	identity, err := f.provider.SignInWithProvider(ctx, assertion)
	return f.complete(ctx, assertion.ProviderID, identity, err)
}

// Reject records a failure raised outside the form, such as a cancelled
// provider consent page. It is ignored while an operation runs.
func (f *CredentialForm) Reject(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy || err == nil {
		return
	}
	f.err = err
}

// prepare records the typed values, validates them and marks the form
// busy. A validation failure only changes the draft and error.
func (f *CredentialForm) prepare(draft CredentialDraft, validate func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.busy {
		return ErrBusy
	}

	f.draft = draft
	if validate != nil {
		if err := validate(); err != nil {
			f.err = err
			return err
		}
	}

	f.err = nil
	f.busy = true
	return nil
}

func (f *CredentialForm) complete(ctx context.Context, method string, identity *Identity, err error) error {
	if err == nil && identity == nil {
		err = NewAuthError("identity provider returned no identity", nil)
	}

	f.mu.Lock()
	f.busy = false
	if err != nil {
		f.err = err
		f.mu.Unlock()
		f.logger.WithContext(ctx).Warn("authentication rejected", "method", method, "error", err)
		return err
	}

	f.draft = CredentialDraft{}
	f.err = nil
	f.mode = ModeSignIn
	onSignedIn, navigate := f.onSignedIn, f.navigate
	f.mu.Unlock()

	f.logger.WithContext(ctx).Info("user authenticated", "method", method, "uid", identity.ID)

	if onSignedIn != nil {
		onSignedIn(identity)
	}
	if navigate != nil {
		navigate(ProfilePath)
	}
	return nil
}
