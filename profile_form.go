package portfolio

import (
	"context"
	"sync"

	"github.com/goliatone/go-logger/glog"
)

// Principal exposes the signed in identity to the profile form.
type Principal interface {
	Identity() *Identity
	BearerToken(ctx context.Context) (string, error)
}

// ProfileForm owns the profile draft and syncs it with the remote API.
type ProfileForm struct {
	principal Principal
	saver     *SaveProfileHandler
	loader    *LoadProfileHandler
	logger    Logger

	mu     sync.Mutex
	draft  ProfileDraft
	status string
	err    error
	busy   bool
	loaded bool
}

// ProfileFormOption configures a ProfileForm.
type ProfileFormOption func(*ProfileForm)

// WithProfileLogger sets the logger.
func WithProfileLogger(logger Logger) ProfileFormOption {
	return func(f *ProfileForm) {
		f.logger = glog.Ensure(logger)
	}
}

// WithProfileDraft seeds the draft.
func WithProfileDraft(draft ProfileDraft) ProfileFormOption {
	return func(f *ProfileForm) {
		f.draft = draft
	}
}

// WithProfileLoaded marks a restored draft as already synced, so
// LoadOnce leaves it alone.
func WithProfileLoaded(loaded bool) ProfileFormOption {
	return func(f *ProfileForm) {
		f.loaded = loaded
	}
}

// NewProfileForm returns a form with an empty draft.
func NewProfileForm(principal Principal, store ProfileStore, opts ...ProfileFormOption) *ProfileForm {
	f := &ProfileForm{
		principal: principal,
		logger:    glog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	f.saver = NewSaveProfileHandler(store, f.logger)
	f.loader = NewLoadProfileHandler(store, f.logger)
	return f
}

// Draft returns a copy of the current draft.
func (f *ProfileForm) Draft() ProfileDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Status is the last success message.
func (f *ProfileForm) Status() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Err is the last failure, if any.
func (f *ProfileForm) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *ProfileForm) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// Loaded reports whether the draft already holds the remote profile or
// edits made on top of it.
func (f *ProfileForm) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

// Edit sets one draft field.
func (f *ProfileForm) Edit(field, value string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = true
	return f.draft.Set(field, value)
}

// Replace swaps the whole draft, as a full form post does.
func (f *ProfileForm) Replace(draft ProfileDraft) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = true
	f.draft = draft
}

// Reset clears the draft and any reported state.
func (f *ProfileForm) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = ProfileDraft{}
	f.status = ""
	f.err = nil
	f.loaded = false
}

// LoadOnce runs LoadExisting unless the draft was already loaded or
// edited for the current identity. A failed load is retried next time.
func (f *ProfileForm) LoadOnce(ctx context.Context) error {
	if f.Loaded() {
		return nil
	}
	return f.LoadExisting(ctx)
}

// LoadExisting fills the draft from the remote profile of the signed in
// identity. Without an identity it does nothing. A missing profile keeps
// the draft; failures are recorded and returned.
func (f *ProfileForm) LoadExisting(ctx context.Context) error {
	if f.principal == nil || f.principal.Identity() == nil {
		return nil
	}
	if !f.begin() {
		return ErrBusy
	}

	bearer, err := f.principal.BearerToken(ctx)
	if err != nil {
		return f.finish(err, "")
	}

	profile, err := f.loader.Query(ctx, LoadProfileMessage{Bearer: bearer})
	if err != nil {
		return f.finish(err, "")
	}

	f.mu.Lock()
	if profile != nil {
		profile.ApplyTo(&f.draft)
	}
	f.loaded = true
	f.mu.Unlock()
	return f.finish(nil, "")
}

// Save sends the draft to the remote API. The draft is left untouched
// whatever the outcome.
func (f *ProfileForm) Save(ctx context.Context) error {
	if f.principal == nil || f.principal.Identity() == nil {
		f.mu.Lock()
		f.status = ""
		f.err = ErrNotSignedIn
		f.mu.Unlock()
		return ErrNotSignedIn
	}
	if !f.begin() {
		return ErrBusy
	}

	bearer, err := f.principal.BearerToken(ctx)
	if err != nil {
		return f.finish(err, "")
	}

	msg := SaveProfileMessage{
		Bearer:  bearer,
		Profile: f.Draft().ToRemote(),
	}
	if err := f.saver.Execute(ctx, msg); err != nil {
		return f.finish(err, "")
	}
	return f.finish(nil, MsgProfileSaved)
}

func (f *ProfileForm) begin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return false
	}
	f.busy = true
	f.status = ""
	f.err = nil
	return true
}

func (f *ProfileForm) finish(err error, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	f.err = err
	f.status = status
	return err
}
