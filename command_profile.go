package portfolio

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
)

const remoteCallTimeout = 10 * time.Second

type SaveProfileMessage struct {
	Bearer  string        `json:"-"`
	Profile RemoteProfile `json:"profile"`
}

func (e SaveProfileMessage) Type() string { return "profile.save" }

// SaveProfileHandler writes a profile to the remote API.
type SaveProfileHandler struct {
	store  ProfileStore
	logger Logger
}

func NewSaveProfileHandler(store ProfileStore, logger Logger) *SaveProfileHandler {
	return &SaveProfileHandler{store: store, logger: glog.Ensure(logger)}
}

func (h *SaveProfileHandler) Execute(ctx context.Context, event SaveProfileMessage) error {
	select {
	case <-ctx.Done():
		return errors.Wrap(
			ctx.Err(),
			errors.CategoryOperation,
			"context cancelled during profile save",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SaveProfileHandler) execute(ctx context.Context, event SaveProfileMessage) error {
	ctx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
	defer cancel()

	if err := h.store.Store(ctx, event.Bearer, event.Profile); err != nil {
		h.logger.Warn("profile save failed", "error", err)
		return asRemoteFailure(err, "could not save profile")
	}

	h.logger.Debug("profile saved", "skills", len(event.Profile.Skills))
	return nil
}

type LoadProfileMessage struct {
	Bearer string `json:"-"`
}

func (e LoadProfileMessage) Type() string { return "profile.load" }

// LoadProfileHandler reads the profile owned by the bearer.
type LoadProfileHandler struct {
	store  ProfileStore
	logger Logger
}

func NewLoadProfileHandler(store ProfileStore, logger Logger) *LoadProfileHandler {
	return &LoadProfileHandler{store: store, logger: glog.Ensure(logger)}
}

// Query returns nil without error when no profile exists yet.
func (h *LoadProfileHandler) Query(ctx context.Context, event LoadProfileMessage) (*RemoteProfile, error) {
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(
			ctx.Err(),
			errors.CategoryOperation,
			"context cancelled during profile load",
		)
	default:
		return h.query(ctx, event)
	}
}

func (h *LoadProfileHandler) query(ctx context.Context, event LoadProfileMessage) (*RemoteProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
	defer cancel()

	profile, err := h.store.Fetch(ctx, event.Bearer)
	if err != nil {
		h.logger.Warn("profile load failed", "error", err)
		return nil, asRemoteFailure(err, "could not load profile")
	}
	return profile, nil
}

func asRemoteFailure(err error, message string) error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}
	return errors.Wrap(err, errors.CategoryExternal, message).
		WithTextCode(TextCodeNetwork)
}
