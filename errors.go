package portfolio

import (
	"fmt"
	"net/http"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeValidation     = "VALIDATION_FAILED"
	TextCodeNotSignedIn    = "NOT_SIGNED_IN"
	TextCodeAuthRejected   = "AUTH_REJECTED"
	TextCodeRemoteRejected = "REMOTE_REJECTED"
	TextCodeNetwork        = "NETWORK_ERROR"
	TextCodeBusy           = "OPERATION_IN_PROGRESS"
	TextCodeExportFailed   = "EXPORT_FAILED"
)

const (
	MsgPasswordTooShort = "Password must be at least 6 characters long."
	MsgPasswordMismatch = "Passwords do not match."
	MsgEmailRequired    = "Email is required."
	MsgNotSignedIn      = "Please login first"
	MsgProfileSaved     = "Profile saved successfully!"
	MsgBusy             = "Another operation is still in progress"
)

// ErrNotSignedIn is returned by profile operations that need an identity.
var ErrNotSignedIn = errors.New(MsgNotSignedIn, errors.CategoryAuth).
	WithTextCode(TextCodeNotSignedIn).
	WithCode(errors.CodeUnauthorized)

// ErrBusy is returned when an operation is already in flight.
var ErrBusy = errors.New(MsgBusy, errors.CategoryConflict).
	WithTextCode(TextCodeBusy).
	WithCode(errors.CodeConflict)

// NewValidationError builds a validation failure for a single field.
func NewValidationError(field, message string) *errors.Error {
	return errors.NewValidation(message, errors.FieldError{Field: field, Message: message}).
		WithTextCode(TextCodeValidation).
		WithCode(errors.CodeBadRequest)
}

// NewAuthError surfaces the identity backend's message as is.
func NewAuthError(message string, source error) *errors.Error {
	if message == "" {
		message = "authentication failed"
	}
	err := errors.New(message, errors.CategoryAuth).
		WithTextCode(TextCodeAuthRejected).
		WithCode(errors.CodeUnauthorized)
	err.Source = source
	return err
}

// NewRemoteError reports a non success response from the profile API.
func NewRemoteError(status int, message string) *errors.Error {
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	return errors.New(message, errors.CategoryExternal).
		WithTextCode(TextCodeRemoteRejected).
		WithCode(status).
		WithMetadata(map[string]any{"status": status})
}

// NewNetworkError reports a transport level failure.
func NewNetworkError(source error) *errors.Error {
	msg := "Network error"
	if source != nil {
		msg = fmt.Sprintf("Network error: %v", source)
	}
	err := errors.New(msg, errors.CategoryExternal).
		WithTextCode(TextCodeNetwork).
		WithCode(http.StatusBadGateway)
	err.Source = source
	return err
}

// NewExportError reports a document generation fault.
func NewExportError(source error) *errors.Error {
	if source == nil {
		source = fmt.Errorf("unknown document error")
	}
	return errors.Wrap(source, errors.CategoryInternal, "failed to generate document").
		WithTextCode(TextCodeExportFailed).
		WithCode(errors.CodeInternal)
}

// HasTextCode reports whether err carries the given text code.
func HasTextCode(err error, code string) bool {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// UserMessage returns the text shown to the user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Message
	}
	return err.Error()
}

// FieldErrors maps field names to their validation messages.
func FieldErrors(err error) map[string]string {
	fields, ok := errors.GetValidationErrors(err)
	if !ok || len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Field] = f.Message
	}
	return out
}
