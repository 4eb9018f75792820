package portfolio

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("email", MsgEmailRequired)

	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.Equal(t, TextCodeValidation, err.TextCode)
	assert.Equal(t, map[string]string{"email": MsgEmailRequired}, FieldErrors(err))
	assert.Equal(t, MsgEmailRequired, UserMessage(err))
}

func TestNewAuthErrorKeepsBackendMessage(t *testing.T) {
	source := stderrors.New("firebase: 400 EMAIL_NOT_FOUND")
	err := NewAuthError("EMAIL_NOT_FOUND", source)

	assert.Equal(t, "EMAIL_NOT_FOUND", UserMessage(err))
	assert.True(t, errors.IsCategory(err, errors.CategoryAuth))
	assert.ErrorIs(t, err, source)

	assert.Equal(t, "authentication failed", UserMessage(NewAuthError("", nil)))
}

func TestNewRemoteError(t *testing.T) {
	err := NewRemoteError(http.StatusUnauthorized, "")

	assert.Equal(t, "request failed with status 401", UserMessage(err))
	assert.Equal(t, http.StatusUnauthorized, err.Code)
	assert.Equal(t, http.StatusUnauthorized, err.Metadata["status"])
}

func TestNewNetworkError(t *testing.T) {
	err := NewNetworkError(stderrors.New("dial tcp: refused"))

	assert.Equal(t, "Network error: dial tcp: refused", UserMessage(err))
	assert.True(t, HasTextCode(err, TextCodeNetwork))
	assert.Equal(t, "Network error", UserMessage(NewNetworkError(nil)))
}

func TestNewExportError(t *testing.T) {
	err := NewExportError(stderrors.New("font missing"))
	assert.True(t, HasTextCode(err, TextCodeExportFailed))
	assert.Equal(t, "failed to generate document", UserMessage(err))
	require.NotNil(t, NewExportError(nil))
}

func TestUserMessageAndFieldErrorsOnPlainErrors(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Equal(t, "plain", UserMessage(stderrors.New("plain")))
	assert.Nil(t, FieldErrors(stderrors.New("plain")))
	assert.False(t, HasTextCode(stderrors.New("plain"), TextCodeBusy))
	assert.True(t, HasTextCode(ErrBusy, TextCodeBusy))
}
