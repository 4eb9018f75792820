package portfolio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	app      *fiber.App
	sessions *SessionContext
	provider *MockSessionProvider
	profiles *MockProfileStore
	cookie   string
}

func newTestApp(t *testing.T, opts ...ControllerOption) *testApp {
	t.Helper()

	provider := new(MockSessionProvider)
	profiles := new(MockProfileStore)
	sessions := newTestSessionContext(t, provider, profiles)
	routes := NewRouteSessions(sessions, CookieConfig{}, nil)

	app := fiber.New(fiber.Config{
		Views:        NewViewEngine(),
		ErrorHandler: routes.ErrorHandler,
	})
	app.Use(routes.Middleware())
	RegisterPortfolioRoutes(app, sessions, opts...)

	return &testApp{app: app, sessions: sessions, provider: provider, profiles: profiles}
}

func (a *testApp) do(t *testing.T, method, path string, form url.Values) (*http.Response, string) {
	t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	}
	if a.cookie != "" {
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: a.cookie})
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)

	for _, c := range resp.Cookies() {
		if c.Name == DefaultCookieName && c.Value != "" {
			a.cookie = c.Value
		}
	}

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func (a *testApp) session(t *testing.T) *Session {
	t.Helper()
	require.NotEmpty(t, a.cookie)
	s, err := a.sessions.Session(context.Background(), a.cookie)
	require.NoError(t, err)
	return s
}

func (a *testApp) signIn(t *testing.T) {
	t.Helper()
	a.provider.On("SignIn", mock.Anything, "ada@example.com", "secret1").Return(testIdentity(), nil).Once()
	resp, _ := a.do(t, "POST", "/signin", url.Values{"email": {"ada@example.com"}, "password": {"secret1"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestHomeRendersSignIn(t *testing.T) {
	app := newTestApp(t, WithProviderLinks(ProviderLink{Name: "github", Label: "GitHub", URL: "/auth/github"}))

	resp, body := app.do(t, "GET", "/", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Sign In")
	assert.Contains(t, body, "/auth/github")
	assert.NotEmpty(t, app.cookie)
}

func TestSignInValidationRendersError(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.do(t, "POST", "/signin", url.Values{"email": {"ada@example.com"}, "password": {"123"}})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, MsgPasswordTooShort)
	assert.Contains(t, body, `value="ada@example.com"`)
	app.provider.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything, mock.Anything)
}

func TestSignInRedirectsToProfile(t *testing.T) {
	app := newTestApp(t)

	app.provider.On("SignIn", mock.Anything, "ada@example.com", "secret1").Return(testIdentity(), nil).Once()
	resp, _ := app.do(t, "POST", "/signin", url.Values{"email": {"ada@example.com"}, "password": {"secret1"}})

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, ProfilePath, resp.Header.Get(fiber.HeaderLocation))
	assert.True(t, app.session(t).SignedIn())

	resp, _ = app.do(t, "GET", "/", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestModeToggleShowsSignUp(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.do(t, "POST", "/mode/signup", url.Values{})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, ModeSignUp, app.session(t).Credentials.Mode())

	resp, body := app.do(t, "POST", "/signup", url.Values{
		"username":         {"ada"},
		"email":            {"ada@example.com"},
		"password":         {"secret1"},
		"confirm_password": {"secret2"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, MsgPasswordMismatch)

	app.do(t, "POST", "/mode/signin", url.Values{})
	assert.Equal(t, ModeSignIn, app.session(t).Credentials.Mode())
}

func TestProfileShowLoadsExistingProfile(t *testing.T) {
	app := newTestApp(t)
	app.signIn(t)

	app.profiles.On("Fetch", mock.Anything, "id-token-1").Return(&RemoteProfile{
		Name:   "Ada Lovelace",
		About:  "Analytical engines.",
		Skills: []string{"Math", "Poetry"},
	}, nil).Once()

	resp, body := app.do(t, "GET", ProfilePath, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Analytical engines.")
	assert.Contains(t, body, "<span>Poetry</span>")
	app.profiles.AssertExpectations(t)
}

func TestProfileShowWithoutIdentity(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.do(t, "GET", ProfilePath, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, PreviewNamePlaceholder)
	app.profiles.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestProfileSave(t *testing.T) {
	app := newTestApp(t)
	app.signIn(t)

	app.profiles.On("Store", mock.Anything, "id-token-1", RemoteProfile{
		Name:   "Ada",
		Skills: []string{"Go", "SQL"},
	}).Return(nil).Once()

	resp, body := app.do(t, "POST", ProfilePath, url.Values{"name": {"Ada"}, "skills": {"Go,, SQL"}})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, MsgProfileSaved)
	app.profiles.AssertExpectations(t)
}

func TestProfileSaveWithoutIdentity(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.do(t, "POST", ProfilePath, url.Values{"name": {"Ada"}})

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, MsgNotSignedIn)
	assert.Equal(t, "Ada", app.session(t).Profile.Draft().Name)
}

func TestPreviewPostSingleField(t *testing.T) {
	app := newTestApp(t)
	app.do(t, "GET", "/", nil)

	resp, body := app.do(t, "POST", ProfilePath+"/preview", url.Values{"field": {FieldUsername}, "value": {"ada"}})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "@ada")
	assert.NotContains(t, body, "<html")
	assert.Equal(t, "ada", app.session(t).Profile.Draft().Username)

	resp, _ = app.do(t, "POST", ProfilePath+"/preview", url.Values{"field": {"avatar"}, "value": {"x"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportRoutesNeedExporter(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.do(t, "GET", ProfilePath+"/export", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportConfirmed(t *testing.T) {
	exporter := new(MockExporter)
	app := newTestApp(t, WithExporter(exporter))

	resp, body := app.do(t, "GET", ProfilePath+"/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, MsgExportConfirm)

	app.do(t, "POST", ProfilePath+"/preview", url.Values{"field": {FieldName}, "value": {"Ada"}})

	exporter.On("Export", mock.Anything, ProfileDraft{Name: "Ada"}, mock.MatchedBy(func(p Prompter) bool {
		ok, err := p.Confirm(context.Background(), MsgExportConfirm)
		return ok && err == nil
	})).Return(&Artifact{Name: "portfolio.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}, nil).Once()

	resp, body = app.do(t, "POST", ProfilePath+"/export", url.Values{"decision": {"yes"}})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), `filename="portfolio.pdf"`)
	assert.Equal(t, "%PDF-1.3", body)
	exporter.AssertExpectations(t)
}

func TestExportDeclined(t *testing.T) {
	exporter := new(MockExporter)
	app := newTestApp(t, WithExporter(exporter))

	exporter.On("Export", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).Once()

	resp, _ := app.do(t, "POST", ProfilePath+"/export", url.Values{"decision": {"no"}})

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, ProfilePath, resp.Header.Get(fiber.HeaderLocation))
}

func TestExportDeclinedKeepsUnsavedDraft(t *testing.T) {
	exporter := new(MockExporter)
	app := newTestApp(t, WithExporter(exporter))
	app.signIn(t)

	app.profiles.On("Fetch", mock.Anything, "id-token-1").Return(&RemoteProfile{
		Name:   "Stored",
		Skills: []string{"Go"},
	}, nil).Once()
	exporter.On("Export", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).Once()

	resp, _ := app.do(t, "GET", ProfilePath, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Stored", app.session(t).Profile.Draft().Name)

	app.do(t, "POST", ProfilePath+"/preview", url.Values{"field": {FieldName}, "value": {"Unsaved Edit"}})

	resp, _ = app.do(t, "POST", ProfilePath+"/export", url.Values{"decision": {"no"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, ProfilePath, resp.Header.Get(fiber.HeaderLocation))

	resp, body := app.do(t, "GET", resp.Header.Get(fiber.HeaderLocation), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Unsaved Edit")

	draft := app.session(t).Profile.Draft()
	assert.Equal(t, "Unsaved Edit", draft.Name)
	assert.Equal(t, "Go", draft.SkillsText)
	app.profiles.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestProfileShowLoadsOncePerIdentity(t *testing.T) {
	app := newTestApp(t)
	app.signIn(t)

	app.profiles.On("Fetch", mock.Anything, "id-token-1").Return(&RemoteProfile{Name: "Stored"}, nil).Once()

	app.do(t, "GET", ProfilePath, nil)
	app.do(t, "GET", ProfilePath, nil)
	app.profiles.AssertNumberOfCalls(t, "Fetch", 1)

	app.do(t, "POST", "/signout", url.Values{})
	assert.False(t, app.session(t).Profile.Loaded())
}

func TestSignOutClearsSession(t *testing.T) {
	app := newTestApp(t)
	app.signIn(t)

	resp, _ := app.do(t, "POST", "/signout", url.Values{})

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.False(t, app.session(t).SignedIn())
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, statusFor(nil))
	assert.Equal(t, http.StatusBadRequest, statusFor(NewValidationError("email", MsgEmailRequired)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.EOF))
}
