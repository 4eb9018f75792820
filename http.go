package portfolio

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
)

// DefaultCookieName names the browser session cookie.
const DefaultCookieName = "portfolio_sid"

// CookieConfig configures the session cookie.
type CookieConfig struct {
	Name     string
	Secure   bool
	SameSite string
	Duration time.Duration
}

// RouteSessions binds each request to its browser session.
type RouteSessions struct {
	sessions *SessionContext
	cookie   CookieConfig
	Logger   Logger
	// AuthErrorHandler handles auth category errors (default: back to
	// the sign-in screen).
	AuthErrorHandler fiber.ErrorHandler
}

// NewRouteSessions creates the middleware owner.
func NewRouteSessions(sessions *SessionContext, cookie CookieConfig, logger Logger) *RouteSessions {
	if cookie.Name == "" {
		cookie.Name = DefaultCookieName
	}
	if cookie.SameSite == "" {
		cookie.SameSite = fiber.CookieSameSiteLaxMode
	}
	if cookie.Duration <= 0 {
		cookie.Duration = sessions.ttl
	}

	a := &RouteSessions{
		sessions: sessions,
		cookie:   cookie,
		Logger:   glog.Ensure(logger),
	}
	a.AuthErrorHandler = a.defaultAuthErrHandler
	return a
}

// Middleware loads or creates the session named by the cookie and makes
// it available through SessionFromFiber and SessionFromContext.
func (a *RouteSessions) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Cookies(a.cookie.Name)

		sess, err := a.sessions.Session(c.UserContext(), id)
		if err != nil {
			return err
		}

		if sess.ID != id {
			a.Logger.Debug("session started", "sid", sess.ID, "path", c.Path())
		}
		a.setCookie(c, sess.ID)

		c.Locals(SessionLocalsKey, sess)
		c.SetUserContext(WithSession(c.UserContext(), sess))
		return c.Next()
	}
}

// ClearCookie expires the session cookie.
func (a *RouteSessions) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     a.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cookie.Secure,
		SameSite: a.cookie.SameSite,
	})
}

func (a *RouteSessions) setCookie(c *fiber.Ctx, id string) {
	c.Cookie(&fiber.Cookie{
		Name:     a.cookie.Name,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(a.cookie.Duration),
		HTTPOnly: true,
		Secure:   a.cookie.Secure,
		SameSite: a.cookie.SameSite,
	})
}

// ErrorHandler is the fiber app error handler.
func (a *RouteSessions) ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).SendString(fiberErr.Message)
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Error(
		"request failed",
		"path", c.Path(),
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	}

	code := richErr.Code
	if code < http.StatusBadRequest {
		code = http.StatusInternalServerError
	}
	return c.Status(code).Render("errors/500", fiber.Map{
		"error": richErr,
	}, "layouts/main")
}

func (a *RouteSessions) defaultAuthErrHandler(c *fiber.Ctx, err error) error {
	statusCode := http.StatusSeeOther
	if c.Method() == fiber.MethodGet {
		statusCode = http.StatusFound
	}
	return c.Redirect("/", statusCode)
}
