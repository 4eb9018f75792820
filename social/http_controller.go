package social

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-logger/glog"
	portfolio "github.com/goliatone/go-portfolio"
)

// HTTPController serves the consent redirect and callback routes.
type HTTPController struct {
	authenticator *SocialAuthenticator
	config        HTTPConfig
	logger        glog.Logger
}

// HTTPConfig configures the controller.
type HTTPConfig struct {
	// PathPrefix for routes (default: "/auth")
	PathPrefix string

	// ErrorRedirect is where failed flows land; the credential form
	// shows the error (default: "/")
	ErrorRedirect string

	Logger glog.Logger
}

// NewHTTPController creates the controller.
func NewHTTPController(sa *SocialAuthenticator, cfg HTTPConfig) *HTTPController {
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/auth"
	}
	if cfg.ErrorRedirect == "" {
		cfg.ErrorRedirect = "/"
	}
	return &HTTPController{
		authenticator: sa,
		config:        cfg,
		logger:        glog.Ensure(cfg.Logger),
	}
}

// Providers lists the registered providers for the sign-in views.
func (c *HTTPController) Providers() []ProviderInfo {
	return c.authenticator.ListProviders()
}

// RegisterRoutes mounts the routes under PathPrefix. The router must run
// the session middleware first.
func (c *HTTPController) RegisterRoutes(r fiber.Router) {
	group := r.Group(c.config.PathPrefix)
	group.Get("/:provider/callback", c.Callback)
	group.Get("/:provider", c.BeginAuth)
}

// BeginAuth redirects to the provider's consent page.
func (c *HTTPController) BeginAuth(ctx *fiber.Ctx) error {
	sess, ok := portfolio.SessionFromFiber(ctx)
	if !ok {
		return portfolio.ErrNoSession
	}

	if sess.SignedIn() {
		return ctx.Redirect(portfolio.ProfilePath, fiber.StatusSeeOther)
	}

	redirect, err := c.authenticator.BeginAuth(ctx.UserContext(), ctx.Params("provider"), sess.ID, sess.Credentials.Mode())
	if err != nil {
		return c.fail(ctx, sess, err)
	}

	return ctx.Redirect(redirect.URL, fiber.StatusTemporaryRedirect)
}

// Callback completes the flow and signs the session in.
func (c *HTTPController) Callback(ctx *fiber.Ctx) error {
	sess, ok := portfolio.SessionFromFiber(ctx)
	if !ok {
		return portfolio.ErrNoSession
	}

	providerName := ctx.Params("provider")

	if errCode := ctx.Query("error"); errCode != "" {
		return c.fail(ctx, sess, ErrConsentDenied.Clone().WithMetadata(map[string]any{
			"provider":          providerName,
			"error":             errCode,
			"error_description": ctx.Query("error_description"),
		}))
	}

	code, state := ctx.Query("code"), ctx.Query("state")
	if code == "" || state == "" {
		return c.fail(ctx, sess, ErrInvalidState.Clone().WithMetadata(map[string]any{"cause": "missing code or state"}))
	}

	result, err := c.authenticator.CompleteAuth(ctx.UserContext(), providerName, code, state, sess.ID)
	if err != nil {
		return c.fail(ctx, sess, err)
	}

	if err := sess.Credentials.ContinueWithProvider(ctx.UserContext(), result.Assertion); err != nil {
		c.save(ctx, sess)
		return ctx.Redirect(c.config.ErrorRedirect, fiber.StatusSeeOther)
	}

	c.save(ctx, sess)

	target := sess.TakeRedirect()
	if target == "" {
		target = portfolio.ProfilePath
	}
	return ctx.Redirect(target, fiber.StatusSeeOther)
}

func (c *HTTPController) fail(ctx *fiber.Ctx, sess *portfolio.Session, err error) error {
	c.logger.WithContext(ctx.UserContext()).Warn("social auth failed",
		"provider", ctx.Params("provider"),
		"sid", sess.ID,
		"error", err,
	)
	sess.Credentials.Reject(err)
	c.save(ctx, sess)
	return ctx.Redirect(c.config.ErrorRedirect, fiber.StatusSeeOther)
}

func (c *HTTPController) save(ctx *fiber.Ctx, sess *portfolio.Session) {
	if err := sess.Save(ctx.UserContext()); err != nil {
		c.logger.Error("failed to save session", "sid", sess.ID, "error", err)
	}
}
