package portfolio

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
)

// MsgExportConfirm is asked before a document is generated.
const MsgExportConfirm = "Do you want to download your portfolio as a PDF?"

// RegisterPortfolioRoutes mounts the credential and profile screens.
// The router must run RouteSessions.Middleware first.
func RegisterPortfolioRoutes(app fiber.Router, sessions *SessionContext, opts ...ControllerOption) *PortfolioController {
	controller := NewPortfolioController(sessions, opts...)

	app.Get(controller.Routes.Home, controller.Home).Name("home.get")
	app.Post(controller.Routes.SignIn, controller.SignInPost).Name("sign-in.post")
	app.Post(controller.Routes.SignUp, controller.SignUpPost).Name("sign-up.post")
	app.Post(controller.Routes.ModeSignIn, controller.ShowSignIn).Name("mode-sign-in.post")
	app.Post(controller.Routes.ModeSignUp, controller.ShowSignUp).Name("mode-sign-up.post")
	app.Post(controller.Routes.SignOut, controller.SignOut).Name("sign-out.post")

	app.Get(controller.Routes.Profile, controller.ProfileShow).Name("profile.get")
	app.Post(controller.Routes.Profile, controller.ProfileSave).Name("profile.post")
	app.Post(controller.Routes.Preview, controller.PreviewPost).Name("profile-preview.post")

	if controller.Exporter != nil {
		app.Get(controller.Routes.Export, controller.ExportShow).Name("profile-export.get")
		app.Post(controller.Routes.Export, controller.ExportPost).Name("profile-export.post")
	}

	return controller
}

type ControllerRoutes struct {
	Home       string
	SignIn     string
	SignUp     string
	ModeSignIn string
	ModeSignUp string
	SignOut    string
	Profile    string
	Preview    string
	Export     string
}

type ControllerViews struct {
	Layout        string
	SignIn        string
	SignUp        string
	Profile       string
	Preview       string
	ExportConfirm string
}

// ProviderLink is a "continue with" button on the credential screens.
type ProviderLink struct {
	Name  string
	Label string
	URL   string
}

type PortfolioController struct {
	Logger    Logger
	Sessions  *SessionContext
	Exporter  DocumentExporter
	Providers []ProviderLink
	Routes    *ControllerRoutes
	Views     *ControllerViews
}

type ControllerOption func(*PortfolioController) *PortfolioController

func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *PortfolioController) *PortfolioController {
		c.Logger = glog.Ensure(logger)
		return c
	}
}

// WithExporter enables the export routes.
func WithExporter(exporter DocumentExporter) ControllerOption {
	return func(c *PortfolioController) *PortfolioController {
		c.Exporter = exporter
		return c
	}
}

func WithProviderLinks(links ...ProviderLink) ControllerOption {
	return func(c *PortfolioController) *PortfolioController {
		c.Providers = append(c.Providers, links...)
		return c
	}
}

func NewPortfolioController(sessions *SessionContext, opts ...ControllerOption) *PortfolioController {
	c := &PortfolioController{
		Logger:   glog.Nop(),
		Sessions: sessions,
		Routes: &ControllerRoutes{
			Home:       "/",
			SignIn:     "/signin",
			SignUp:     "/signup",
			ModeSignIn: "/mode/signin",
			ModeSignUp: "/mode/signup",
			SignOut:    "/signout",
			Profile:    ProfilePath,
			Preview:    ProfilePath + "/preview",
			Export:     ProfilePath + "/export",
		},
		Views: &ControllerViews{
			Layout:        "layouts/main",
			SignIn:        "auth/signin",
			SignUp:        "auth/signup",
			Profile:       "profile/form",
			Preview:       "profile/preview",
			ExportConfirm: "profile/export_confirm",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Sessions == nil {
		panic("Missing SessionContext in portfolio controller...")
	}

	return c
}

// Home shows the credential form in its current mode.
func (a *PortfolioController) Home(ctx *fiber.Ctx) error {
	sess, err := session(ctx)
	if err != nil {
		return err
	}
	if sess.SignedIn() {
		return ctx.Redirect(a.Routes.Profile, http.StatusFound)
	}
	return a.renderCredentials(ctx, sess, http.StatusOK)
}

// SignInRequest is the sign-in form body.
type SignInRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (a *PortfolioController) SignInPost(ctx *fiber.Ctx) error {
	sess, err := session(ctx)
	if err != nil {
		return err
	}

	payload := new(SignInRequest)
	if err := ctx.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid sign in form").WithCode(errors.CodeBadRequest)
	}

	err = sess.Credentials.SubmitSignIn(ctx.UserContext(), payload.Email, payload.Password)
	return a.afterCredentials(ctx, sess, err)
}

// SignUpRequest is the sign-up form body.
type SignUpRequest struct {
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

func (a *PortfolioController) SignUpPost(ctx *fiber.Ctx) error {
	sess, err := session(ctx)
	if err != nil {
		return err
	}

	payload := new(SignUpRequest)
	if err := ctx.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid sign up form").WithCode(errors.CodeBadRequest)
	}

	err = sess.Credentials.SubmitSignUp(ctx.UserContext(),
		payload.Username,
		payload.Email,
		payload.Password,
		payload.ConfirmPassword,
	)
	return a.afterCredentials(ctx, sess, err)
}

func (a *PortfolioController) ShowSignIn(ctx *fiber.Ctx) error {
	return a.toggle(ctx, ModeSignIn)
}

func (a *PortfolioController) ShowSignUp(ctx *fiber.Ctx) error {
	return a.toggle(ctx, ModeSignUp)
}

func (a *PortfolioController) toggle(ctx *fiber.Ctx, mode Mode) error {
	sess, err := session(ctx)
	if err != nil {
		return err
	}
	if mode == ModeSignUp {
		sess.Credentials.ToggleToSignUp()
	} else {
		sess.Credentials.ToggleToSignIn()
	}
	a.save(ctx, sess)
	return ctx.Redirect(a.Routes.Home, http.StatusSeeOther)
}

func (a *PortfolioController) SignOut(ctx *fiber.Ctx) error {
	sess, err := session(ctx)
	if err != nil {
		return err
	}
	if err := a.Sessions.SignOut(ctx.UserContext(), sess); err != nil {
		return err
	}
	return ctx.Redirect(a.Routes.Home, http.StatusSeeOther)
}

// ProfileShow opens the profile screen. The stored profile is loaded the
// first time a signed in user gets here; later visits keep the draft.
// Load failures are shown on the form.
func (a *PortfolioController) ProfileShow(ctx *fiber.Ctx) error {
	sess, err := session(ctx)
	if err != nil {
		return err
	}

	if err := sess.Profile.LoadOnce(ctx.UserContext()); err != nil {
		a.Logger.Warn("profile load failed", "sid", sess.ID, "error", err)
	}
	a.save(ctx, sess)

	return a.renderProfile(ctx, sess, http.StatusOK)
}

func (a *PortfolioController) ProfileSave(ctx *fiber.Ctx) error {
	sess, err := session(ctx)
	if err != nil {
		return err
	}

	draft := ProfileDraft{}
	if err := ctx.BodyParser(&draft); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid profile form").WithCode(errors.CodeBadRequest)
	}
	sess.Profile.Replace(draft)

	err = sess.Profile.Save(ctx.UserContext())
	a.save(ctx, sess)

	return a.renderProfile(ctx, sess, statusFor(err))
}

// PreviewPost applies a live edit and returns the preview fragment. A
// body with "field" and "value" edits one field; any other body replaces
// the whole draft.
func (a *PortfolioController) PreviewPost(ctx *fiber.Ctx) error {
	sess, err := session(ctx)
	if err != nil {
		return err
	}

	if field := ctx.FormValue("field"); field != "" {
		edit := ProfileFieldPayload{Field: field, Value: ctx.FormValue("value")}
		if err := edit.Validate(); err != nil {
			return errors.Wrap(err, errors.CategoryValidation, "unknown profile field").WithCode(errors.CodeBadRequest)
		}
		sess.Profile.Edit(edit.Field, edit.Value)
	} else {
		draft := ProfileDraft{}
		if err := ctx.BodyParser(&draft); err != nil {
			return errors.Wrap(err, errors.CategoryBadInput, "invalid profile form").WithCode(errors.CodeBadRequest)
		}
		sess.Profile.Replace(draft)
	}
	a.save(ctx, sess)

	return ctx.Render(a.Views.Preview, fiber.Map{
		"preview": RenderPreview(sess.Profile.Draft(), sess.Identity()).Map(),
	})
}

func (a *PortfolioController) ExportShow(ctx *fiber.Ctx) error {
	return ctx.Render(a.Views.ExportConfirm, fiber.Map{
		"message": MsgExportConfirm,
		"csrf":    ctx.Locals("csrf"),
	}, a.Views.Layout)
}

// ExportPost answers the confirmation. "yes" downloads the document;
// anything else returns to the profile screen.
func (a *PortfolioController) ExportPost(ctx *fiber.Ctx) error {
	sess, err := session(ctx)
	if err != nil {
		return err
	}

	decision := strings.EqualFold(strings.TrimSpace(ctx.FormValue("decision")), "yes")
	artifact, err := a.Exporter.Export(ctx.UserContext(), sess.Profile.Draft(), Answer(decision))
	if err != nil {
		return err
	}
	if artifact == nil {
		return ctx.Redirect(a.Routes.Profile, http.StatusSeeOther)
	}

	a.Logger.Info("profile exported", "sid", sess.ID, "bytes", len(artifact.Data))

	ctx.Attachment(artifact.Name)
	ctx.Set(fiber.HeaderContentType, artifact.ContentType)
	return ctx.Send(artifact.Data)
}

func (a *PortfolioController) afterCredentials(ctx *fiber.Ctx, sess *Session, err error) error {
	a.save(ctx, sess)
	if err != nil {
		return a.renderCredentials(ctx, sess, statusFor(err))
	}

	target := sess.TakeRedirect()
	if target == "" {
		target = a.Routes.Profile
	}
	return ctx.Redirect(target, http.StatusSeeOther)
}

func (a *PortfolioController) renderCredentials(ctx *fiber.Ctx, sess *Session, status int) error {
	form := sess.Credentials
	view := a.Views.SignIn
	if form.Mode() == ModeSignUp {
		view = a.Views.SignUp
	}

	formErr := form.Err()
	return ctx.Status(status).Render(view, fiber.Map{
		"mode":         string(form.Mode()),
		"draft":        form.Draft(),
		"error":        UserMessage(formErr),
		"field_errors": FieldErrors(formErr),
		"busy":         form.Busy(),
		"providers":    a.Providers,
		"csrf":         ctx.Locals("csrf"),
	}, a.Views.Layout)
}

func (a *PortfolioController) renderProfile(ctx *fiber.Ctx, sess *Session, status int) error {
	form := sess.Profile
	identity := sess.Identity()
	draft := form.Draft()
	formErr := form.Err()

	return ctx.Status(status).Render(a.Views.Profile, fiber.Map{
		"identity":     identity,
		"signed_in":    identity != nil,
		"draft":        draft,
		"status":       form.Status(),
		"error":        UserMessage(formErr),
		"field_errors": FieldErrors(formErr),
		"busy":         form.Busy(),
		"preview":      RenderPreview(draft, identity).Map(),
		"can_export":   a.Exporter != nil,
		"csrf":         ctx.Locals("csrf"),
	}, a.Views.Layout)
}

func (a *PortfolioController) save(ctx *fiber.Ctx, sess *Session) {
	if err := a.Sessions.Save(ctx.UserContext(), sess); err != nil {
		a.Logger.Error("failed to save session", "sid", sess.ID, "error", err)
	}
}

func session(ctx *fiber.Ctx) (*Session, error) {
	sess, ok := SessionFromFiber(ctx)
	if !ok {
		return nil, ErrNoSession
	}
	return sess, nil
}

// statusFor maps a form error to the response status.
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Code >= http.StatusBadRequest && richErr.Code < 600 {
		return richErr.Code
	}
	return http.StatusInternalServerError
}
