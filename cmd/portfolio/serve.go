package main

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-logger/glog"
	portfolio "github.com/goliatone/go-portfolio"
	"github.com/goliatone/go-portfolio/config"
	"github.com/goliatone/go-portfolio/export"
	"github.com/goliatone/go-portfolio/profileapi"
	"github.com/goliatone/go-portfolio/provider/firebase"
	"github.com/goliatone/go-portfolio/sessionstore"
	"github.com/goliatone/go-portfolio/social"
	"github.com/goliatone/go-portfolio/social/providers/github"
	"github.com/goliatone/go-portfolio/social/providers/google"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the portfolio web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			lgr := newLogger(cfg.Log)
			return serve(cmd.Context(), cfg, lgr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.address")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, lgr *glog.BaseLogger) error {
	logger := lgr.GetLogger("serve")

	identity, err := firebase.New(firebase.Config{
		APIKey:            cfg.Firebase.APIKey,
		ProjectID:         cfg.Firebase.ProjectID,
		AuthDomain:        cfg.Firebase.AuthDomain,
		StorageBucket:     cfg.Firebase.StorageBucket,
		MessagingSenderID: cfg.Firebase.MessagingSenderID,
		AppID:             cfg.Firebase.AppID,
		IdentityURL:       cfg.Firebase.IdentityURL,
		TokenURL:          cfg.Firebase.TokenURL,
		RequestURI:        cfg.OAuth.CallbackBaseURL,
		VerifyTokens:      cfg.Firebase.VerifyTokens,
		JWKSURL:           cfg.Firebase.JWKSURL,
		Logger:            lgr.GetLogger("firebase"),
	})
	if err != nil {
		return err
	}

	profiles, err := profileapi.New(profileapi.Config{
		BaseURL: cfg.API.BaseURL,
		Logger:  lgr.GetLogger("profileapi"),
	})
	if err != nil {
		return err
	}

	store, err := newSessionStore(ctx, cfg)
	if err != nil {
		return err
	}

	sessions := portfolio.NewSessionContext(identity, profiles,
		portfolio.WithSessionStore(store),
		portfolio.WithSessionTTL(cfg.Session.TTL),
		portfolio.WithSessionLogger(lgr.GetLogger("sessions")),
	)
	if err := sessions.Init(ctx); err != nil {
		return err
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			logger.Error("session context close failed", "error", err)
		}
	}()

	exporter, err := newExporter(ctx, cfg, lgr)
	if err != nil {
		return err
	}

	routes := portfolio.NewRouteSessions(sessions, portfolio.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
	}, lgr.GetLogger("http"))

	app := fiber.New(fiber.Config{
		AppName:      "portfolio " + version,
		Views:        portfolio.NewViewEngine(),
		ErrorHandler: routes.ErrorHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	app.Use(recover.New())
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:_csrf",
		CookieName:     "portfolio_csrf",
		CookieSameSite: fiber.CookieSameSiteLaxMode,
		CookieSecure:   cfg.Session.CookieSecure,
		CookieHTTPOnly: true,
		Expiration:     time.Hour,
		ContextKey:     "csrf",
	}))
	app.Use(routes.Middleware())

	var links []portfolio.ProviderLink
	socialAuth, err := newSocialAuthenticator(cfg, lgr)
	if err != nil {
		return err
	}
	if socialAuth != nil {
		controller := social.NewHTTPController(socialAuth, social.HTTPConfig{
			Logger: lgr.GetLogger("social"),
		})
		controller.RegisterRoutes(app)
		for _, p := range controller.Providers() {
			links = append(links, portfolio.ProviderLink{Name: p.Name, Label: p.Label, URL: "/auth/" + p.Name})
		}
	}

	portfolio.RegisterPortfolioRoutes(app, sessions,
		portfolio.WithControllerLogger(lgr.GetLogger("controller")),
		portfolio.WithExporter(exporter),
		portfolio.WithProviderLinks(links...),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Server.Address, "version", version)
		return app.Listen(cfg.Server.Address)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})
	return g.Wait()
}

func newSessionStore(ctx context.Context, cfg *config.Config) (portfolio.SessionStore, error) {
	if cfg.Session.Store != config.SessionStoreRedis {
		return sessionstore.NewMemory(), nil
	}
	return sessionstore.NewRedis(ctx, sessionstore.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
}

func newExporter(ctx context.Context, cfg *config.Config, lgr *glog.BaseLogger) (*export.Exporter, error) {
	opts := []export.Option{export.WithLogger(lgr.GetLogger("export"))}
	if cfg.Minio.Enabled() {
		archive, err := export.NewMinioArchive(ctx, export.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, export.WithArchive(archive))
	}
	return export.New(opts...), nil
}

// newSocialAuthenticator returns nil when no provider is configured.
func newSocialAuthenticator(cfg *config.Config, lgr *glog.BaseLogger) (*social.SocialAuthenticator, error) {
	base := strings.TrimRight(cfg.OAuth.CallbackBaseURL, "/")

	var opts []social.SocialAuthOption
	if c := cfg.OAuth.GitHub; c.Enabled() {
		opts = append(opts, social.WithProvider(github.New(github.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			CallbackURL:  base + "/auth/github/callback",
			Scopes:       c.Scopes,
		})))
	}
	if c := cfg.OAuth.Google; c.Enabled() {
		opts = append(opts, social.WithProvider(google.New(google.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			CallbackURL:  base + "/auth/google/callback",
			Scopes:       c.Scopes,
		})))
	}
	if len(opts) == 0 {
		return nil, nil
	}

	opts = append(opts, social.WithLogger(lgr.GetLogger("social")))
	return social.NewSocialAuthenticator(social.SocialAuthConfig{
		StateSecret: []byte(cfg.Session.Secret),
		StateTTL:    cfg.OAuth.StateTTL,
		RequestURI:  base,
	}, opts...)
}
