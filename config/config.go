// Package config loads the portfolio server settings from an optional
// YAML file, a .env file and PORTFOLIO_ prefixed environment variables.
package config

import (
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PORTFOLIO_API_BASE_URL.
const EnvPrefix = "PORTFOLIO"

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	API      APIConfig      `mapstructure:"api"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Session  SessionConfig  `mapstructure:"session"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Minio    MinioConfig    `mapstructure:"minio"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// APIConfig locates the remote profile API.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// FirebaseConfig mirrors the Firebase web app settings.
type FirebaseConfig struct {
	APIKey            string `mapstructure:"api_key"`
	AuthDomain        string `mapstructure:"auth_domain"`
	ProjectID         string `mapstructure:"project_id"`
	StorageBucket     string `mapstructure:"storage_bucket"`
	MessagingSenderID string `mapstructure:"messaging_sender_id"`
	AppID             string `mapstructure:"app_id"`
	IdentityURL       string `mapstructure:"identity_url"`
	TokenURL          string `mapstructure:"token_url"`
	VerifyTokens      bool   `mapstructure:"verify_tokens"`
	JWKSURL           string `mapstructure:"jwks_url"`
}

type OAuthConfig struct {
	// CallbackBaseURL is the public origin the providers redirect back to.
	CallbackBaseURL string        `mapstructure:"callback_base_url"`
	GitHub          OAuthClient   `mapstructure:"github"`
	Google          OAuthClient   `mapstructure:"google"`
	StateTTL        time.Duration `mapstructure:"state_ttl"`
}

// OAuthClient is one provider's client registration. A provider with no
// client id is disabled.
type OAuthClient struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

// Enabled reports whether the provider is configured.
func (c OAuthClient) Enabled() bool {
	return c.ClientID != ""
}

type SessionConfig struct {
	// Secret seeds the OAuth state keys.
	Secret       string        `mapstructure:"secret"`
	Store        string        `mapstructure:"store"`
	TTL          time.Duration `mapstructure:"ttl"`
	CookieName   string        `mapstructure:"cookie_name"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// MinioConfig enables the export archive when Endpoint is set.
type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Enabled reports whether exports are archived.
func (c MinioConfig) Enabled() bool {
	return c.Endpoint != ""
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Option configures Load.
type Option func(*loader)

type loader struct {
	file    string
	envFile string
	v       *viper.Viper
}

// WithFile reads the given YAML file instead of searching for portfolio.yaml.
func WithFile(path string) Option {
	return func(l *loader) {
		l.file = path
	}
}

// WithEnvFile loads variables from path instead of ./.env.
func WithEnvFile(path string) Option {
	return func(l *loader) {
		l.envFile = path
	}
}

// Load resolves defaults, then the config file, then the environment.
func Load(opts ...Option) (*Config, error) {
	l := &loader{envFile: ".env", v: viper.New()}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	if err := godotenv.Load(l.envFile); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to read env file").
			WithMetadata(map[string]any{"path": l.envFile})
	}

	v := l.v
	setDefaults(v)

	if l.file != "" {
		v.SetConfigFile(l.file)
	} else {
		v.SetConfigName("portfolio")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.file != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to read config file")
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to decode config")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("api.base_url", "http://localhost:5000")
	v.SetDefault("api.timeout", 10*time.Second)

	// AutomaticEnv only resolves keys viper already knows about.
	v.SetDefault("firebase.api_key", "")
	v.SetDefault("firebase.auth_domain", "")
	v.SetDefault("firebase.project_id", "")
	v.SetDefault("firebase.storage_bucket", "")
	v.SetDefault("firebase.messaging_sender_id", "")
	v.SetDefault("firebase.app_id", "")
	v.SetDefault("firebase.identity_url", "")
	v.SetDefault("firebase.token_url", "")
	v.SetDefault("firebase.verify_tokens", false)
	v.SetDefault("firebase.jwks_url", "")

	v.SetDefault("oauth.callback_base_url", "http://localhost:8080")
	v.SetDefault("oauth.state_ttl", 10*time.Minute)
	for _, p := range []string{"github", "google"} {
		v.SetDefault("oauth."+p+".client_id", "")
		v.SetDefault("oauth."+p+".client_secret", "")
		v.SetDefault("oauth."+p+".scopes", []string{})
	}

	v.SetDefault("session.secret", "")
	v.SetDefault("session.store", SessionStoreMemory)
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.cookie_name", "portfolio_sid")
	v.SetDefault("session.cookie_secure", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "")

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "portfolio-exports")
	v.SetDefault("minio.use_ssl", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "pretty")
}

// Validate checks the settings the serve command depends on.
func (c *Config) Validate() error {
	social := c.OAuth.GitHub.Enabled() || c.OAuth.Google.Enabled()

	err := validation.Errors{
		"api.base_url":     validation.Validate(c.API.BaseURL, validation.Required, is.URL),
		"firebase.api_key": validation.Validate(c.Firebase.APIKey, validation.Required),
		"session.store":    validation.Validate(c.Session.Store, validation.In(SessionStoreMemory, SessionStoreRedis)),
		"log.format":       validation.Validate(c.Log.Format, validation.In("pretty", "json", "console")),
		"redis.addr": validation.Validate(c.Redis.Addr,
			validation.When(c.Session.Store == SessionStoreRedis, validation.Required)),
		"minio.bucket": validation.Validate(c.Minio.Bucket,
			validation.When(c.Minio.Enabled(), validation.Required)),
		"firebase.project_id": validation.Validate(c.Firebase.ProjectID,
			validation.When(c.Firebase.VerifyTokens, validation.Required)),
		"session.secret": validation.Validate(c.Session.Secret,
			validation.When(social, validation.Required, validation.RuneLength(16, 0))),
	}.Filter()
	if err == nil {
		return nil
	}

	var fields []errors.FieldError
	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			fields = append(fields, errors.FieldError{Field: field, Message: ferr.Error()})
		}
	}
	return errors.NewValidation("invalid configuration", fields...).
		WithTextCode("INVALID_CONFIG")
}
