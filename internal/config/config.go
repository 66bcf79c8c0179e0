// Package config loads runtime settings.
//
// Every key has a default, and every key can be overridden by an environment
// variable of the same name in upper case (PORT, DATABASE_URL, ...). The
// cobra root command loads a .env file before Load runs and binds its flags
// into the same viper instance, so precedence is:
//
//	flag > environment (.env included) > default
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Tracing modes for the TRACING key.
const (
	TracingOff    = "off"
	TracingStdout = "stdout"
	TracingOTLP   = "otlp"
)

// minSecretLength is the shortest JWT_SECRET serve accepts. HS256 with a
// short secret is brute-forceable offline from any issued token.
const minSecretLength = 16

// OAuthClient is one provider's OAuth credentials. A provider with an empty
// ClientID is disabled.
type OAuthClient struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	CallbackURL  string `mapstructure:"callback_url"`
}

// Enabled reports whether the provider is configured.
func (c OAuthClient) Enabled() bool {
	return c.ClientID != ""
}

type Config struct {
	Port        int           `mapstructure:"port"`
	DatabaseURL string        `mapstructure:"database_url"`
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	LogLevel    string        `mapstructure:"log_level"`
	LogFormat   string        `mapstructure:"log_format"`

	Google OAuthClient `mapstructure:"google"`
	GitHub OAuthClient `mapstructure:"github"`

	Tracing      string `mapstructure:"tracing"`
	OTLPEndpoint string `mapstructure:"otel_exporter_otlp_endpoint"`
}

// SetDefaults registers every key on v. It also makes AutomaticEnv aware of
// the nested keys: viper only consults the environment for keys it knows.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("database_url", "sqlite:data/blog.db")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("log_level", "debug")
	v.SetDefault("log_format", "text")

	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.callback_url", "http://localhost:8080/authentication/google/callback")
	v.SetDefault("github.client_id", "")
	v.SetDefault("github.client_secret", "")
	v.SetDefault("github.callback_url", "http://localhost:8080/authentication/github/callback")

	v.SetDefault("tracing", TracingOff)
	v.SetDefault("otel_exporter_otlp_endpoint", "")
}

// New returns a viper instance with defaults and environment binding set
// up. google.client_id reads GOOGLE_CLIENT_ID.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load decodes v into a Config and checks the values that do not depend on
// which command runs. JWT_SECRET is checked separately by ValidateServe,
// since migrate and seed do not need it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: PORT %d out of range", cfg.Port)
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("config: DATABASE_URL is required")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("config: TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}
	switch cfg.Tracing {
	case TracingOff, TracingStdout:
	case TracingOTLP:
		if cfg.OTLPEndpoint == "" {
			return nil, errors.New("config: TRACING=otlp needs OTEL_EXPORTER_OTLP_ENDPOINT")
		}
	default:
		return nil, fmt.Errorf("config: TRACING must be off, stdout or otlp, got %q", cfg.Tracing)
	}

	return &cfg, nil
}

// ValidateServe checks what only the HTTP server needs.
func (c *Config) ValidateServe() error {
	if len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("config: JWT_SECRET must be at least %d characters", minSecretLength)
	}
	for name, client := range map[string]OAuthClient{"GOOGLE": c.Google, "GITHUB": c.GitHub} {
		if client.Enabled() && client.ClientSecret == "" {
			return fmt.Errorf("config: %s_CLIENT_SECRET is required when %s_CLIENT_ID is set", name, name)
		}
	}
	return nil
}

// ParseLevel maps LOG_LEVEL to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
