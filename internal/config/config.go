// Package config loads msgboard settings from defaults, an optional YAML file
// and the environment, in that order of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Port             int           `yaml:"port"`
	DatabaseURL      string        `yaml:"database_url"`
	SecretKey        string        `yaml:"secret_key"`
	SessionStore     string        `yaml:"session_store"`
	RedisURL         string        `yaml:"redis_url"`
	SessionTTL       time.Duration `yaml:"session_ttl"`
	JanitorInterval  time.Duration `yaml:"janitor_interval"`
	SecureCookies    bool          `yaml:"secure_cookies"`
	TrustForwardAuth bool          `yaml:"trust_forward_auth"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
	Log              LogConfig     `yaml:"log"`
	OIDC             OIDCConfig    `yaml:"oidc"`
}

// LogConfig selects the zap logger flavour.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// OIDCConfig configures optional single sign-on. SSO is enabled when Issuer
// and ClientID are both set.
type OIDCConfig struct {
	Issuer       string `yaml:"issuer"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Enabled reports whether SSO is configured.
func (o OIDCConfig) Enabled() bool {
	return o.Issuer != "" && o.ClientID != ""
}

// Session store kinds.
const (
	SessionStoreDatabase = "database"
	SessionStoreRedis    = "redis"
)

const minSecretKeyLen = 16

// Values shipped as examples or defaults by earlier versions of the board;
// they are public and therefore rejected.
var placeholderSecrets = map[string]bool{
	"secret":                 true,
	"changeme":               true,
	"change-me":              true,
	"your-secret-key":        true,
	"your_secret_key":        true,
	"dev-secret-key":         true,
	"supersecretkey":         true,
	"replace-me-with-secret": true,
}

// Default returns the built-in configuration. SecretKey is intentionally empty.
func Default() Config {
	return Config{
		Port:            5000,
		DatabaseURL:     "sqlite://msgboard.db",
		SessionStore:    SessionStoreDatabase,
		RedisURL:        "redis://localhost:6379",
		SessionTTL:      24 * time.Hour,
		JanitorInterval: 10 * time.Minute,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Log:             LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the process environment.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	env := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	envInt := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	envBool := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	envDuration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	envInt("PORT", &cfg.Port)
	env("DATABASE_URL", &cfg.DatabaseURL)
	env("SECRET_KEY", &cfg.SecretKey)
	env("SESSION_STORE", &cfg.SessionStore)
	env("REDIS_URL", &cfg.RedisURL)
	envDuration("SESSION_TTL", &cfg.SessionTTL)
	envDuration("JANITOR_INTERVAL", &cfg.JanitorInterval)
	envBool("SECURE_COOKIES", &cfg.SecureCookies)
	envBool("TRUST_FORWARD_AUTH", &cfg.TrustForwardAuth)
	env("LOG_LEVEL", &cfg.Log.Level)
	env("LOG_FORMAT", &cfg.Log.Format)
	env("OIDC_ISSUER", &cfg.OIDC.Issuer)
	env("OIDC_CLIENT_ID", &cfg.OIDC.ClientID)
	env("OIDC_CLIENT_SECRET", &cfg.OIDC.ClientSecret)
	env("OIDC_REDIRECT_URL", &cfg.OIDC.RedirectURL)

	return errors.Join(errs...)
}

// Addr returns the listen address for Port.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error

	key := strings.TrimSpace(c.SecretKey)
	switch {
	case key == "":
		errs = append(errs, errors.New("secret_key is required (set SECRET_KEY)"))
	case placeholderSecrets[strings.ToLower(key)]:
		errs = append(errs, errors.New("secret_key is a well-known placeholder; generate a random one"))
	case len(key) < minSecretKeyLen:
		errs = append(errs, fmt.Errorf("secret_key must be at least %d bytes", minSecretKeyLen))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("database_url is required"))
	}
	switch c.SessionStore {
	case SessionStoreDatabase:
	case SessionStoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("redis_url is required when session_store is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session_store %q", c.SessionStore))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	if c.OIDC.Enabled() && c.OIDC.RedirectURL == "" {
		errs = append(errs, errors.New("oidc.redirect_url is required when oidc is enabled"))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
