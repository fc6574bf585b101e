package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := load("", envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, "sqlite://msgboard.db", cfg.DatabaseURL)
	assert.Equal(t, SessionStoreDatabase, cfg.SessionStore)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Empty(t, cfg.SecretKey)
	assert.False(t, cfg.OIDC.Enabled())
}

func TestYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msgboard.yaml")
	yml := `
port: 8080
database_url: postgres://localhost/board
secret_key: from-file-0123456789
session_ttl: 2h
log:
  level: debug
  format: console
oidc:
  issuer: https://id.example.com
  client_id: board
  redirect_url: https://board.example.com/auth/sso/callback
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := load(path, envMap(map[string]string{
		"PORT":           "9090",
		"SECURE_COOKIES": "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "postgres://localhost/board", cfg.DatabaseURL)
	assert.Equal(t, "from-file-0123456789", cfg.SecretKey)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.SecureCookies)
	assert.True(t, cfg.OIDC.Enabled())
	assert.NoError(t, cfg.Validate())
}

func TestBadEnvValues(t *testing.T) {
	_, err := load("", envMap(map[string]string{
		"PORT":        "abc",
		"SESSION_TTL": "forever",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "SESSION_TTL")
}

func TestMissingFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "nope.yaml"), envMap(nil))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.SecretKey = "a-very-long-random-secret"

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing secret", func(c *Config) { c.SecretKey = "" }, "secret_key is required"},
		{"placeholder secret", func(c *Config) { c.SecretKey = "change-me" }, "placeholder"},
		{"short secret", func(c *Config) { c.SecretKey = "short" }, "at least"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "out of range"},
		{"unknown session store", func(c *Config) { c.SessionStore = "memcached" }, "unknown session_store"},
		{"oidc without redirect", func(c *Config) {
			c.OIDC = OIDCConfig{Issuer: "https://id.example.com", ClientID: "board"}
		}, "redirect_url"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
