package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maykaila/memora/internal/errors"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/api", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "https://identitytoolkit.googleapis.com/v1", cfg.Identity.AuthURL)
	assert.Equal(t, 4, cfg.Session.RoleRetryMax)
	assert.Equal(t, 250*time.Millisecond, cfg.Session.RoleRetryInitial)
	assert.Equal(t, 4*time.Second, cfg.Poll.Interval)
	assert.Equal(t, "info", cfg.Logging.Level)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".memora"), cfg.Home)
	assert.Equal(t, filepath.Join(home, ".memora", "credentials.json"), cfg.CredentialsPath())
	assert.Equal(t, filepath.Join(home, ".memora", "memora.log"), cfg.LogPath())
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
api:
  base_url: https://memora.example/api
  timeout: 5s
identity:
  api_key: key-123
poll:
  interval: 3s
logging:
  file: "-"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://memora.example/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "key-123", cfg.Identity.APIKey)
	assert.Equal(t, 3*time.Second, cfg.Poll.Interval)
	assert.Equal(t, "-", cfg.LogPath())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MEMORA_API_BASE_URL", "https://env.example/api")
	t.Setenv("MEMORA_SESSION_ROLE_RETRY_MAX", "7")

	path := writeFile(t, "api:\n  base_url: https://file.example/api\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example/api", cfg.API.BaseURL)
	assert.Equal(t, 7, cfg.Session.RoleRetryMax)
}

func TestLoadClampsPollInterval(t *testing.T) {
	cfg, err := Load(writeFile(t, "poll:\n  interval: 100ms\n"))
	require.NoError(t, err)
	assert.Equal(t, MinPollInterval, cfg.Poll.Interval)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "api: [unclosed"},
		{"relative base url", "api:\n  base_url: /api\n"},
		{"zero retries", "session:\n  role_retry_max: 0\n"},
		{"inverted backoff", "session:\n  role_retry_initial: 10s\n  role_retry_max_interval: 1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeConfigLoad), "got %v", err)
		})
	}
}

func TestSetAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, Set(path, "api.base_url", "https://memora.example/api"))
	require.NoError(t, Set(path, "session.role_retry_max", "2"))
	require.NoError(t, Set(path, "logging.level", "debug"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://memora.example/api", cfg.API.BaseURL)
	assert.Equal(t, 2, cfg.Session.RoleRetryMax)
	assert.Equal(t, "debug", cfg.Logging.Level)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSetRejectsUnknownKey(t *testing.T) {
	err := Set(filepath.Join(t.TempDir(), "config.yaml"), "api.nope", "x")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigSave))
}

func TestSetRestoresOnInvalidValue(t *testing.T) {
	path := writeFile(t, "api:\n  base_url: https://ok.example/api\n")

	err := Set(path, "api.base_url", "not a url")
	require.Error(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://ok.example/api", cfg.API.BaseURL)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Storage.Bucket = "memora-avatars"
	cfg.Poll.Interval = 5 * time.Second

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Map(), loaded.Map())
}
