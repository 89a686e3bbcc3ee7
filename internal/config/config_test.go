package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 30, cfg.Session.RememberDays)
	assert.Equal(t, 1, cfg.Session.ShortDays)
	assert.Equal(t, "auth_token", cfg.Session.CookieName)
	assert.Equal(t, "authToken", cfg.Session.LocalTokenKey)
	assert.Equal(t, "userData", cfg.Session.LocalUserKey)
	assert.False(t, cfg.Session.KeepTokenOnServerError)
	assert.Equal(t, filepath.Join(cfg.CacheDir, "cache.db"), cfg.DBPath)
	assert.Equal(t, 5*time.Minute, cfg.DashboardTTL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "branchdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://api.example.org
  timeout: 3s
session:
  remember_days: 14
  keep_token_on_server_error: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.org", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, 14, cfg.Session.RememberDays)
	assert.Equal(t, 1, cfg.Session.ShortDays)
	assert.True(t, cfg.Session.KeepTokenOnServerError)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().API, cfg.API)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected func(*testing.T, Config)
	}{
		{
			name:    "api base url",
			envVars: map[string]string{"BRANCHDESK_API_BASE_URL": "http://10.0.0.5:9000"},
			expected: func(t *testing.T, cfg Config) {
				assert.Equal(t, "http://10.0.0.5:9000", cfg.API.BaseURL)
			},
		},
		{
			name: "session days",
			envVars: map[string]string{
				"BRANCHDESK_SESSION_REMEMBER_DAYS": "7",
				"BRANCHDESK_SESSION_SHORT_DAYS":    "2",
			},
			expected: func(t *testing.T, cfg Config) {
				assert.Equal(t, 7, cfg.Session.RememberDays)
				assert.Equal(t, 2, cfg.Session.ShortDays)
			},
		},
		{
			name: "monitor and log",
			envVars: map[string]string{
				"BRANCHDESK_MONITOR_INTERVAL": "2m",
				"BRANCHDESK_LOG_LEVEL":        "debug",
				"BRANCHDESK_EPHEMERAL":        "true",
			},
			expected: func(t *testing.T, cfg Config) {
				assert.Equal(t, 2*time.Minute, cfg.Monitor.Interval)
				assert.Equal(t, "debug", cfg.Log.Level)
				assert.True(t, cfg.Ephemeral)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			cfg, err := Load("")
			require.NoError(t, err)
			tt.expected(t, cfg)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("BRANCHDESK_SESSION_COOKIE_NAME=chapter_token\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("BRANCHDESK_SESSION_COOKIE_NAME") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "chapter_token", cfg.Session.CookieName)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative url", func(c *Config) { c.API.BaseURL = "localhost:8000" }},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }},
		{"zero short days", func(c *Config) { c.Session.ShortDays = 0 }},
		{"remember shorter than short", func(c *Config) { c.Session.RememberDays = 0 }},
		{"empty cookie name", func(c *Config) { c.Session.CookieName = "" }},
		{"tight monitor interval", func(c *Config) { c.Monitor.Interval = time.Millisecond }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
