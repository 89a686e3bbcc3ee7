package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "BRANCHDESK_"

type Config struct {
	API     API     `yaml:"api" envPrefix:"API_"`
	Session Session `yaml:"session" envPrefix:"SESSION_"`
	Monitor Monitor `yaml:"monitor" envPrefix:"MONITOR_"`
	Log     Log     `yaml:"log" envPrefix:"LOG_"`

	CacheDir  string `yaml:"cache_dir" env:"CACHE_DIR"`
	DBPath    string `yaml:"db_path" env:"DB_PATH"`
	LocalPath string `yaml:"local_path" env:"LOCAL_PATH"`
	LogPath   string `yaml:"log_path" env:"LOG_PATH"`
	ExportDir string `yaml:"export_dir" env:"EXPORT_DIR"`

	// DashboardTTL is how long a cached dashboard is shown without refetching.
	DashboardTTL time.Duration `yaml:"dashboard_ttl" env:"DASHBOARD_TTL"`

	// Ephemeral keeps every token store in memory; nothing survives the process.
	Ephemeral bool `yaml:"ephemeral" env:"EPHEMERAL"`
}

// API configures the chapter REST backend.
type API struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// Session configures token persistence.
type Session struct {
	RememberDays  int    `yaml:"remember_days" env:"REMEMBER_DAYS"`
	ShortDays     int    `yaml:"short_days" env:"SHORT_DAYS"`
	CookieName    string `yaml:"cookie_name" env:"COOKIE_NAME"`
	LocalTokenKey string `yaml:"local_token_key" env:"LOCAL_TOKEN_KEY"`
	LocalUserKey  string `yaml:"local_user_key" env:"LOCAL_USER_KEY"`

	// KeepTokenOnServerError stops a 5xx from /auth/me wiping the stored token.
	// Only 401 and 403 invalidate the session when this is set.
	KeepTokenOnServerError bool `yaml:"keep_token_on_server_error" env:"KEEP_TOKEN_ON_SERVER_ERROR"`
}

// Monitor configures the announcement poller.
type Monitor struct {
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
	Enabled  bool          `yaml:"enabled" env:"ENABLED"`
}

// Log configures the debug log.
type Log struct {
	Level string `yaml:"level" env:"LEVEL"`
}

func Default() Config {
	cacheDir := filepath.Join(userConfigDir(), "branchdesk")
	return Config{
		API: API{
			BaseURL: "http://localhost:8000",
			Timeout: 10 * time.Second,
		},
		Session: Session{
			RememberDays:  30,
			ShortDays:     1,
			CookieName:    "auth_token",
			LocalTokenKey: "authToken",
			LocalUserKey:  "userData",
		},
		Monitor: Monitor{
			Interval: 60 * time.Second,
			Enabled:  true,
		},
		Log: Log{
			Level: "info",
		},
		CacheDir:  cacheDir,
		DBPath:    filepath.Join(cacheDir, "cache.db"),
		LocalPath: filepath.Join(cacheDir, "local.json"),
		LogPath:   filepath.Join(cacheDir, "debug.log"),
		ExportDir: ".",

		DashboardTTL: 5 * time.Minute,
	}
}

// Load builds the configuration in layers: defaults, the YAML file at path
// (skipped when path is empty or missing), a .env file in the working
// directory, then BRANCHDESK_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	// A missing .env is the common case.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Session.ShortDays < 1 {
		return fmt.Errorf("session.short_days must be at least 1")
	}
	if c.Session.RememberDays < c.Session.ShortDays {
		return fmt.Errorf("session.remember_days must not be shorter than session.short_days")
	}
	if c.Session.CookieName == "" || c.Session.LocalTokenKey == "" || c.Session.LocalUserKey == "" {
		return fmt.Errorf("session storage keys must not be empty")
	}
	if c.DashboardTTL < 0 {
		return fmt.Errorf("dashboard_ttl must not be negative")
	}
	if c.Monitor.Enabled && c.Monitor.Interval < time.Second {
		return fmt.Errorf("monitor.interval must be at least 1s")
	}
	return nil
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}
