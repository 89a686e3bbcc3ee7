package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fragmede/branchdesk/internal/api"
	"github.com/fragmede/branchdesk/internal/auth"
	"github.com/fragmede/branchdesk/internal/cache"
	"github.com/fragmede/branchdesk/internal/config"
	"github.com/fragmede/branchdesk/internal/localstore"
	"github.com/fragmede/branchdesk/internal/logger"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	apiURL     string
	dataDir    string
	logLevel   string
	ephemeral  bool
}

// deps is everything a command needs, opened from configuration.
type deps struct {
	cfg     config.Config
	log     *logger.Logger
	client  *api.Client
	db      *cache.DB
	session *auth.Session
	closers []func() error
}

// loadConfig loads the configuration and applies flag overrides on top.
func (o *options) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.apiURL != "" {
		cfg.API.BaseURL = o.apiURL
	}
	if o.dataDir != "" {
		cfg.CacheDir = o.dataDir
		cfg.DBPath = filepath.Join(o.dataDir, "cache.db")
		cfg.LocalPath = filepath.Join(o.dataDir, "local.json")
		cfg.LogPath = filepath.Join(o.dataDir, "debug.log")
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.ephemeral {
		cfg.Ephemeral = true
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (o *options) open() (*deps, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	d := &deps{cfg: cfg}

	var (
		cookies auth.CookieStore
		local   auth.LocalStore
	)
	if cfg.Ephemeral {
		d.log = logger.Noop()
		if d.db, err = cache.Open(":memory:"); err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		cookies = localstore.NewMemoryCookies()
		local = localstore.NewMemory()
	} else {
		if err := os.MkdirAll(cfg.CacheDir, 0o700); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
		log, closeLog, err := logger.Open(cfg.LogPath, cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		d.log = log
		d.closers = append(d.closers, closeLog)

		if d.db, err = cache.Open(cfg.DBPath); err != nil {
			d.close()
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		file, err := localstore.OpenFile(cfg.LocalPath)
		if err != nil {
			d.closers = append(d.closers, d.db.Close)
			d.close()
			return nil, err
		}
		cookies = d.db.Cookies()
		local = file
	}
	d.closers = append(d.closers, d.db.Close)

	d.client = api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(d.log.Logger),
	)
	d.session = auth.New(d.client, cookies, local,
		auth.WithLogger(d.log.Logger),
		auth.WithRememberDays(cfg.Session.RememberDays),
		auth.WithShortDays(cfg.Session.ShortDays),
		auth.WithKeys(cfg.Session.CookieName, cfg.Session.LocalTokenKey, cfg.Session.LocalUserKey),
		auth.WithKeepTokenOnServerError(cfg.Session.KeepTokenOnServerError),
	)
	d.log.Debug("session ready", "api", cfg.API.BaseURL, "ephemeral", cfg.Ephemeral)
	return d, nil
}

// close releases resources in reverse order of acquisition.
func (d *deps) close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
