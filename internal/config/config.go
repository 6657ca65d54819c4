// Package config reads the guestforge application settings from an INI
// style file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/gcfg.v1"

	"github.com/jbweber/guestforge/internal/libvirt"
	"github.com/jbweber/guestforge/internal/storage"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "/etc/guestforge/guestforge.conf"

// ConnectionParams locate the libvirt daemon.
type ConnectionParams struct {
	Socket string `gcfg:"socket"`
	// Timeout is a Go duration string such as "5s".
	Timeout string `gcfg:"timeout"`
}

// InstallParams place the files an install creates on the host.
type InstallParams struct {
	SeedDir     string `gcfg:"seed-dir"`
	DefaultPool string `gcfg:"default-pool"`
	// PollInterval is how often a staged install checks whether its
	// first stage has powered off.
	PollInterval string `gcfg:"poll-interval"`
}

// OSDictParams select an OS dictionary. An empty path means the
// built-in one.
type OSDictParams struct {
	Path string `gcfg:"path"`
}

type LogParams struct {
	Level string `gcfg:"level"`
}

// Config is the parsed configuration file.
type Config struct {
	Connection ConnectionParams
	Install    InstallParams
	OSDict     OSDictParams
	Log        LogParams
}

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		Connection: ConnectionParams{
			Socket:  libvirt.DefaultSocket,
			Timeout: libvirt.DefaultTimeout.String(),
		},
		Install: InstallParams{
			SeedDir:      "/var/lib/guestforge/seeds",
			DefaultPool:  storage.DefaultPool,
			PollInterval: libvirt.DefaultPollInterval.String(),
		},
		Log: LogParams{Level: "info"},
	}
}

// Load reads the file at path over the defaults. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	err := gcfg.ReadFileInto(cfg, path)
	if errors.Is(err, fs.ErrNotExist) {
		log.WithField("path", path).Debug("no config file, using defaults")
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads settings from a string over the defaults.
func Parse(data string) (*Config, error) {
	cfg := Default()
	if err := gcfg.ReadStringInto(cfg, data); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.ConnectTimeout(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := c.InstallPollInterval(); err != nil {
		return err
	}
	if dir := c.Install.SeedDir; dir != "" && !filepath.IsAbs(dir) {
		return fmt.Errorf("install.seed-dir must be an absolute path, got %q", dir)
	}
	return nil
}

// ConnectTimeout parses connection.timeout.
func (c *Config) ConnectTimeout() (time.Duration, error) {
	return parseDuration("connection.timeout", c.Connection.Timeout, libvirt.DefaultTimeout)
}

// InstallPollInterval parses install.poll-interval.
func (c *Config) InstallPollInterval() (time.Duration, error) {
	return parseDuration("install.poll-interval", c.Install.PollInterval, libvirt.DefaultPollInterval)
}

func parseDuration(key, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

// LogLevel is the configured logrus level. Load has already checked it.
func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
