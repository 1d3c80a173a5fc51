// Package config loads schedcli configuration from defaults, an optional
// config file, SCHEDCLI_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "SCHEDCLI"

// Supported display locales.
const (
	LocaleJA = "ja"
	LocaleEN = "en"
)

// Defaults.
const (
	DefaultAPIURL      = "http://localhost:8080/api"
	DefaultLocale      = LocaleJA
	DefaultAdminUserID = 1
	DefaultWebAddr     = "127.0.0.1:8081"
	DefaultMetricsAddr = ":9090"
)

// Config holds the resolved configuration.
type Config struct {
	// APIURL is the base path of the scheduling API, e.g. http://localhost:8080/api.
	APIURL string `mapstructure:"api_url"`

	// SessionFile is where the bearer token is persisted between runs.
	SessionFile string `mapstructure:"session_file"`

	// Timezone is the IANA zone the week grid is drawn in. Empty means local time.
	Timezone string `mapstructure:"timezone"`

	// Locale selects day-of-week abbreviations and the month-year title ("ja" or "en").
	Locale string `mapstructure:"locale"`

	// RequestTimeout bounds each API request. Zero disables the timeout.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// AdminUserID is the user id that gets the admin panel.
	AdminUserID int64 `mapstructure:"admin_user_id"`

	Log     LogConfig     `mapstructure:"log"`
	Web     WebConfig     `mapstructure:"web"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// WebConfig configures the local web UI started by `serve`.
type WebConfig struct {
	Addr string `mapstructure:"addr"`
	// CSRFKey is a 32-byte key, hex encoded. A random key is generated when empty.
	CSRFKey string `mapstructure:"csrf_key"`
}

// MetricsConfig configures the dedicated metrics server started by `serve`.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("session_file", DefaultSessionFile())
	v.SetDefault("timezone", "")
	v.SetDefault("locale", DefaultLocale)
	v.SetDefault("request_timeout", time.Duration(0))
	v.SetDefault("admin_user_id", DefaultAdminUserID)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("web.addr", DefaultWebAddr)
	v.SetDefault("web.csrf_key", "")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", DefaultMetricsAddr)
}

// Load resolves the configuration held by v. When configFile is empty the
// user config directory is searched for schedcli.{yaml,toml,json}; a missing
// file is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("schedcli")
		v.AddConfigPath(filepath.Join(userConfigDir(), "schedcli"))
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url must not be empty")
	}
	if c.SessionFile == "" {
		return fmt.Errorf("session_file must not be empty")
	}
	if c.Locale != LocaleJA && c.Locale != LocaleEN {
		return fmt.Errorf("invalid locale %q, must be one of: ja, en", c.Locale)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative, got %s", c.RequestTimeout)
	}
	if c.AdminUserID <= 0 {
		return fmt.Errorf("admin_user_id must be positive, got %d", c.AdminUserID)
	}
	return nil
}

// Location returns the display time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DefaultSessionFile returns the token file path under the user cache directory.
func DefaultSessionFile() string {
	return filepath.Join(userCacheDir(), "schedcli", "session.token")
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"LOCALAPPDATA", "TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return filepath.Join(homeDir(), ".config")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
