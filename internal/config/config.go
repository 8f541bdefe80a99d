// Package config loads, validates and persists the server configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (WEBDAVD_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Server holds the HTTP listener settings.
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics configures the Prometheus scrape endpoint.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Auth selects how credentials are checked.
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// Shares lists the trees served below the URL root, one mount prefix
	// each.
	Shares []ShareConfig `mapstructure:"shares" yaml:"shares" validate:"min=1,dive"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// Listen is the address the WebDAV listener binds, for example
	// ":8000" or "127.0.0.1:8000".
	Listen string `mapstructure:"listen" yaml:"listen" validate:"required"`

	// ShutdownTimeout bounds the graceful shutdown on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum level to emit: trace, debug, info, warn or
	// error.
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=trace debug info warn error"`

	// Format is "json" or "console".
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=json console"`
}

// MetricsConfig configures the Prometheus scrape endpoint. When disabled
// no collectors are registered.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Listen is the address of the scrape listener, separate from the
	// WebDAV listener.
	Listen string `mapstructure:"listen" yaml:"listen,omitempty" validate:"required_if=Enabled true"`
}

// AuthConfig selects how credentials are checked.
type AuthConfig struct {
	// Mode is "static" for the users table below, or "debug" which
	// accepts username==password and must never reach production.
	Mode string `mapstructure:"mode" yaml:"mode" validate:"required,oneof=static debug"`

	// Users maps usernames to bcrypt password hashes. Generate entries
	// with "webdavd passwd".
	Users map[string]string `mapstructure:"users" yaml:"users,omitempty"`
}

// ShareConfig mounts one backend under a URL prefix.
type ShareConfig struct {
	// Prefix is the single-segment mount point, for example "/docs".
	Prefix string `mapstructure:"prefix" yaml:"prefix" validate:"required,startswith=/"`

	// Path roots the share at a directory. Mutually exclusive with Home.
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	// Home serves each user their own home directory instead of a fixed
	// path.
	Home bool `mapstructure:"home" yaml:"home,omitempty"`

	// Operator is "none" or "unix". The unix operator switches the
	// effective uid/gid to the requesting user and requires root.
	Operator string `mapstructure:"operator" yaml:"operator,omitempty" validate:"omitempty,oneof=none unix"`

	// AllowedPaths lists extra absolute directories the share may
	// resolve into, for trees that symlink outside their root.
	AllowedPaths []string `mapstructure:"allowed_paths" yaml:"allowed_paths,omitempty"`
}

// Load reads the configuration from path, the environment and defaults.
// An empty path falls back to the default location; a missing file yields
// the default configuration.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads the configuration and turns a missing file into an error
// telling the user how to create one.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Initialize one first:\n"+
				"  webdavd init\n\n"+
				"Or point at an existing file:\n"+
				"  webdavd serve --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Create it with:\n"+
			"  webdavd init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML. The file is created with owner-only
// permissions because it carries password hashes.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadFile reads path as YAML without applying defaults or validation.
// Commands that edit a half-built configuration, like passwd, use it
// instead of Load.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// GetDefaultConfig returns the configuration webdavd starts from when no
// file exists: one share under /files, static auth with no users yet.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Shares: []ShareConfig{
			{Prefix: "/files", Path: "/srv/webdav"},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in unset fields. Explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8000"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9090"
	}
	if cfg.Auth.Mode == "" {
		cfg.Auth.Mode = "static"
	}
	for i := range cfg.Shares {
		if cfg.Shares[i].Operator == "" {
			cfg.Shares[i].Operator = "none"
		}
	}
}

// Validate checks the struct tags plus the cross-field share rules the
// tags cannot express.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, share := range cfg.Shares {
		if strings.Contains(strings.TrimPrefix(share.Prefix, "/"), "/") {
			return fmt.Errorf("share %q: prefix must be a single path segment", share.Prefix)
		}
		if share.Prefix == "/" {
			return fmt.Errorf("share %q: the root cannot be a mount point", share.Prefix)
		}
		if seen[share.Prefix] {
			return fmt.Errorf("share %q: duplicate prefix", share.Prefix)
		}
		seen[share.Prefix] = true
		if share.Home == (share.Path != "") {
			return fmt.Errorf("share %q: exactly one of path or home must be set", share.Prefix)
		}
		for _, p := range share.AllowedPaths {
			if !filepath.IsAbs(p) {
				return fmt.Errorf("share %q: allowed path %q is not absolute", share.Prefix, p)
			}
		}
	}

	if cfg.Auth.Mode == "static" && len(cfg.Auth.Users) == 0 {
		return fmt.Errorf("auth mode %q requires at least one user", cfg.Auth.Mode)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the WEBDAVD_ prefix with underscores,
	// for example WEBDAVD_LOGGING_LEVEL=debug.
	v.SetEnvPrefix("WEBDAVD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if one exists. A missing
// file is not an error.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// getConfigDir returns the configuration directory: $XDG_CONFIG_HOME, then
// ~/.config, then the current directory as a last resort.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "webdavd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "webdavd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks for a config file at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir is getConfigDir exposed for the init command.
func GetConfigDir() string {
	return getConfigDir()
}
