package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the svcctl configuration
type Config struct {
	// Backend selects the default control backend by name; the CLI
	// flag overrides it per invocation
	Backend string `mapstructure:"backend"`

	Control ControlConfig `mapstructure:"control"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ControlConfig holds backend behavior resolved once at startup
type ControlConfig struct {
	// RuntimeDir holds the per-service status lock files
	RuntimeDir string `mapstructure:"runtime_dir"`

	// AllowSpawn gates the standard backend's Start capability
	AllowSpawn bool `mapstructure:"allow_spawn"`

	// AllowUnitStart gates the binder backend's Start capability
	AllowUnitStart bool `mapstructure:"allow_unit_start"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	Console    bool   `mapstructure:"console"`
}

// Load reads the configuration from the given path (or the platform
// default when empty), applies environment overrides and validates the
// result. A missing config file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = GetDefaultConfigPath()
	}
	v.SetConfigFile(path)

	v.SetEnvPrefix("SVCCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := GetPlatformDefaults()

	v.SetDefault("backend", "standard")
	v.SetDefault("control.runtime_dir", defaults.RuntimeDir)
	v.SetDefault("control.allow_spawn", true)
	v.SetDefault("control.allow_unit_start", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", defaults.LogFile)
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.console", true)
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Backend == "" {
		return fmt.Errorf("backend is required")
	}
	if err := c.Control.validate(); err != nil {
		return err
	}
	return c.Logging.validate()
}

func (c *ControlConfig) validate() error {
	if c.RuntimeDir == "" {
		return fmt.Errorf("control.runtime_dir is required")
	}
	if !filepath.IsAbs(c.RuntimeDir) {
		return fmt.Errorf("control.runtime_dir must be an absolute path, got %q", c.RuntimeDir)
	}
	return nil
}

func (c *LoggingConfig) validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Level)
	}
	if c.MaxSizeMB <= 0 {
		return fmt.Errorf("logging.max_size_mb must be positive, got %d", c.MaxSizeMB)
	}
	if c.MaxBackups < 0 {
		return fmt.Errorf("logging.max_backups must not be negative, got %d", c.MaxBackups)
	}
	return nil
}
