// Package config loads pcaptree settings from file, environment and flags using viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PCAPTREE_LOG_LEVEL.
const EnvPrefix = "PCAPTREE"

// ErrConfigInvalid is wrapped by every validation failure.
var ErrConfigInvalid = errors.New("invalid configuration")

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config is the full configuration of a run.
type Config struct {
	// Limit is the number of packet blocks printed; 0 prints all of them.
	Limit  int         `mapstructure:"limit" yaml:"limit"`
	Color  string      `mapstructure:"color" yaml:"color"`
	Indent int         `mapstructure:"indent" yaml:"indent"`
	Log    LogConfig   `mapstructure:"log" yaml:"log"`
	Serve  ServeConfig `mapstructure:"serve" yaml:"serve"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string           `mapstructure:"level" yaml:"level"`
	Format string           `mapstructure:"format" yaml:"format"`
	File   FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures the optional rotated log file.
type FileOutputConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// ServeConfig configures the streaming server.
type ServeConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// flagKeys maps config keys to the flag names that override them.
var flagKeys = map[string]string{
	"limit":        "limit",
	"color":        "color",
	"indent":       "indent",
	"log.level":    "log-level",
	"serve.listen": "listen",
}

// Load builds the configuration. path may be empty, in which case only
// defaults, environment and flags apply. Flags that are not defined in
// flags are ignored.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("limit", 100)
	v.SetDefault("color", ColorAuto)
	v.SetDefault("indent", 4)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "pcaptree.log")
	v.SetDefault("log.file.max_size_mb", 10)
	v.SetDefault("log.file.max_backups", 3)
	v.SetDefault("log.file.max_age_days", 7)
	v.SetDefault("log.file.compress", false)

	v.SetDefault("serve.listen", ":8080")
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative, got %d", ErrConfigInvalid, c.Limit)
	}
	if c.Indent < 0 || c.Indent > 16 {
		return fmt.Errorf("%w: indent must be between 0 and 16, got %d", ErrConfigInvalid, c.Indent)
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("%w: unknown color mode %q", ErrConfigInvalid, c.Color)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unsupported log format %q (must be json or text)", ErrConfigInvalid, c.Log.Format)
	}
	if c.Log.File.Enabled && c.Log.File.Path == "" {
		return fmt.Errorf("%w: log file output requires a path", ErrConfigInvalid)
	}
	return nil
}
