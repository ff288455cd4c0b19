// Package config loads client settings from an optional file and CRF_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/crf-service/crf-sdk-go/sdk/constants"
)

const envPrefix = "CRF"

type Config struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Token    string        `mapstructure:"token"`
	LogLevel string        `mapstructure:"log_level"`
	// RateLimit is the number of requests per second; zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// Level parses LogLevel, falling back to info.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return level
}

func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base_url is required", constants.ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", constants.ErrInvalidConfig)
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("%w: rate limit must not be negative", constants.ErrInvalidConfig)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("%w: log_level: %w", constants.ErrInvalidConfig, err)
	}
	return nil
}

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("base_url", constants.DefaultServerAddress)
	v.SetDefault("timeout", time.Duration(constants.DefaultTimeoutMillis)*time.Millisecond)
	v.SetDefault("token", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("rate_limit", 0)
	v.SetDefault("rate_burst", 1)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path, when non-empty, on top of defaults and environment and
// validates the result.
func Load(path string) (Config, error) {
	return LoadWith(New(), path)
}

func LoadWith(v *viper.Viper, path string) (Config, error) {
	var cfg Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config parse error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
