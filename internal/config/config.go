// Package config loads toolctl settings from flags, TOOLCTL_* environment
// variables and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/ag-ui/agent-tools/pkg/tools"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "TOOLCTL"

// Keys recognized in flags, environment and config files.
const (
	KeyConfig           = "config"
	KeyTimeout          = "timeout"
	KeyEnv              = "env"
	KeyLogLevel         = "log-level"
	KeyLogFormat        = "log-format"
	KeyBatchConcurrency = "batch-concurrency"
	KeyMaxConcurrent    = "max-concurrent"
	KeyRateLimit        = "rate-limit"
	KeyRateBurst        = "rate-burst"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds the resolved settings.
type Config struct {
	ConfigPath       string        `mapstructure:"config"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Env              string        `mapstructure:"env"`
	LogLevel         string        `mapstructure:"log-level"`
	LogFormat        string        `mapstructure:"log-format"`
	BatchConcurrency int           `mapstructure:"batch-concurrency"`
	MaxConcurrent    int           `mapstructure:"max-concurrent"`
	// RateLimit is calls per second per tool; 0 disables limiting
	RateLimit float64 `mapstructure:"rate-limit"`
	RateBurst int     `mapstructure:"rate-burst"`
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyConfig, "")
	v.SetDefault(KeyTimeout, tools.DefaultTimeout)
	v.SetDefault(KeyEnv, EnvDevelopment)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyBatchConcurrency, 0)
	v.SetDefault(KeyMaxConcurrent, 0)
	v.SetDefault(KeyRateLimit, 0.0)
	v.SetDefault(KeyRateBurst, 1)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags registers the settings on fs and binds them to v, so a changed
// flag wins over the environment and the config file.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.StringP(KeyConfig, "c", "", "config file (json, yaml or toml)")
	fs.Duration(KeyTimeout, tools.DefaultTimeout, "default tool execution timeout")
	fs.String(KeyEnv, EnvDevelopment, "environment: development or production (hides error stacks)")
	fs.String(KeyLogLevel, "info", "log level: trace, debug, info, warn, error")
	fs.String(KeyLogFormat, "text", "log format: text or json")
	fs.Int(KeyBatchConcurrency, 0, "maximum concurrent batch items (0 = unlimited)")
	fs.Int(KeyMaxConcurrent, 0, "maximum concurrent executions per engine (0 = unlimited)")
	fs.Float64(KeyRateLimit, 0, "per-tool calls per second (0 = unlimited)")
	fs.Int(KeyRateBurst, 1, "per-tool rate limit burst")

	for _, key := range []string{KeyConfig, KeyTimeout, KeyEnv, KeyLogLevel, KeyLogFormat, KeyBatchConcurrency, KeyMaxConcurrent, KeyRateLimit, KeyRateBurst} {
		if err := v.BindPFlag(key, fs.Lookup(key)); err != nil {
			return fmt.Errorf("bind flag %s: %w", key, err)
		}
	}
	return nil
}

// Load reads the config file named by the config key, if any, and decodes
// the merged settings.
func Load(v *viper.Viper) (*Config, error) {
	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid configuration: timeout must be positive, got %s", c.Timeout)
	}
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("invalid configuration: env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid configuration: log-format must be text or json, got %q", c.LogFormat)
	}
	if c.BatchConcurrency < 0 {
		return fmt.Errorf("invalid configuration: batch-concurrency cannot be negative")
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("invalid configuration: max-concurrent cannot be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("invalid configuration: rate-limit cannot be negative")
	}
	return nil
}

// Production reports whether error stacks should be hidden.
func (c *Config) Production() bool {
	return c.Env == EnvProduction
}

// ConfigureLogger applies level and format to logger.
func (c *Config) ConfigureLogger(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// EngineOptions translates the settings into engine options.
func (c *Config) EngineOptions() []tools.EngineOption {
	opts := []tools.EngineOption{
		tools.WithDefaultTimeout(c.Timeout),
		tools.WithProduction(c.Production()),
	}
	if c.BatchConcurrency > 0 {
		opts = append(opts, tools.WithBatchConcurrency(c.BatchConcurrency))
	}
	if c.MaxConcurrent > 0 {
		opts = append(opts, tools.WithMaxConcurrent(c.MaxConcurrent))
	}
	if c.RateLimit > 0 {
		opts = append(opts, tools.WithRateLimiter(tools.NewTokenBucketLimiter(rate.Limit(c.RateLimit), c.RateBurst)))
	}
	return opts
}
