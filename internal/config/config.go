package config

import (
	"os"
	"time"

	"codeberg.org/veloq/bikectl/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultPollIntervalMs   = 5000
	DefaultRequestTimeoutMs = 4000
	DefaultOfflineThreshold = 3

	envPrefix  = "BIKECTL"
	envConfig  = "BIKECTL_CONFIG"
	configName = "bikectl"
)

type Config struct {
	BaseURL          string `mapstructure:"base_url"`
	PollIntervalMs   int    `mapstructure:"poll_interval_ms"`
	RequestTimeoutMs int    `mapstructure:"request_timeout_ms"`
	OfflineThreshold int    `mapstructure:"offline_threshold"`
	MetricsListen    string `mapstructure:"metrics_listen"`
	LogLevel         string `mapstructure:"log_level"`
	Debug            bool   `mapstructure:"debug"`
	Verbose          bool   `mapstructure:"verbose"`
}

// PollInterval returns the telemetry poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// RequestTimeout returns the per-request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// EffectiveLogLevel resolves the log level with the debug/verbose shortcuts
// taking precedence over log_level.
func (c *Config) EffectiveLogLevel() string {
	switch {
	case c.Debug:
		return string(LogLevelDebug)
	case c.Verbose:
		return string(LogLevelInfo)
	default:
		return c.LogLevel
	}
}

// Load reads configuration from flags, environment and the config file.
// Precedence: flags > environment > file > defaults. BIKECTL_CONFIG points
// at an explicit config file.
func Load(args []string) (*Config, error) {
	errFactory := errors.New()

	fs := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.String("base-url", "", "Device controller base URL (e.g. http://bike.local:5000/api)")
	fs.Int("poll-interval-ms", DefaultPollIntervalMs, "Telemetry poll interval in milliseconds")
	fs.Int("request-timeout-ms", DefaultRequestTimeoutMs, "Per-request timeout in milliseconds")
	fs.Int("offline-threshold", DefaultOfflineThreshold, "Consecutive poll failures before the device counts as offline")
	fs.String("metrics-listen", "", "Listen address for the Prometheus metrics endpoint (disabled when empty)")
	fs.String("log-level", DefaultLogLevel.String(), "Log level (debug, info, warning, error)")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetDefault("poll_interval_ms", DefaultPollIntervalMs)
	v.SetDefault("request_timeout_ms", DefaultRequestTimeoutMs)
	v.SetDefault("offline_threshold", DefaultOfflineThreshold)
	v.SetDefault("log_level", DefaultLogLevel.String())

	flagBindings := map[string]string{
		"base_url":           "base-url",
		"poll_interval_ms":   "poll-interval-ms",
		"request_timeout_ms": "request-timeout-ms",
		"offline_threshold":  "offline-threshold",
		"metrics_listen":     "metrics-listen",
		"log_level":          "log-level",
		"debug":              "debug",
		"verbose":            "verbose",
	}
	for key, name := range flagBindings {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	v.SetConfigName(configName)
	v.SetConfigType("toml")
	v.AddConfigPath("/etc/bikectl")
	v.AddConfigPath(".")
	if path := os.Getenv(envConfig); path != "" {
		v.SetConfigFile(path)
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the loaded configuration is usable.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.BaseURL == "" {
		return errFactory.New(errors.ErrMissingBaseURL)
	}
	if c.PollIntervalMs <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.PollIntervalMs)
	}
	if c.RequestTimeoutMs <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidInterval, "request_timeout_ms must be positive")
	}
	if c.OfflineThreshold < 1 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "offline_threshold must be at least 1")
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}
