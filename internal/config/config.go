package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config represents the application configuration
type Config struct {
	GitHub      GitHubConfig      `mapstructure:"github" yaml:"github"`
	Download    DownloadConfig    `mapstructure:"download" yaml:"download"`
	Cache       CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
}

// GitHubConfig contains API endpoint and credential settings. Token takes
// precedence over every discovered credential; TokenEnv names an extra
// environment variable checked before the standard ones.
type GitHubConfig struct {
	APIURL    string `mapstructure:"api_url" yaml:"api_url"`
	WebURL    string `mapstructure:"web_url" yaml:"web_url"`
	Token     string `mapstructure:"token" yaml:"token"`
	TokenEnv  string `mapstructure:"token_env" yaml:"token_env"`
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
	ProxyURL  string `mapstructure:"proxy_url" yaml:"proxy_url"`
	NoHelpers bool   `mapstructure:"no_helpers" yaml:"no_helpers"`
}

// DownloadConfig contains transfer settings
type DownloadConfig struct {
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	OutputDir  string        `mapstructure:"output_dir" yaml:"output_dir"`
	Force      bool          `mapstructure:"force" yaml:"force"`
	Progress   bool          `mapstructure:"progress" yaml:"progress"`
}

// CacheConfig contains release metadata cache settings
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Directory string        `mapstructure:"directory" yaml:"directory"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ConcurrencyConfig contains batch concurrency settings
type ConcurrencyConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// Validate replaces out-of-range values with defaults and rejects
// malformed endpoints.
func (c *Config) Validate() error {
	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = DefaultAPIURL
	}
	if c.GitHub.WebURL == "" {
		c.GitHub.WebURL = DefaultWebURL
	}
	if err := validateEndpoint("github.api_url", c.GitHub.APIURL); err != nil {
		return err
	}
	if err := validateEndpoint("github.web_url", c.GitHub.WebURL); err != nil {
		return err
	}

	if c.Download.Timeout < time.Second {
		c.Download.Timeout = DefaultDownloadTimeout
	}
	if c.Download.APITimeout < time.Second {
		c.Download.APITimeout = DefaultAPITimeout
	}
	if c.Download.MaxRetries < 0 {
		c.Download.MaxRetries = 0
	}
	if c.Download.MaxRetries > MaxRetriesLimit {
		c.Download.MaxRetries = MaxRetriesLimit
	}
	if c.Download.OutputDir == "" {
		c.Download.OutputDir = DefaultOutputDir
	}

	if c.Cache.TTL < time.Minute {
		c.Cache.TTL = DefaultCacheTTL
	}

	if c.Concurrency.Workers < 1 {
		c.Concurrency.Workers = DefaultWorkers
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format != "json" {
		c.Logging.Format = DefaultLogFormat
	}

	return nil
}

func validateEndpoint(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("invalid %s: scheme must be http or https: %q", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s: missing host: %q", field, raw)
	}
	return nil
}

// Redacted returns a copy safe to print
func (c *Config) Redacted() Config {
	out := *c
	if out.GitHub.Token != "" {
		out.GitHub.Token = "***"
	}
	return out
}
