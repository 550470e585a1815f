package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from file, environment, and defaults.
// Uses the global viper instance to access CLI flag bindings.
func Load() (*Config, error) {
	return load(viper.GetViper())
}

// LoadWithViper loads configuration into a fresh viper instance and
// returns it, e.g. to report which file was used.
func LoadWithViper() (*Config, *viper.Viper, error) {
	v := viper.New()
	cfg, err := load(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigDir())
	v.AddConfigPath(".")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	// Environment variables (GHASSET_*)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default values in viper. Every key needs a default for
// AutomaticEnv to pick up its environment override during Unmarshal.
func setDefaults(v *viper.Viper) {
	// GitHub defaults
	v.SetDefault("github.api_url", DefaultAPIURL)
	v.SetDefault("github.web_url", DefaultWebURL)
	v.SetDefault("github.token", "")
	v.SetDefault("github.token_env", "")
	v.SetDefault("github.user_agent", "")
	v.SetDefault("github.proxy_url", "")
	v.SetDefault("github.no_helpers", false)

	// Download defaults
	v.SetDefault("download.timeout", DefaultDownloadTimeout)
	v.SetDefault("download.api_timeout", DefaultAPITimeout)
	v.SetDefault("download.max_retries", DefaultMaxRetries)
	v.SetDefault("download.output_dir", DefaultOutputDir)
	v.SetDefault("download.force", false)
	v.SetDefault("download.progress", DefaultProgress)

	// Cache defaults
	v.SetDefault("cache.enabled", DefaultCacheEnabled)
	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("cache.directory", CacheDir())

	// Logging defaults
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)

	// Concurrency defaults
	v.SetDefault("concurrency.workers", DefaultWorkers)
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDir(), 0755)
}

// EnsureCacheDir creates the cache directory if it doesn't exist
func EnsureCacheDir() error {
	return os.MkdirAll(CacheDir(), 0755)
}
