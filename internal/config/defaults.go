package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values
const (
	// GitHub defaults
	DefaultAPIURL = "https://api.github.com"
	DefaultWebURL = "https://github.com"

	// Download defaults
	DefaultDownloadTimeout = 10 * time.Minute
	DefaultAPITimeout      = 30 * time.Second
	DefaultMaxRetries      = 3
	MaxRetriesLimit        = 10
	DefaultOutputDir       = "."
	DefaultProgress        = true

	// Concurrency defaults
	DefaultWorkers = 4

	// Cache defaults
	DefaultCacheEnabled = false
	DefaultCacheTTL     = 10 * time.Minute

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"
)

// EnvPrefix is the prefix of environment overrides, e.g. GHASSET_DOWNLOAD_TIMEOUT
const EnvPrefix = "GHASSET"

// ConfigDir returns the config directory path
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ghasset"
	}
	return filepath.Join(home, ".ghasset")
}

// CacheDir returns the cache directory path
func CacheDir() string {
	return filepath.Join(ConfigDir(), "cache")
}

// ConfigFilePath returns the config file path
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		GitHub: GitHubConfig{
			APIURL: DefaultAPIURL,
			WebURL: DefaultWebURL,
		},
		Download: DownloadConfig{
			Timeout:    DefaultDownloadTimeout,
			APITimeout: DefaultAPITimeout,
			MaxRetries: DefaultMaxRetries,
			OutputDir:  DefaultOutputDir,
			Force:      false,
			Progress:   DefaultProgress,
		},
		Cache: CacheConfig{
			Enabled:   DefaultCacheEnabled,
			TTL:       DefaultCacheTTL,
			Directory: CacheDir(),
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Concurrency: ConcurrencyConfig{
			Workers: DefaultWorkers,
		},
	}
}
