package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at fresh temp dirs so no
// real config file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	wd := t.TempDir()
	originalWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(wd))
	t.Cleanup(func() { _ = os.Chdir(originalWd) })
	return wd
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		check   func(*testing.T, *Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			modify: func(c *Config) {},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, Default().Download, c.Download)
			},
		},
		{
			name: "empty endpoints take defaults",
			modify: func(c *Config) {
				c.GitHub.APIURL = ""
				c.GitHub.WebURL = ""
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultAPIURL, c.GitHub.APIURL)
				assert.Equal(t, DefaultWebURL, c.GitHub.WebURL)
			},
		},
		{
			name:    "api url without scheme",
			modify:  func(c *Config) { c.GitHub.APIURL = "api.github.com" },
			wantErr: true,
		},
		{
			name:    "web url with ftp scheme",
			modify:  func(c *Config) { c.GitHub.WebURL = "ftp://github.com" },
			wantErr: true,
		},
		{
			name: "enterprise endpoints",
			modify: func(c *Config) {
				c.GitHub.APIURL = "https://ghe.example.com/api/v3"
				c.GitHub.WebURL = "https://ghe.example.com"
			},
		},
		{
			name:   "timeout below minimum takes default",
			modify: func(c *Config) { c.Download.Timeout = 100 * time.Millisecond },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultDownloadTimeout, c.Download.Timeout)
			},
		},
		{
			name:   "api timeout below minimum takes default",
			modify: func(c *Config) { c.Download.APITimeout = 0 },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultAPITimeout, c.Download.APITimeout)
			},
		},
		{
			name:   "negative retries clamp to zero",
			modify: func(c *Config) { c.Download.MaxRetries = -2 },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 0, c.Download.MaxRetries)
			},
		},
		{
			name:   "retries clamp to limit",
			modify: func(c *Config) { c.Download.MaxRetries = 99 },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, MaxRetriesLimit, c.Download.MaxRetries)
			},
		},
		{
			name:   "empty output dir",
			modify: func(c *Config) { c.Download.OutputDir = "" },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultOutputDir, c.Download.OutputDir)
			},
		},
		{
			name:   "cache ttl below minimum",
			modify: func(c *Config) { c.Cache.TTL = time.Second },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultCacheTTL, c.Cache.TTL)
			},
		},
		{
			name:   "workers below minimum",
			modify: func(c *Config) { c.Concurrency.Workers = 0 },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultWorkers, c.Concurrency.Workers)
			},
		},
		{
			name: "unknown log level and format",
			modify: func(c *Config) {
				c.Logging.Level = "verbose"
				c.Logging.Format = "xml"
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultLogLevel, c.Logging.Level)
				assert.Equal(t, DefaultLogFormat, c.Logging.Format)
			},
		},
		{
			name:   "json format kept",
			modify: func(c *Config) { c.Logging.Format = "json" },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "json", c.Logging.Format)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultAPIURL, cfg.GitHub.APIURL)
	assert.Equal(t, DefaultWebURL, cfg.GitHub.WebURL)
	assert.Empty(t, cfg.GitHub.Token)
	assert.Equal(t, DefaultDownloadTimeout, cfg.Download.Timeout)
	assert.Equal(t, DefaultMaxRetries, cfg.Download.MaxRetries)
	assert.True(t, cfg.Download.Progress)
	assert.False(t, cfg.Download.Force)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, CacheDir(), cfg.Cache.Directory)
	assert.Equal(t, DefaultWorkers, cfg.Concurrency.Workers)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.GitHub.Token = "secret"

	red := cfg.Redacted()
	assert.Equal(t, "***", red.GitHub.Token)
	assert.Equal(t, "secret", cfg.GitHub.Token)

	cfg.GitHub.Token = ""
	assert.Empty(t, cfg.Redacted().GitHub.Token)
}

func TestPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, ".ghasset"), ConfigDir())
	assert.Equal(t, filepath.Join(home, ".ghasset", "cache"), CacheDir())
	assert.Equal(t, filepath.Join(home, ".ghasset", "config.yaml"), ConfigFilePath())

	require.NoError(t, EnsureConfigDir())
	require.NoError(t, EnsureCacheDir())
	assert.DirExists(t, CacheDir())
}

func TestLoad_MissingConfig(t *testing.T) {
	isolate(t)

	cfg, _, err := LoadWithViper()
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.GitHub.APIURL)
	assert.Equal(t, DefaultOutputDir, cfg.Download.OutputDir)
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	wd := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(wd, "config.yaml"), []byte("invalid: yaml: content: ["), 0644))

	cfg, _, err := LoadWithViper()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_ValidConfigFile(t *testing.T) {
	wd := isolate(t)
	content := `
github:
  api_url: "https://ghe.example.com/api/v3"
  web_url: "https://ghe.example.com"
download:
  timeout: 2m
  output_dir: "./dist"
  force: true
cache:
  enabled: true
logging:
  level: "debug"
`
	require.NoError(t, os.WriteFile(filepath.Join(wd, "config.yaml"), []byte(content), 0644))

	cfg, v, err := LoadWithViper()
	require.NoError(t, err)

	assert.Equal(t, "https://ghe.example.com/api/v3", cfg.GitHub.APIURL)
	assert.Equal(t, "https://ghe.example.com", cfg.GitHub.WebURL)
	assert.Equal(t, 2*time.Minute, cfg.Download.Timeout)
	assert.Equal(t, "./dist", cfg.Download.OutputDir)
	assert.True(t, cfg.Download.Force)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NotEmpty(t, v.ConfigFileUsed())
}

func TestLoad_InvalidEndpointInFile(t *testing.T) {
	wd := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(wd, "config.yaml"), []byte("github:\n  api_url: \"not a url\"\n"), 0644))

	_, _, err := LoadWithViper()
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	isolate(t)
	t.Setenv("GHASSET_DOWNLOAD_OUTPUT_DIR", "./env-output")
	t.Setenv("GHASSET_GITHUB_TOKEN_ENV", "MY_TOKEN")
	t.Setenv("GHASSET_CONCURRENCY_WORKERS", "8")

	cfg, _, err := LoadWithViper()
	require.NoError(t, err)

	assert.Equal(t, "./env-output", cfg.Download.OutputDir)
	assert.Equal(t, "MY_TOKEN", cfg.GitHub.TokenEnv)
	assert.Equal(t, 8, cfg.Concurrency.Workers)
}

func TestLoad_GlobalViper(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestConfigStructFieldTags(t *testing.T) {
	typ := reflect.TypeOf(Config{})
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		assert.NotEmpty(t, f.Tag.Get("mapstructure"), "field %s", f.Name)
		assert.NotEmpty(t, f.Tag.Get("yaml"), "field %s", f.Name)
	}
}
