package domain

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/mock_interfaces.go -package=mocks . Fetcher,Downloader,ReleaseAPI,Cache,CredentialProvider

// Fetcher performs in-memory HTTP GETs
type Fetcher interface {
	// Get fetches content from a URL
	Get(ctx context.Context, url string) (*Response, error)
	// GetWithHeaders fetches content with custom headers
	GetWithHeaders(ctx context.Context, url string, headers map[string]string) (*Response, error)
	// Close releases resources
	Close() error
}

// Downloader streams a URL to a file. Retry, backoff and atomic
// placement of the file are the implementation's responsibility.
type Downloader interface {
	Download(ctx context.Context, url string, headers map[string]string, dest string, timeout time.Duration) error
}

// ReleaseAPI is the authenticated REST client for the hosting API
type ReleaseAPI interface {
	// OpenREST performs an authenticated GET and decodes the JSON body into v
	OpenREST(ctx context.Context, url string, v any) error
	// BaseURL returns the API root, e.g. https://api.github.com
	BaseURL() string
}

// Cache defines the interface for response caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a value in cache with TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Has checks if a key exists in cache
	Has(ctx context.Context, key string) bool
	// Delete removes a key from cache
	Delete(ctx context.Context, key string) error
	// Close releases cache resources
	Close() error
}

// CredentialProvider supplies an API token. ok is false when the
// provider has no token; err is reserved for lookups that broke.
type CredentialProvider interface {
	Name() string
	Token(ctx context.Context) (token string, ok bool, err error)
}
