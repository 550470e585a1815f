package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrInvalidURLPattern indicates the URL is not a release-asset download URL
	ErrInvalidURLPattern = errors.New("invalid URL pattern for GitHub release asset")

	// ErrAssetNotFound indicates the release has no asset with the requested filename
	ErrAssetNotFound = errors.New("asset file not found")

	// ErrCacheMiss indicates a cache miss
	ErrCacheMiss = errors.New("cache miss")

	// ErrRateLimited indicates rate limiting was encountered
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates a timeout occurred
	ErrTimeout = errors.New("timeout")

	// ErrEmptyDestination indicates a download was requested without a destination path
	ErrEmptyDestination = errors.New("destination path is empty")
)

// AssetNotFoundError is returned when a release lists no asset named Filename.
type AssetNotFoundError struct {
	Owner    string
	Repo     string
	Tag      string
	Filename string
}

func (e *AssetNotFoundError) Error() string {
	return fmt.Sprintf("%v: %q in %s/%s@%s", ErrAssetNotFound, e.Filename, e.Owner, e.Repo, e.Tag)
}

// Is reports ErrAssetNotFound as the error's kind.
func (e *AssetNotFoundError) Is(target error) bool {
	return target == ErrAssetNotFound
}

// FetchError represents an error during fetching
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError
func NewFetchError(url string, statusCode int, err error) *FetchError {
	return &FetchError{
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// APIError represents a failed call to the hosting REST API.
type APIError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("github api error for %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("github api error for %s: %v", e.URL, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// RetryableError indicates an error that can be retried
type RetryableError struct {
	Err        error
	RetryAfter int // Seconds to wait before retry, 0 if unknown
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("retryable error (retry after %ds): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("retryable error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return true
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		switch fetchErr.StatusCode {
		case 429, 503, 502, 504:
			return true
		}
		// Cloudflare-style edge errors
		if fetchErr.StatusCode >= 520 && fetchErr.StatusCode <= 530 {
			return true
		}
	}

	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}

// Failure stages reported by Stage
const (
	StagePattern  = "pattern"
	StageAsset    = "asset"
	StageAPI      = "api"
	StageDownload = "download"
	StageUnknown  = "unknown"
)

// Stage classifies err by the step of the download lifecycle that produced it.
func Stage(err error) string {
	var apiErr *APIError
	var fetchErr *FetchError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidURLPattern):
		return StagePattern
	case errors.Is(err, ErrAssetNotFound):
		return StageAsset
	case errors.As(err, &apiErr):
		return StageAPI
	case errors.As(err, &fetchErr), errors.Is(err, ErrEmptyDestination):
		return StageDownload
	default:
		return StageUnknown
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
