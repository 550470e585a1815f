package fetcher

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/quantmind-br/ghasset-go/internal/domain"
	"github.com/stretchr/testify/assert"
)

func fastRetrier(maxRetries int) *Retrier {
	return NewRetrier(RetrierOptions{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	})
}

func retryable503() error {
	return &domain.RetryableError{
		Err: &domain.FetchError{StatusCode: 503, Err: http.ErrHandlerTimeout},
	}
}

func TestDefaultRetrierOptions(t *testing.T) {
	opts := DefaultRetrierOptions()

	assert.Equal(t, 3, opts.MaxRetries)
	assert.Equal(t, 1*time.Second, opts.InitialInterval)
	assert.Equal(t, 30*time.Second, opts.MaxInterval)
	assert.Equal(t, 2.0, opts.Multiplier)
}

func TestNewRetrier(t *testing.T) {
	tests := []struct {
		name  string
		opts  RetrierOptions
		check func(t *testing.T, r *Retrier)
	}{
		{
			name: "with valid options",
			opts: RetrierOptions{
				MaxRetries:      5,
				InitialInterval: 2 * time.Second,
				MaxInterval:     60 * time.Second,
				Multiplier:      3.0,
			},
			check: func(t *testing.T, r *Retrier) {
				assert.Equal(t, 5, r.maxRetries)
				assert.Equal(t, 2*time.Second, r.initialInterval)
				assert.Equal(t, 60*time.Second, r.maxInterval)
				assert.Equal(t, 3.0, r.multiplier)
			},
		},
		{
			name: "zero max retries defaults to 3",
			opts: RetrierOptions{},
			check: func(t *testing.T, r *Retrier) {
				assert.Equal(t, 3, r.MaxRetries())
			},
		},
		{
			name: "negative max retries means none",
			opts: RetrierOptions{MaxRetries: -1},
			check: func(t *testing.T, r *Retrier) {
				assert.Equal(t, 0, r.MaxRetries())
			},
		},
		{
			name: "zero intervals take defaults",
			opts: RetrierOptions{},
			check: func(t *testing.T, r *Retrier) {
				assert.Equal(t, 1*time.Second, r.initialInterval)
				assert.Equal(t, 30*time.Second, r.maxInterval)
				assert.Equal(t, 2.0, r.multiplier)
				assert.NotNil(t, r.logger)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, NewRetrier(tt.opts))
		})
	}
}

func TestRetrier_Retry(t *testing.T) {
	t.Run("succeeds on first attempt", func(t *testing.T) {
		attempts := 0
		err := fastRetrier(3).Retry(context.Background(), func() error {
			attempts++
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("retries on retryable error", func(t *testing.T) {
		attempts := 0
		err := fastRetrier(3).Retry(context.Background(), func() error {
			attempts++
			if attempts < 2 {
				return retryable503()
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 2, attempts)
	})

	t.Run("fails after max retries", func(t *testing.T) {
		attempts := 0
		err := fastRetrier(2).Retry(context.Background(), func() error {
			attempts++
			return retryable503()
		})

		assert.Error(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		attempts := 0
		notFound := domain.NewFetchError("u", 404, errors.New("HTTP 404"))
		err := fastRetrier(3).Retry(context.Background(), func() error {
			attempts++
			return notFound
		})

		assert.ErrorIs(t, err, notFound)
		assert.Equal(t, 1, attempts)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := fastRetrier(3).Retry(ctx, func() error {
			return retryable503()
		})

		assert.Error(t, err)
	})
}

func TestShouldRetryStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		expected   bool
	}{
		{"429 Too Many Requests", 429, true},
		{"502 Bad Gateway", 502, true},
		{"503 Service Unavailable", 503, true},
		{"504 Gateway Timeout", 504, true},
		{"520 edge", 520, true},
		{"530 edge", 530, true},
		{"401 Unauthorized", 401, false},
		{"403 Forbidden", 403, false},
		{"404 Not Found", 404, false},
		{"500 Internal Server Error", 500, false},
		{"200 OK", 200, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldRetryStatus(tt.statusCode))
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected time.Duration
	}{
		{"seconds value", "120", 120 * time.Second},
		{"padded", " 5 ", 5 * time.Second},
		{"zero", "0", 0},
		{"negative", "-3", 0},
		{"empty", "", 0},
		{"garbage", "soon", 0},
		{"past date", "Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseRetryAfter(tt.header))
		})
	}

	t.Run("future date", func(t *testing.T) {
		at := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
		d := ParseRetryAfter(at)
		assert.Greater(t, d, 58*time.Minute)
		assert.LessOrEqual(t, d, time.Hour)
	})
}
