package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/quantmind-br/ghasset-go/internal/domain"
	"github.com/quantmind-br/ghasset-go/internal/utils"
)

var (
	_ domain.Fetcher    = (*Client)(nil)
	_ domain.Downloader = (*Client)(nil)
)

// Client is the HTTP transport shared by the API client and the asset downloader
type Client struct {
	tlsClient    tls_client.HttpClient
	userAgent    string
	timeout      time.Duration
	retrier      *Retrier
	cache        domain.Cache
	cacheEnabled bool
	cacheTTL     time.Duration
	showProgress bool
	logger       *utils.Logger
}

// ClientOptions contains options for creating a Client
type ClientOptions struct {
	// Timeout bounds in-memory requests (GetWithHeaders). Downloads take
	// their own timeout.
	Timeout      time.Duration
	MaxRetries   int
	EnableCache  bool
	CacheTTL     time.Duration
	Cache        domain.Cache
	UserAgent    string
	ProxyURL     string
	ShowProgress bool
	Logger       *utils.Logger
}

// DefaultClientOptions returns default client options
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:     60 * time.Second,
		MaxRetries:  3,
		EnableCache: false,
		CacheTTL:    10 * time.Minute,
		UserAgent:   "",
		ProxyURL:    "",
	}
}

// NewClient creates a new HTTP client
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}

	// Deadlines come from request contexts; a client-wide timeout would cut
	// off long binary transfers.
	tlsOpts := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(0),
		tls_client.WithClientProfile(profiles.Chrome_131),
	}

	if opts.ProxyURL != "" {
		tlsOpts = append(tlsOpts, tls_client.WithProxyUrl(opts.ProxyURL))
	}

	tlsClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), tlsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tls client: %w", err)
	}

	retrier := NewRetrier(RetrierOptions{
		MaxRetries:      opts.MaxRetries,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		Logger:          opts.Logger,
	})

	return &Client{
		tlsClient:    tlsClient,
		userAgent:    opts.UserAgent,
		timeout:      opts.Timeout,
		retrier:      retrier,
		cache:        opts.Cache,
		cacheEnabled: opts.EnableCache,
		cacheTTL:     opts.CacheTTL,
		showProgress: opts.ShowProgress,
		logger:       opts.Logger.WithComponent("fetcher"),
	}, nil
}

// Get fetches content from a URL
func (c *Client) Get(ctx context.Context, url string) (*domain.Response, error) {
	return c.GetWithHeaders(ctx, url, nil)
}

// GetWithHeaders fetches content with custom headers into memory.
// Only requests whose context was marked by WithCache consult the cache.
func (c *Client) GetWithHeaders(ctx context.Context, url string, extraHeaders map[string]string) (*domain.Response, error) {
	mode := cacheModeFrom(ctx)
	useCache := c.cacheEnabled && c.cache != nil && mode != cacheOff
	key := cacheKey(url, extraHeaders)

	if useCache && mode != cacheRefresh {
		cached, err := c.getFromCache(ctx, key, url)
		if err == nil && cached != nil {
			c.logger.Debug().Str("url", url).Msg("cache hit")
			return cached, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp *domain.Response
	err := c.retrier.Retry(ctx, func() error {
		var err error
		resp, err = c.doRequest(ctx, url, extraHeaders)
		return err
	})
	if err != nil {
		return nil, err
	}

	if useCache && resp != nil {
		_ = c.saveToCache(ctx, key, resp)
	}

	return resp, nil
}

// newRequest builds a GET with base headers followed by extraHeaders
func (c *Client) newRequest(ctx context.Context, targetURL string, extraHeaders map[string]string) (*fhttp.Request, error) {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range BaseHeaders(c.userAgent) {
		req.Header.Set(k, v)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	return req, nil
}

// send performs the request and converts error statuses into typed errors.
// On success the caller owns resp.Body.
func (c *Client) send(req *fhttp.Request) (*fhttp.Response, error) {
	targetURL := req.URL.String()

	resp, err := c.tlsClient.Do(req)
	if err != nil {
		return nil, &domain.FetchError{
			URL: targetURL,
			Err: fmt.Errorf("request failed: %w", err),
		}
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

		fetchErr := &domain.FetchError{
			URL:        targetURL,
			StatusCode: resp.StatusCode,
			Err:        statusMessage(resp.StatusCode, body),
		}
		if ShouldRetryStatus(resp.StatusCode) {
			return nil, &domain.RetryableError{
				Err:        fetchErr,
				RetryAfter: int(ParseRetryAfter(resp.Header.Get("Retry-After")).Seconds()),
			}
		}
		return nil, fetchErr
	}

	return resp, nil
}

// doRequest performs a single in-memory request
func (c *Client) doRequest(ctx context.Context, targetURL string, extraHeaders map[string]string) (*domain.Response, error) {
	req, err := c.newRequest(ctx, targetURL, extraHeaders)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{URL: targetURL, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	return &domain.Response{
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         targetURL,
		FromCache:   false,
	}, nil
}

// statusMessage renders an HTTP error status with a short body excerpt
func statusMessage(status int, body []byte) error {
	const maxExcerpt = 512
	if len(body) == 0 {
		return fmt.Errorf("HTTP %d", status)
	}
	if len(body) > maxExcerpt {
		body = body[:maxExcerpt]
	}
	return fmt.Errorf("HTTP %d: %s", status, body)
}

// Close releases client resources
func (c *Client) Close() error {
	// tls-client has no Close; kept for domain.Fetcher
	return nil
}

type cacheMode int

const (
	cacheOff cacheMode = iota
	cacheOn
	cacheRefresh
)

type cacheModeKey struct{}

// WithCache marks requests made with ctx as cacheable. It leaves a
// refresh requested by WithCacheRefresh in place.
func WithCache(ctx context.Context) context.Context {
	if cacheModeFrom(ctx) == cacheRefresh {
		return ctx
	}
	return context.WithValue(ctx, cacheModeKey{}, cacheOn)
}

// WithCacheRefresh makes cacheable requests skip the cached copy and
// store the fresh response in its place.
func WithCacheRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheModeKey{}, cacheRefresh)
}

func cacheModeFrom(ctx context.Context) cacheMode {
	mode, _ := ctx.Value(cacheModeKey{}).(cacheMode)
	return mode
}

// cacheKey separates responses by credential: an anonymous response is
// never served to an authenticated request, nor one token's to another.
func cacheKey(url string, headers map[string]string) string {
	auth := headers["Authorization"]
	if auth == "" {
		return url + "|anon"
	}
	sum := sha256.Sum256([]byte(auth))
	return url + "|auth:" + hex.EncodeToString(sum[:8])
}

// getFromCache retrieves a response from cache
func (c *Client) getFromCache(ctx context.Context, key, url string) (*domain.Response, error) {
	if c.cache == nil {
		return nil, domain.ErrCacheMiss
	}

	data, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	return &domain.Response{
		StatusCode: 200,
		Body:       data,
		URL:        url,
		FromCache:  true,
	}, nil
}

// saveToCache saves a response to cache
func (c *Client) saveToCache(ctx context.Context, key string, resp *domain.Response) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Set(ctx, key, resp.Body, c.cacheTTL)
}

// SetCache sets the cache implementation
func (c *Client) SetCache(cache domain.Cache) {
	c.cache = cache
}

// SetCacheEnabled enables or disables caching
func (c *Client) SetCacheEnabled(enabled bool) {
	c.cacheEnabled = enabled
}

// SetShowProgress toggles the per-download byte progress bar
func (c *Client) SetShowProgress(show bool) {
	c.showProgress = show
}
