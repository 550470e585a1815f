// Package github is a minimal REST client for the release endpoints used to
// resolve private release assets.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/quantmind-br/ghasset-go/internal/domain"
	"github.com/quantmind-br/ghasset-go/internal/fetcher"
	"github.com/quantmind-br/ghasset-go/internal/utils"
)

// DefaultAPIURL is the public GitHub REST API root
const DefaultAPIURL = "https://api.github.com"

var _ domain.ReleaseAPI = (*Client)(nil)

// Client performs authenticated JSON requests against the REST API
type Client struct {
	fetcher domain.Fetcher
	baseURL string
	token   string
	logger  *utils.Logger
}

// ClientOptions configures a Client
type ClientOptions struct {
	// BaseURL is the API root; GitHub Enterprise uses https://host/api/v3
	BaseURL string
	// Token is sent as "Authorization: token <Token>" when non-empty
	Token  string
	Logger *utils.Logger
}

// NewClient creates a client that performs requests through f
func NewClient(f domain.Fetcher, opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultAPIURL
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}

	return &Client{
		fetcher: f,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		logger:  opts.Logger.WithComponent("github"),
	}
}

// BaseURL implements domain.ReleaseAPI
func (c *Client) BaseURL() string {
	return c.baseURL
}

// OpenREST performs a GET on apiURL and decodes the JSON body into v.
// Every failure is reported as a *domain.APIError.
func (c *Client) OpenREST(ctx context.Context, apiURL string, v any) error {
	headers := map[string]string{
		"Accept": fetcher.AcceptJSON,
	}
	if c.token != "" {
		headers["Authorization"] = "token " + c.token
	}

	c.logger.Debug().Str("url", apiURL).Bool("authenticated", c.token != "").Msg("api request")

	resp, err := c.fetcher.GetWithHeaders(ctx, apiURL, headers)
	if err != nil {
		apiErr := &domain.APIError{URL: apiURL, Err: err}
		var fetchErr *domain.FetchError
		if errors.As(err, &fetchErr) {
			apiErr.StatusCode = fetchErr.StatusCode
		}
		return apiErr
	}

	if err := json.Unmarshal(resp.Body, v); err != nil {
		return &domain.APIError{
			URL:        apiURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}

	return nil
}

// ReleaseByTagURL returns the endpoint describing the release tagged tag
func (c *Client) ReleaseByTagURL(owner, repo, tag string) string {
	return ReleaseByTagURL(c.baseURL, owner, repo, tag)
}

// ReleaseByTagURL builds the release endpoint for an arbitrary API root.
// Segments come from a download URL and are already path-encoded, so they
// are interpolated as given.
func ReleaseByTagURL(baseURL, owner, repo, tag string) string {
	return repoURL(baseURL, owner, repo) + "/releases/tags/" + tag
}

// AssetURL returns the endpoint serving the asset's bytes when requested
// with Accept: application/octet-stream.
func (c *Client) AssetURL(owner, repo string, id domain.AssetID) string {
	return AssetURL(c.baseURL, owner, repo, id)
}

// AssetURL builds the asset endpoint for an arbitrary API root
func AssetURL(baseURL, owner, repo string, id domain.AssetID) string {
	return fmt.Sprintf("%s/releases/assets/%d", repoURL(baseURL, owner, repo), id)
}

func repoURL(baseURL, owner, repo string) string {
	return strings.TrimRight(baseURL, "/") + "/repos/" + owner + "/" + repo
}

// GetReleaseByTag fetches the release tagged tag. Release metadata may be
// served from the response cache.
func (c *Client) GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*domain.Release, error) {
	var rel domain.Release
	if err := c.OpenREST(fetcher.WithCache(ctx), c.ReleaseByTagURL(owner, repo, tag), &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}
