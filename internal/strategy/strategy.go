package strategy

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/quantmind-br/ghasset-go/internal/cache"
	"github.com/quantmind-br/ghasset-go/internal/credentials"
	"github.com/quantmind-br/ghasset-go/internal/domain"
	"github.com/quantmind-br/ghasset-go/internal/fetcher"
	"github.com/quantmind-br/ghasset-go/internal/github"
	"github.com/quantmind-br/ghasset-go/internal/utils"
)

// Strategy defines a download strategy bound to one asset URL
type Strategy interface {
	// Name returns the strategy name
	Name() string
	// Locator returns the parsed asset coordinates
	Locator() domain.AssetLocator
	// AssetID resolves the numeric id of the asset
	AssetID(ctx context.Context) (domain.AssetID, error)
	// DownloadURL resolves the URL the bytes are fetched from
	DownloadURL(ctx context.Context) (string, error)
	// Fetch downloads the asset to dest
	Fetch(ctx context.Context, dest string, timeout time.Duration) error
}

// Dependencies contains the collaborators shared by every strategy instance
type Dependencies struct {
	Fetcher     *fetcher.Client
	API         domain.ReleaseAPI
	Cache       domain.Cache
	Credentials domain.CredentialProvider
	Parser      *Parser
	Logger      *utils.Logger

	// TokenSource names the provider that supplied the token, empty if none
	TokenSource string
}

// DependencyOptions contains options for creating dependencies
type DependencyOptions struct {
	APIURL      string
	WebURL      string
	Token       string
	TokenEnv    string
	Timeout     time.Duration
	MaxRetries  int
	EnableCache bool
	CacheTTL    time.Duration
	CacheDir    string
	UserAgent   string
	ProxyURL    string
	Progress    bool
	NoHelpers   bool
	// Credentials overrides the default credential chain
	Credentials domain.CredentialProvider
	Logger      *utils.Logger
}

// NewDependencies builds the transport, cache, API client and credentials.
// The token is looked up once here and shared by every instance.
func NewDependencies(ctx context.Context, opts DependencyOptions) (*Dependencies, error) {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	fetcherClient, err := fetcher.NewClient(fetcher.ClientOptions{
		Timeout:      opts.Timeout,
		MaxRetries:   opts.MaxRetries,
		EnableCache:  opts.EnableCache,
		CacheTTL:     opts.CacheTTL,
		UserAgent:    opts.UserAgent,
		ProxyURL:     opts.ProxyURL,
		ShowProgress: opts.Progress,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	var cacheImpl domain.Cache
	if opts.EnableCache {
		cacheImpl, err = cache.NewBadgerCache(cache.Options{
			Directory: opts.CacheDir,
			Namespace: cache.PrefixRelease,
		})
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		fetcherClient.SetCache(cacheImpl)
	}

	provider := opts.Credentials
	if provider == nil {
		var envVars []string
		if opts.TokenEnv != "" {
			envVars = []string{opts.TokenEnv, credentials.EnvHomebrewToken, credentials.EnvGitHubToken}
		}
		provider = credentials.DefaultChain(credentials.Options{
			Token:          opts.Token,
			EnvVars:        envVars,
			Host:           hostOf(opts.WebURL),
			DisableHelpers: opts.NoHelpers,
			Logger:         logger,
		})
	}

	token, source := lookupToken(ctx, provider)

	api := github.NewClient(fetcherClient, github.ClientOptions{
		BaseURL: opts.APIURL,
		Token:   token,
		Logger:  logger,
	})

	return &Dependencies{
		Fetcher:     fetcherClient,
		API:         api,
		Cache:       cacheImpl,
		Credentials: credentials.StaticProvider{Source: source, Value: token},
		Parser:      NewParser(opts.WebURL),
		Logger:      logger,
		TokenSource: source,
	}, nil
}

// lookupToken prefers Chain.Lookup so the source can be reported
func lookupToken(ctx context.Context, p domain.CredentialProvider) (token, source string) {
	if chain, ok := p.(*credentials.Chain); ok {
		return chain.Lookup(ctx)
	}
	token = credentials.Resolve(ctx, p)
	if token != "" {
		source = p.Name()
	}
	return token, source
}

// NewPrivateRelease creates a strategy instance for rawURL
func (d *Dependencies) NewPrivateRelease(ctx context.Context, rawURL string) (*PrivateRelease, error) {
	return NewPrivateRelease(ctx, rawURL, Options{
		API:         d.API,
		Downloader:  d.Fetcher,
		Credentials: d.Credentials,
		Parser:      d.Parser,
		Logger:      d.Logger,
	})
}

// Close releases all resources
func (d *Dependencies) Close() error {
	if d.Fetcher != nil {
		d.Fetcher.Close()
	}
	if d.Cache != nil {
		return d.Cache.Close()
	}
	return nil
}

func hostOf(webURL string) string {
	if webURL == "" {
		webURL = DefaultWebURL
	}
	u, err := url.Parse(webURL)
	if err != nil || u.Host == "" {
		return "github.com"
	}
	return u.Host
}

func releaseByTagURL(apiURL string, loc domain.AssetLocator) string {
	return github.ReleaseByTagURL(apiURL, loc.Owner, loc.Repo, loc.Tag)
}

func assetURL(apiURL string, loc domain.AssetLocator, id domain.AssetID) string {
	return github.AssetURL(apiURL, loc.Owner, loc.Repo, id)
}
