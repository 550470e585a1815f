package strategy

import (
	"context"
	"sync"
	"time"

	"github.com/quantmind-br/ghasset-go/internal/domain"
	"github.com/quantmind-br/ghasset-go/internal/fetcher"
	"github.com/quantmind-br/ghasset-go/internal/utils"
)

// Name of the private release strategy
const Name = "github-private-release"

// Request headers for binary asset downloads. Without the octet-stream
// Accept header the assets endpoint answers with JSON metadata.
const (
	HeaderAccept        = "Accept"
	HeaderAuthorization = "Authorization"
	AcceptOctetStream   = "application/octet-stream"
)

// PrivateRelease downloads one asset of a private repository release
// through the REST API. An instance covers a single download lifecycle:
// construct, resolve the asset id on first use, fetch.
type PrivateRelease struct {
	url        string
	locator    domain.AssetLocator
	api        domain.ReleaseAPI
	downloader domain.Downloader
	token      string
	logger     *utils.Logger

	resolveOnce sync.Once
	assetID     domain.AssetID
	resolveErr  error
}

var _ Strategy = (*PrivateRelease)(nil)

// Options contains the collaborators of a PrivateRelease
type Options struct {
	API         domain.ReleaseAPI
	Downloader  domain.Downloader
	Credentials domain.CredentialProvider
	// Parser defaults to one matching https://github.com
	Parser *Parser
	Logger *utils.Logger
}

// NewPrivateRelease parses rawURL and resolves the token. A URL that is not
// a release download URL fails with domain.ErrInvalidURLPattern. A missing
// token is not an error.
func NewPrivateRelease(ctx context.Context, rawURL string, opts Options) (*PrivateRelease, error) {
	parser := opts.Parser
	if parser == nil {
		parser = defaultParser
	}

	loc, err := parser.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	var token string
	if opts.Credentials != nil {
		// lookup failures downgrade to an unauthenticated request
		if tok, ok, err := opts.Credentials.Token(ctx); err == nil && ok {
			token = tok
		}
	}

	return &PrivateRelease{
		url:        rawURL,
		locator:    loc,
		api:        opts.API,
		downloader: opts.Downloader,
		token:      token,
		logger:     logger.WithAsset(loc.Owner, loc.Repo, loc.Tag, loc.Filename),
	}, nil
}

// Name implements Strategy
func (s *PrivateRelease) Name() string {
	return Name
}

// URL returns the release download URL the instance was built from
func (s *PrivateRelease) URL() string {
	return s.url
}

// Locator implements Strategy
func (s *PrivateRelease) Locator() domain.AssetLocator {
	return s.locator
}

// Authenticated reports whether a token was found
func (s *PrivateRelease) Authenticated() bool {
	return s.token != ""
}

// AssetID returns the id of the asset named after the URL's filename. The
// release is looked up once per instance; later calls, concurrent ones
// included, return the first outcome without another request.
func (s *PrivateRelease) AssetID(ctx context.Context) (domain.AssetID, error) {
	s.resolveOnce.Do(func() {
		s.assetID, s.resolveErr = s.resolveAssetID(ctx)
	})
	return s.assetID, s.resolveErr
}

func (s *PrivateRelease) resolveAssetID(ctx context.Context) (domain.AssetID, error) {
	var rel domain.Release
	releaseURL := releaseByTagURL(s.api.BaseURL(), s.locator)

	s.logger.Debug().Str("url", releaseURL).Msg("resolving asset id")

	// release metadata is the one response worth caching
	if err := s.api.OpenREST(fetcher.WithCache(ctx), releaseURL, &rel); err != nil {
		return 0, err
	}

	asset, ok := rel.FindAsset(s.locator.Filename)
	if !ok {
		return 0, &domain.AssetNotFoundError{
			Owner:    s.locator.Owner,
			Repo:     s.locator.Repo,
			Tag:      s.locator.Tag,
			Filename: s.locator.Filename,
		}
	}

	s.logger.Debug().Int64("asset_id", int64(asset.ID)).Msg("resolved asset id")
	return asset.ID, nil
}

// DownloadURL returns the API endpoint serving the asset's bytes
func (s *PrivateRelease) DownloadURL(ctx context.Context) (string, error) {
	id, err := s.AssetID(ctx)
	if err != nil {
		return "", err
	}
	return assetURL(s.api.BaseURL(), s.locator, id), nil
}

// Headers returns the headers sent with the binary download. Authorization
// is present even without a token.
func (s *PrivateRelease) Headers() map[string]string {
	return map[string]string{
		HeaderAccept:        AcceptOctetStream,
		HeaderAuthorization: "token " + s.token,
	}
}

// Fetch downloads the asset to dest. Errors from the API client and the
// downloader are returned as they are.
func (s *PrivateRelease) Fetch(ctx context.Context, dest string, timeout time.Duration) error {
	downloadURL, err := s.DownloadURL(ctx)
	if err != nil {
		return err
	}

	s.logger.Info().Str("dest", dest).Msg("downloading asset")

	if err := s.downloader.Download(ctx, downloadURL, s.Headers(), dest, timeout); err != nil {
		return err
	}

	s.logger.Info().Str("dest", dest).Msg("asset downloaded")
	return nil
}
