package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quantmind-br/ghasset-go/internal/config"
	"github.com/quantmind-br/ghasset-go/internal/domain"
	"github.com/quantmind-br/ghasset-go/internal/fetcher"
	"github.com/quantmind-br/ghasset-go/internal/manifest"
	"github.com/quantmind-br/ghasset-go/internal/state"
	"github.com/quantmind-br/ghasset-go/internal/strategy"
	"github.com/quantmind-br/ghasset-go/internal/utils"
)

// StrategyFactory creates the strategy handling rawURL
type StrategyFactory func(ctx context.Context, rawURL string, deps *strategy.Dependencies) (strategy.Strategy, error)

// Orchestrator coordinates asset downloads
type Orchestrator struct {
	config          *config.Config
	deps            *strategy.Dependencies
	logger          *utils.Logger
	strategyFactory StrategyFactory
}

// OrchestratorOptions contains options for creating an orchestrator
type OrchestratorOptions struct {
	domain.CommonOptions
	Config *config.Config
	// Output is the destination file of a single download. Empty means
	// the asset's filename inside Config.Download.OutputDir.
	Output  string
	Timeout time.Duration
	// Credentials overrides the default credential chain
	Credentials     domain.CredentialProvider
	StrategyFactory StrategyFactory
	Logger          *utils.Logger
}

// NewOrchestrator creates a new orchestrator with the given configuration
func NewOrchestrator(ctx context.Context, opts OrchestratorOptions) (*Orchestrator, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := opts.Logger
	if logger == nil {
		logLevel := cfg.Logging.Level
		if opts.Verbose {
			logLevel = "debug"
		}
		logger = utils.NewLogger(utils.LoggerOptions{
			Level:   logLevel,
			Format:  cfg.Logging.Format,
			Verbose: opts.Verbose,
		})
	}

	// config uses 0 for "no retries", the fetcher for "default"
	maxRetries := cfg.Download.MaxRetries
	if maxRetries == 0 {
		maxRetries = -1
	}

	deps, err := strategy.NewDependencies(ctx, strategy.DependencyOptions{
		APIURL:      cfg.GitHub.APIURL,
		WebURL:      cfg.GitHub.WebURL,
		Token:       cfg.GitHub.Token,
		TokenEnv:    cfg.GitHub.TokenEnv,
		Timeout:     cfg.Download.APITimeout,
		MaxRetries:  maxRetries,
		EnableCache: cfg.Cache.Enabled,
		CacheTTL:    cfg.Cache.TTL,
		CacheDir:    utils.ExpandPath(cfg.Cache.Directory),
		UserAgent:   cfg.GitHub.UserAgent,
		ProxyURL:    cfg.GitHub.ProxyURL,
		Progress:    cfg.Download.Progress && opts.Progress,
		NoHelpers:   cfg.GitHub.NoHelpers,
		Credentials: opts.Credentials,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dependencies: %w", err)
	}

	factory := opts.StrategyFactory
	if factory == nil {
		factory = func(ctx context.Context, rawURL string, d *strategy.Dependencies) (strategy.Strategy, error) {
			return d.NewPrivateRelease(ctx, rawURL)
		}
	}

	return &Orchestrator{
		config:          cfg,
		deps:            deps,
		logger:          logger,
		strategyFactory: factory,
	}, nil
}

// Dependencies exposes the shared collaborators, e.g. for diagnostics
func (o *Orchestrator) Dependencies() *strategy.Dependencies {
	return o.deps
}

// newStrategy validates rawURL and builds its strategy
func (o *Orchestrator) newStrategy(ctx context.Context, rawURL string) (strategy.Strategy, error) {
	if err := o.ValidateURL(rawURL); err != nil {
		return nil, err
	}
	return o.strategyFactory(ctx, rawURL, o.deps)
}

// ValidateURL checks if the URL can be processed
func (o *Orchestrator) ValidateURL(rawURL string) error {
	st := DetectSource(rawURL)
	if st != SourceReleaseAsset {
		return fmt.Errorf("%w: %s (%s)", domain.ErrInvalidURLPattern, rawURL, st.Hint())
	}
	return nil
}

// Resolution describes where an asset would be downloaded from
type Resolution struct {
	Locator     domain.AssetLocator `json:"locator" yaml:"locator"`
	AssetID     domain.AssetID      `json:"asset_id" yaml:"asset_id"`
	DownloadURL string              `json:"download_url" yaml:"download_url"`
	TokenSource string              `json:"token_source" yaml:"token_source"`
}

// Resolve looks up the asset without downloading it
func (o *Orchestrator) Resolve(ctx context.Context, rawURL string) (*Resolution, error) {
	s, err := o.newStrategy(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	id, err := s.AssetID(ctx)
	if err != nil {
		return nil, err
	}
	downloadURL, err := s.DownloadURL(ctx)
	if err != nil {
		return nil, err
	}

	return &Resolution{
		Locator:     s.Locator(),
		AssetID:     id,
		DownloadURL: downloadURL,
		TokenSource: o.deps.TokenSource,
	}, nil
}

// Run downloads the asset behind rawURL
func (o *Orchestrator) Run(ctx context.Context, rawURL string, opts OrchestratorOptions) (*domain.DownloadResult, error) {
	startTime := time.Now()

	s, err := o.newStrategy(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return o.download(ctx, s, opts, startTime)
}

// download places the asset of s at opts.Output, or at its filename in
// the configured output directory.
func (o *Orchestrator) download(ctx context.Context, s strategy.Strategy, opts OrchestratorOptions, startTime time.Time) (*domain.DownloadResult, error) {
	loc := s.Locator()
	log := o.logger.WithAsset(loc.Owner, loc.Repo, loc.Tag, loc.Filename)

	dest := opts.Output
	if dest == "" {
		var ok bool
		dest, ok = utils.DestinationFor(o.config.Download.OutputDir, loc.Filename)
		if !ok {
			return nil, fmt.Errorf("cannot derive a file name from asset %q; pass an explicit output", loc.Filename)
		}
	} else {
		dest = utils.ExpandPath(dest)
	}

	result := &domain.DownloadResult{Locator: loc, Destination: dest}

	if utils.FileExists(dest) && !(opts.Force || o.config.Download.Force) {
		log.Info().Str("dest", dest).Msg("Asset already downloaded, skipping (use --force to overwrite)")
		result.Skipped = true
		return result, nil
	}

	if opts.DryRun {
		downloadURL, err := s.DownloadURL(ctx)
		if err != nil {
			return nil, err
		}
		result.AssetID, _ = s.AssetID(ctx)
		log.Info().
			Str("download_url", downloadURL).
			Str("dest", dest).
			Msg("Dry run, not downloading")
		return result, nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = o.config.Download.Timeout
	}

	if err := s.Fetch(ctx, dest, timeout); err != nil {
		if ctx.Err() != nil {
			log.Warn().Msg("Download cancelled")
			return nil, ctx.Err()
		}
		return nil, err
	}

	result.AssetID, _ = s.AssetID(ctx)
	result.Duration = time.Since(startTime)

	log.Info().
		Str("dest", dest).
		Dur("duration", result.Duration).
		Msg("Download completed")

	return result, nil
}

// Close releases all resources held by the orchestrator
func (o *Orchestrator) Close() error {
	if o.deps != nil {
		return o.deps.Close()
	}
	return nil
}

// ManifestResult represents the result of processing one manifest source
type ManifestResult struct {
	Source   manifest.Source
	Result   *domain.DownloadResult
	Error    error
	Duration time.Duration
}

// RunManifest downloads every source of the manifest. Results are
// index-aligned with the manifest's sources.
func (o *Orchestrator) RunManifest(
	ctx context.Context,
	manifestCfg *manifest.Config,
	baseOpts OrchestratorOptions,
) ([]ManifestResult, error) {
	startTime := time.Now()
	totalSources := len(manifestCfg.Sources)

	outputDir := manifestCfg.Options.Output
	if outputDir == "" {
		outputDir = o.config.Download.OutputDir
	}

	o.logger.Info().
		Int("sources", totalSources).
		Bool("continue_on_error", manifestCfg.Options.ContinueOnError).
		Str("output", outputDir).
		Msg("Starting manifest execution")

	results := make([]ManifestResult, totalSources)
	if totalSources == 0 {
		return results, nil
	}

	concurrency := manifestCfg.Options.Concurrency
	if concurrency <= 0 {
		concurrency = o.config.Concurrency.Workers
	}

	// byte bars of concurrent downloads would overwrite each other
	var bar interface{ Add(int) error }
	if baseOpts.Progress && o.config.Download.Progress {
		if o.deps.Fetcher != nil {
			o.deps.Fetcher.SetShowProgress(false)
		}
		pb := utils.NewProgressBar(totalSources, utils.DescBatch)
		defer pb.Finish()
		bar = pb
	}

	var firstError error
	var firstErrorMu sync.Mutex

	var ledger *state.Manager
	if manifestCfg.Options.State && !baseOpts.DryRun {
		ledger = state.NewManager(state.ManagerOptions{
			BaseDir:  utils.ExpandPath(outputDir),
			Manifest: manifestCfg.Path,
			Logger:   o.logger,
		})
		if err := ledger.Load(ctx); err != nil && !errors.Is(err, state.ErrStateNotFound) {
			o.logger.Warn().Err(err).Msg("Ignoring unusable state file")
		}
		defer func() {
			// entries of sources that never ran are not stale
			allRan := ctx.Err() == nil && (firstError == nil || manifestCfg.Options.ContinueOnError)
			if stale := ledger.Stale(); allRan && len(stale) > 0 {
				o.logger.Info().Strs("files", stale).Msg("Files no longer listed in the manifest")
				ledger.Prune()
			}
			if err := ledger.Save(context.WithoutCancel(ctx)); err != nil {
				o.logger.Warn().Err(err).Msg("Failed to save state")
			}
		}()
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if !manifestCfg.Options.ContinueOnError {
		runCtx, cancel = context.WithCancel(ctx)
		defer cancel()
	}

	indices := make([]int, totalSources)
	for i := range indices {
		indices[i] = i
	}

	utils.ParallelForEach(runCtx, indices, concurrency, func(ctx context.Context, idx int) error {
		sourceStart := time.Now()
		source := manifestCfg.Sources[idx]

		o.logger.Debug().
			Int("source_idx", idx).
			Str("source_url", source.URL).
			Int("total", totalSources).
			Msg("Processing source")

		res, err := o.runSource(ctx, source, outputDir, manifestCfg.Options.Timeout, baseOpts, ledger)
		results[idx] = ManifestResult{
			Source:   source,
			Result:   res,
			Error:    err,
			Duration: time.Since(sourceStart),
		}
		if bar != nil {
			_ = bar.Add(1)
		}

		if err != nil {
			o.logger.Error().
				Err(err).
				Str("stage", domain.Stage(err)).
				Int("source_idx", idx).
				Str("source_url", source.URL).
				Msg("Source download failed")

			firstErrorMu.Lock()
			if firstError == nil {
				firstError = fmt.Errorf("source %s failed: %w", source.URL, err)
			}
			firstErrorMu.Unlock()

			if cancel != nil {
				cancel()
			}
			return err
		}
		return nil
	})

	// sources never started carry no result yet
	for i := range results {
		if results[i].Result == nil && results[i].Error == nil {
			results[i] = ManifestResult{Source: manifestCfg.Sources[i], Error: runCtx.Err()}
		}
	}

	if ctx.Err() != nil {
		o.logger.Warn().Msg("Manifest execution cancelled")
		return results, ctx.Err()
	}

	failed := 0
	skipped := 0
	for _, r := range results {
		switch {
		case r.Error != nil:
			failed++
		case r.Result != nil && r.Result.Skipped:
			skipped++
		}
	}

	o.logger.Info().
		Dur("total_duration", time.Since(startTime)).
		Int("total", totalSources).
		Int("success", totalSources-failed).
		Int("skipped", skipped).
		Int("failed", failed).
		Msg("Manifest execution completed")

	if firstError != nil {
		if !manifestCfg.Options.ContinueOnError {
			o.logger.Warn().Msg("Stopped execution (continue_on_error=false)")
			return results, firstError
		}
		return results, fmt.Errorf("manifest completed with %d/%d failures: %w", failed, totalSources, firstError)
	}

	return results, nil
}

func (o *Orchestrator) runSource(
	ctx context.Context,
	source manifest.Source,
	outputDir string,
	timeout time.Duration,
	baseOpts OrchestratorOptions,
	ledger *state.Manager,
) (*domain.DownloadResult, error) {
	startTime := time.Now()

	dest, err := source.Destination(outputDir)
	if err != nil {
		return nil, err
	}

	if ledger != nil {
		ledger.MarkSeen(dest)
		// the recorded id is compared against the live release, not a cached copy
		ctx = fetcher.WithCacheRefresh(ctx)
	}

	opts := baseOpts
	opts.Output = dest
	if timeout > 0 {
		opts.Timeout = timeout
	}
	if source.Force != nil {
		opts.Force = *source.Force
	}

	s, err := o.newStrategy(ctx, source.URL)
	if err != nil {
		return nil, err
	}

	// A recorded file is only kept while the release still serves the
	// same asset id; a re-uploaded asset gets a new one.
	if ledger != nil && !(opts.Force || o.config.Download.Force) && !opts.DryRun && utils.FileExists(dest) {
		if _, recorded := ledger.Lookup(dest); recorded {
			id, err := s.AssetID(ctx)
			if err != nil {
				return nil, err
			}
			if ledger.IsCurrent(dest, source.URL, int64(id)) {
				return &domain.DownloadResult{Locator: s.Locator(), AssetID: id, Destination: dest, Skipped: true}, nil
			}
			o.logger.Info().
				Str("dest", dest).
				Int64("asset_id", int64(id)).
				Msg("Asset changed since last download, replacing")
			opts.Force = true
		}
	}

	res, err := o.download(ctx, s, opts, startTime)
	if err != nil {
		return nil, err
	}

	if ledger != nil && !res.Skipped {
		ledger.Record(dest, source.URL, int64(res.AssetID))
	}
	return res, nil
}
