package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantmind-br/ghasset-go/internal/app"
	"github.com/quantmind-br/ghasset-go/internal/config"
	"github.com/quantmind-br/ghasset-go/internal/domain"
	"github.com/quantmind-br/ghasset-go/internal/manifest"
	"github.com/quantmind-br/ghasset-go/internal/utils"
	"github.com/quantmind-br/ghasset-go/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	cfgFile string
	verbose bool

	// Dependencies for testing
	osStat          = os.Stat
	newOrchestrator = app.NewOrchestrator
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "ghasset [url]",
	Short: "Download release assets from private GitHub repositories",
	Long: `ghasset downloads release assets from GitHub repositories, including
private ones. The browser download URL is resolved to the asset's API URL
and fetched with an API token.

The token is read from the config file, HOMEBREW_GITHUB_API_TOKEN,
GITHUB_TOKEN, git config github.token, the gh CLI or git credential fill,
in that order.`,
	Version:       version.Short(),
	Args:          cobra.MaximumNArgs(1),
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.ghasset/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("api-url", config.DefaultAPIURL, "GitHub API root")
	rootCmd.PersistentFlags().String("web-url", config.DefaultWebURL, "GitHub web root download URLs must start with")
	rootCmd.PersistentFlags().String("token-env", "", "Extra environment variable to read the token from")
	rootCmd.PersistentFlags().Bool("no-helpers", false, "Do not ask gh or git credential helpers for a token")
	rootCmd.PersistentFlags().Duration("api-timeout", config.DefaultAPITimeout, "Timeout of API requests")
	rootCmd.PersistentFlags().Int("max-retries", config.DefaultMaxRetries, "Retries of failed requests (0=none)")
	rootCmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "Log format (pretty, json)")

	// Cache flags
	rootCmd.PersistentFlags().Bool("cache", config.DefaultCacheEnabled, "Cache release metadata")
	rootCmd.PersistentFlags().Duration("cache-ttl", config.DefaultCacheTTL, "Cache TTL")

	// Download flags
	rootCmd.PersistentFlags().String("output-dir", config.DefaultOutputDir, "Directory assets are saved to")
	rootCmd.PersistentFlags().Bool("force", false, "Overwrite existing files")
	rootCmd.PersistentFlags().Duration("timeout", config.DefaultDownloadTimeout, "Download timeout")
	rootCmd.PersistentFlags().Bool("no-progress", false, "Hide progress bars")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Resolve the asset without downloading it")
	rootCmd.Flags().StringP("output", "o", "", "Destination file (default is the asset name in --output-dir)")

	// Bind flags to viper
	_ = viper.BindPFlag("github.api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("github.web_url", rootCmd.PersistentFlags().Lookup("web-url"))
	_ = viper.BindPFlag("github.token_env", rootCmd.PersistentFlags().Lookup("token-env"))
	_ = viper.BindPFlag("github.no_helpers", rootCmd.PersistentFlags().Lookup("no-helpers"))
	_ = viper.BindPFlag("download.api_timeout", rootCmd.PersistentFlags().Lookup("api-timeout"))
	_ = viper.BindPFlag("download.max_retries", rootCmd.PersistentFlags().Lookup("max-retries"))
	_ = viper.BindPFlag("download.output_dir", rootCmd.PersistentFlags().Lookup("output-dir"))
	_ = viper.BindPFlag("download.force", rootCmd.PersistentFlags().Lookup("force"))
	_ = viper.BindPFlag("download.timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("cache.enabled", rootCmd.PersistentFlags().Lookup("cache"))
	_ = viper.BindPFlag("cache.ttl", rootCmd.PersistentFlags().Lookup("cache-ttl"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	resolveCmd.Flags().String("format", "yaml", "Output format (yaml, json)")

	// Add subcommands
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// formatError prefixes err with the stage that failed
func formatError(err error) string {
	stage := domain.Stage(err)
	if stage == "" || stage == domain.StageUnknown {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("Error (%s): %v", stage, err)
}

// exitCode maps err to the process exit status. Usage-level failures
// (bad URL, missing asset) exit with 2.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	}

	switch domain.Stage(err) {
	case domain.StagePattern, domain.StageAsset:
		return 2
	default:
		return 1
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// commonOptions reads the flags shared by every download command
func commonOptions(cmd *cobra.Command) domain.CommonOptions {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	return domain.CommonOptions{
		Verbose:  verbose,
		DryRun:   dryRun,
		Force:    force,
		Progress: !noProgress,
	}
}

// setup loads the configuration and builds an orchestrator
func setup(ctx context.Context, cmd *cobra.Command) (*app.Orchestrator, app.OrchestratorOptions, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, app.OrchestratorOptions{}, fmt.Errorf("failed to load config: %w", err)
	}

	opts := app.OrchestratorOptions{
		CommonOptions: commonOptions(cmd),
		Config:        cfg,
	}

	orchestrator, err := newOrchestrator(ctx, opts)
	if err != nil {
		return nil, opts, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	return orchestrator, opts, nil
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	url := args[0]

	ctx, cancel := signalContext()
	defer cancel()

	orchestrator, opts, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer orchestrator.Close()

	if err := orchestrator.ValidateURL(url); err != nil {
		return err
	}

	opts.Output, _ = cmd.Flags().GetString("output")

	result, err := orchestrator.Run(ctx, url, opts)
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), result, opts.DryRun)
	return nil
}

// printResult writes a one-line summary of a download
func printResult(w io.Writer, result *domain.DownloadResult, dryRun bool) {
	switch {
	case result.Skipped:
		fmt.Fprintf(w, "%s already exists, skipped\n", result.Destination)
	case dryRun:
		fmt.Fprintf(w, "%s (asset %d) -> %s (dry run)\n", result.Locator, result.AssetID, result.Destination)
	default:
		fmt.Fprintf(w, "%s (asset %d) -> %s\n", result.Locator, result.AssetID, result.Destination)
	}
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>",
	Short: "Resolve a download URL to its API asset URL",
	Long:  "Looks up the asset id and the API download URL without downloading anything.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format != "yaml" && format != "json" {
			return fmt.Errorf("unsupported format %q (use yaml or json)", format)
		}

		ctx, cancel := signalContext()
		defer cancel()

		orchestrator, _, err := setup(ctx, cmd)
		if err != nil {
			return err
		}
		defer orchestrator.Close()

		res, err := orchestrator.Resolve(ctx, args[0])
		if err != nil {
			return err
		}

		return writeResolution(cmd.OutOrStdout(), res, format)
	},
}

// writeResolution encodes res as yaml or json
func writeResolution(w io.Writer, res *app.Resolution, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		return err
	}
	return enc.Close()
}

var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Download every asset listed in a manifest",
	Long: `Downloads the assets listed in a YAML or JSON manifest:

  sources:
    - url: https://github.com/acme/tool/releases/download/v1.2.0/tool.tar.gz
      output: bin/tool.tar.gz
  options:
    continue_on_error: true
    concurrency: 4`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.NewLoader().Load(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		orchestrator, opts, err := setup(ctx, cmd)
		if err != nil {
			return err
		}
		defer orchestrator.Close()

		results, err := orchestrator.RunManifest(ctx, m, opts)
		printManifestResults(cmd.OutOrStdout(), results)
		return err
	},
}

// printManifestResults writes one line per manifest source
func printManifestResults(w io.Writer, results []app.ManifestResult) {
	for _, r := range results {
		switch {
		case r.Error != nil:
			fmt.Fprintf(w, "FAIL  %s: %s\n", r.Source.URL, formatError(r.Error))
		case r.Result != nil && r.Result.Skipped:
			fmt.Fprintf(w, "SKIP  %s -> %s\n", r.Source.URL, r.Result.Destination)
		case r.Result != nil:
			fmt.Fprintf(w, "OK    %s -> %s (%s)\n", r.Source.URL, r.Result.Destination, r.Duration.Round(time.Millisecond))
		}
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  "Prints the configuration after merging defaults, the config file, environment and flags. The token is masked.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", used)
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg.Redacted()); err != nil {
			return err
		}
		return enc.Close()
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check token, API access and cache",
	Long:  "Verifies that a token is available, the GitHub API is reachable with it and the cache directory is usable.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "Checking setup...")
		allPassed := true

		// Check 1: Config file
		fmt.Fprint(w, "  Config file: ")
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(w, "FAILED (%v)\n", err)
			return errChecksFailed
		}
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintf(w, "OK (%s)\n", used)
		} else {
			fmt.Fprintln(w, "OK (defaults)")
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Download.APITimeout)
		defer cancel()

		orchestrator, err := newOrchestrator(ctx, app.OrchestratorOptions{
			Config: cfg,
			Logger: utils.NewNopLogger(),
		})
		if err != nil {
			return fmt.Errorf("failed to create orchestrator: %w", err)
		}
		defer orchestrator.Close()
		deps := orchestrator.Dependencies()

		// Check 2: Token
		fmt.Fprint(w, "  Token: ")
		if deps.TokenSource != "" {
			fmt.Fprintf(w, "OK (%s)\n", deps.TokenSource)
		} else {
			fmt.Fprintln(w, "NOT FOUND (only public assets can be downloaded)")
		}

		// Check 3: API reachability
		fmt.Fprint(w, "  GitHub API: ")
		if remaining, err := checkAPI(ctx, deps.API); err != nil {
			fmt.Fprintf(w, "FAILED (%v)\n", err)
			allPassed = false
		} else {
			fmt.Fprintf(w, "OK (%s, %d requests left)\n", deps.API.BaseURL(), remaining)
		}

		// Check 4: Cache directory
		fmt.Fprint(w, "  Cache directory: ")
		cacheDir := utils.ExpandPath(cfg.Cache.Directory)
		switch {
		case !cfg.Cache.Enabled:
			fmt.Fprintln(w, "DISABLED")
		case checkCacheDir(cacheDir):
			fmt.Fprintf(w, "OK (%s)\n", cacheDir)
		default:
			fmt.Fprintln(w, "WARN (will be created on first use)")
		}

		fmt.Fprintln(w)
		if allPassed {
			fmt.Fprintln(w, "All critical checks passed!")
		} else {
			fmt.Fprintln(w, "Some checks failed. Please resolve the issues above.")
			return errChecksFailed
		}
		return nil
	},
}

// errChecksFailed makes doctor exit non-zero
var errChecksFailed = errors.New("doctor: some checks failed")

// rateLimit is the subset of GET /rate_limit doctor reports
type rateLimit struct {
	Rate struct {
		Limit     int `json:"limit"`
		Remaining int `json:"remaining"`
	} `json:"rate"`
}

// checkAPI calls the rate limit endpoint, which does not count against
// the limit, and returns the remaining request budget.
func checkAPI(ctx context.Context, api domain.ReleaseAPI) (int, error) {
	var rl rateLimit
	if err := api.OpenREST(ctx, api.BaseURL()+"/rate_limit", &rl); err != nil {
		return 0, err
	}
	return rl.Rate.Remaining, nil
}

// checkCacheDir checks if the cache directory exists
func checkCacheDir(path string) bool {
	info, err := osStat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Full())
	},
}
