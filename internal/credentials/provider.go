package credentials

import (
	"context"
	"os"
	"strings"

	"github.com/quantmind-br/ghasset-go/internal/domain"
	"github.com/quantmind-br/ghasset-go/internal/utils"
)

// Environment variables checked by the default chain, in order
const (
	EnvHomebrewToken = "HOMEBREW_GITHUB_API_TOKEN"
	EnvGitHubToken   = "GITHUB_TOKEN"
)

// EnvProvider reads the first non-empty variable from the environment
type EnvProvider struct {
	Vars   []string
	lookup func(string) (string, bool)
}

// NewEnvProvider returns a provider for the given variable names
func NewEnvProvider(vars ...string) *EnvProvider {
	return &EnvProvider{Vars: vars, lookup: os.LookupEnv}
}

// Name implements domain.CredentialProvider
func (p *EnvProvider) Name() string {
	return "env:" + strings.Join(p.Vars, ",")
}

// Token implements domain.CredentialProvider
func (p *EnvProvider) Token(ctx context.Context) (string, bool, error) {
	for _, v := range p.Vars {
		if val, ok := p.lookup(v); ok {
			if val = strings.TrimSpace(val); val != "" {
				return val, true, nil
			}
		}
	}
	return "", false, nil
}

// StaticProvider returns a fixed token, e.g. from a flag or config file
type StaticProvider struct {
	Source string
	Value  string
}

// Name implements domain.CredentialProvider
func (p StaticProvider) Name() string {
	if p.Source == "" {
		return "static"
	}
	return p.Source
}

// Token implements domain.CredentialProvider
func (p StaticProvider) Token(ctx context.Context) (string, bool, error) {
	v := strings.TrimSpace(p.Value)
	return v, v != "", nil
}

// Chain consults providers in order
type Chain struct {
	providers []domain.CredentialProvider
	logger    *utils.Logger
}

// NewChain creates a chain over providers. A nil logger discards output.
func NewChain(logger *utils.Logger, providers ...domain.CredentialProvider) *Chain {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Chain{providers: providers, logger: logger.WithComponent("credentials")}
}

// Name implements domain.CredentialProvider
func (c *Chain) Name() string {
	return "chain"
}

// Token implements domain.CredentialProvider
func (c *Chain) Token(ctx context.Context) (string, bool, error) {
	token, _ := c.Lookup(ctx)
	return token, token != "", nil
}

// Lookup returns the first token found and the name of the provider that
// supplied it. Providers that fail are skipped: a broken credential helper
// must not prevent an unauthenticated attempt.
func (c *Chain) Lookup(ctx context.Context) (token, source string) {
	for _, p := range c.providers {
		tok, ok, err := p.Token(ctx)
		if err != nil {
			c.logger.Debug().Err(err).Str("provider", p.Name()).Msg("credential provider failed")
			continue
		}
		if ok {
			c.logger.Debug().Str("provider", p.Name()).Msg("using token")
			return tok, p.Name()
		}
	}
	c.logger.Debug().Msg("no token found, requests will be unauthenticated")
	return "", ""
}

// Options configures DefaultChain
type Options struct {
	// Token, when set, takes precedence over every other source
	Token string
	// EnvVars overrides the environment variables consulted
	EnvVars []string
	// Host is the web host used for gh and git credential lookups
	Host string
	// DisableHelpers skips the gh and git credential helper lookups
	DisableHelpers bool
	Logger         *utils.Logger
}

// DefaultChain builds the standard lookup order
func DefaultChain(opts Options) *Chain {
	envVars := opts.EnvVars
	if len(envVars) == 0 {
		envVars = []string{EnvHomebrewToken, EnvGitHubToken}
	}
	host := opts.Host
	if host == "" {
		host = "github.com"
	}

	var providers []domain.CredentialProvider
	if opts.Token != "" {
		providers = append(providers, StaticProvider{Source: "config", Value: opts.Token})
	}
	providers = append(providers,
		NewEnvProvider(envVars...),
		NewGitConfigProvider(),
	)
	if !opts.DisableHelpers {
		providers = append(providers,
			NewGHCLIProvider(host),
			NewGitCredentialProvider(host),
		)
	}

	return NewChain(opts.Logger, providers...)
}

// Resolve looks up a token once. The result is meant to be passed by value
// to consumers.
func Resolve(ctx context.Context, p domain.CredentialProvider) string {
	if p == nil {
		return ""
	}
	tok, ok, err := p.Token(ctx)
	if err != nil || !ok {
		return ""
	}
	return tok
}
