package credentials

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/config"
)

// GitConfigProvider reads github.token from the user's global git config
// (~/.gitconfig or $XDG_CONFIG_HOME/git/config).
type GitConfigProvider struct {
	Section string
	Key     string
	load    func() (*config.Config, error)
}

// NewGitConfigProvider returns a provider for github.token
func NewGitConfigProvider() *GitConfigProvider {
	return &GitConfigProvider{
		Section: "github",
		Key:     "token",
		load: func() (*config.Config, error) {
			return config.LoadConfig(config.GlobalScope)
		},
	}
}

// Name implements domain.CredentialProvider
func (p *GitConfigProvider) Name() string {
	return "gitconfig:" + p.Section + "." + p.Key
}

// Token implements domain.CredentialProvider
func (p *GitConfigProvider) Token(ctx context.Context) (string, bool, error) {
	cfg, err := p.load()
	if err != nil {
		return "", false, fmt.Errorf("load global git config: %w", err)
	}
	if cfg.Raw == nil || !cfg.Raw.HasSection(p.Section) {
		return "", false, nil
	}

	tok := strings.TrimSpace(cfg.Raw.Section(p.Section).Option(p.Key))
	return tok, tok != "", nil
}
