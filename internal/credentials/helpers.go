package credentials

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// helperTimeout bounds each external credential helper invocation
const helperTimeout = 10 * time.Second

// Runner executes name with args, feeding stdin, and returns stdout
type Runner func(ctx context.Context, stdin string, name string, args ...string) ([]byte, error)

// execRunner runs a real process with terminal prompts disabled
func execRunner(ctx context.Context, stdin string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "GH_PROMPT_DISABLED=1")
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, fmt.Errorf("%s failed: %w; stderr=%s", name, err, strings.TrimSpace(string(ee.Stderr)))
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}

// lookPath is swapped in tests
var lookPath = exec.LookPath

// GHCLIProvider asks the GitHub CLI for its stored token
type GHCLIProvider struct {
	Host string
	run  Runner
}

// NewGHCLIProvider returns a provider backed by `gh auth token`
func NewGHCLIProvider(host string) *GHCLIProvider {
	return &GHCLIProvider{Host: host, run: execRunner}
}

// Name implements domain.CredentialProvider
func (p *GHCLIProvider) Name() string {
	return "gh"
}

// Token implements domain.CredentialProvider
func (p *GHCLIProvider) Token(ctx context.Context) (string, bool, error) {
	if _, err := lookPath("gh"); err != nil {
		return "", false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, helperTimeout)
	defer cancel()

	out, err := p.run(ctx, "", "gh", "auth", "token", "--hostname", p.Host)
	if err != nil {
		// gh exits non-zero when logged out
		return "", false, nil
	}

	tok := strings.TrimSpace(string(out))
	return tok, tok != "", nil
}

// GitCredentialProvider queries configured git credential helpers
// (osxkeychain, libsecret, manager) through `git credential fill`.
type GitCredentialProvider struct {
	Host string
	run  Runner
}

// NewGitCredentialProvider returns a provider for https://host
func NewGitCredentialProvider(host string) *GitCredentialProvider {
	return &GitCredentialProvider{Host: host, run: execRunner}
}

// Name implements domain.CredentialProvider
func (p *GitCredentialProvider) Name() string {
	return "git-credential"
}

// Token implements domain.CredentialProvider
func (p *GitCredentialProvider) Token(ctx context.Context) (string, bool, error) {
	if _, err := lookPath("git"); err != nil {
		return "", false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, helperTimeout)
	defer cancel()

	query := fmt.Sprintf("protocol=https\nhost=%s\n\n", p.Host)
	out, err := p.run(ctx, query, "git", "credential", "fill")
	if err != nil {
		return "", false, err
	}

	tok := parseCredentialOutput(out)["password"]
	return tok, tok != "", nil
}

// parseCredentialOutput parses git's key=value credential protocol
func parseCredentialOutput(out []byte) map[string]string {
	fields := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			break
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[k] = strings.TrimSpace(v)
	}
	return fields
}
