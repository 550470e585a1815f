package manifest

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"time"

	"github.com/quantmind-br/ghasset-go/internal/utils"
)

// Config represents the complete manifest configuration
type Config struct {
	Sources []Source `yaml:"sources" json:"sources"`
	Options Options  `yaml:"options" json:"options"`

	// Path is the file the manifest was loaded from, empty for bytes
	Path string `yaml:"-" json:"-"`
}

// Source is one asset to download
type Source struct {
	URL    string `yaml:"url" json:"url"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
	Force  *bool  `yaml:"force,omitempty" json:"force,omitempty"`
}

// Options represents global manifest options
type Options struct {
	ContinueOnError bool          `yaml:"continue_on_error" json:"continue_on_error"`
	Output          string        `yaml:"output,omitempty" json:"output,omitempty"`
	Concurrency     int           `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// State keeps a ledger of downloaded asset ids in the output
	// directory. Existing files whose asset was re-uploaded are replaced.
	State bool `yaml:"state,omitempty" json:"state,omitempty"`
}

// Destination returns the file the source is saved to
func (s Source) Destination(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}

	if s.Output != "" {
		out := utils.ExpandPath(s.Output)
		if filepath.IsAbs(out) {
			return filepath.Clean(out), nil
		}
		return filepath.Join(utils.ExpandPath(dir), out), nil
	}

	name := s.URL
	if u, err := url.Parse(s.URL); err == nil {
		name = u.Path
	}

	dest, ok := utils.DestinationFor(dir, path.Base(name))
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidOutput, s.URL)
	}
	return dest, nil
}

// Validate validates the manifest configuration
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}

	seen := make(map[string]int, len(c.Sources))
	for i, src := range c.Sources {
		if src.URL == "" {
			return fmt.Errorf("source %d: %w", i, ErrEmptyURL)
		}

		dest, err := src.Destination(c.Options.Output)
		if err != nil {
			return fmt.Errorf("source %d: %w", i, err)
		}
		if j, dup := seen[dest]; dup {
			return fmt.Errorf("source %d: %w: %s (also source %d)", i, ErrDuplicateOutput, dest, j)
		}
		seen[dest] = i
	}
	return nil
}

// DefaultOptions returns options with sensible defaults
func DefaultOptions() Options {
	return Options{
		ContinueOnError: false,
		Output:          ".",
		Concurrency:     4,
		Timeout:         10 * time.Minute,
	}
}
