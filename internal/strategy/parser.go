package strategy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/quantmind-br/ghasset-go/internal/domain"
)

// DefaultWebURL is the host release download URLs are expected on
const DefaultWebURL = "https://github.com"

// Parser extracts asset locators from release download URLs
type Parser struct {
	webURL  string
	pattern *regexp.Regexp
}

// NewParser returns a parser for download URLs under webURL, e.g.
// https://github.com or a GitHub Enterprise host.
func NewParser(webURL string) *Parser {
	if webURL == "" {
		webURL = DefaultWebURL
	}
	webURL = strings.TrimRight(webURL, "/")

	// owner, repo and tag are single segments; the filename takes the rest
	expr := "^" + regexp.QuoteMeta(webURL) + `/([^/]+)/([^/]+)/releases/download/([^/]+)/(.+)`

	return &Parser{
		webURL:  webURL,
		pattern: regexp.MustCompile(expr),
	}
}

var defaultParser = NewParser(DefaultWebURL)

// ParseURL parses a https://github.com/{owner}/{repo}/releases/download/{tag}/{filename} URL
func ParseURL(rawURL string) (domain.AssetLocator, error) {
	return defaultParser.Parse(rawURL)
}

// Parse extracts owner, repo, tag and filename from rawURL
func (p *Parser) Parse(rawURL string) (domain.AssetLocator, error) {
	m := p.pattern.FindStringSubmatch(rawURL)
	if m == nil {
		return domain.AssetLocator{}, fmt.Errorf("%w: %s", domain.ErrInvalidURLPattern, rawURL)
	}

	return domain.AssetLocator{
		Owner:    m[1],
		Repo:     m[2],
		Tag:      m[3],
		Filename: m[4],
	}, nil
}

// Matches reports whether rawURL is a release download URL for this host
func (p *Parser) Matches(rawURL string) bool {
	return p.pattern.MatchString(rawURL)
}

// WebURL returns the host prefix the parser matches
func (p *Parser) WebURL() string {
	return p.webURL
}
