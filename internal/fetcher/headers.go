package fetcher

import "github.com/quantmind-br/ghasset-go/pkg/version"

// Header values used by GitHub's REST API
const (
	AcceptJSON        = "application/vnd.github+json"
	AcceptOctetStream = "application/octet-stream"
	APIVersion        = "2022-11-28"
)

// DefaultUserAgent identifies this tool; GitHub rejects API calls without one
func DefaultUserAgent() string {
	return version.UserAgent()
}

// BaseHeaders returns the headers set on every request before caller
// supplied ones, which take precedence.
func BaseHeaders(userAgent string) map[string]string {
	if userAgent == "" {
		userAgent = DefaultUserAgent()
	}
	return map[string]string{
		"User-Agent":           userAgent,
		"X-GitHub-Api-Version": APIVersion,
	}
}
