package app

import (
	"net/url"
	"strings"
)

// SourceType classifies an input URL
type SourceType string

const (
	// SourceReleaseAsset is a release download URL the strategy can handle
	SourceReleaseAsset SourceType = "release-asset"
	// SourceReleasePage is a release page, not an asset
	SourceReleasePage SourceType = "release-page"
	// SourceAPIAsset is already an API asset URL
	SourceAPIAsset SourceType = "api-asset"
	// SourceUnknown is anything else
	SourceUnknown SourceType = "unknown"
)

// DetectSource classifies rawURL by its path shape. The host is not
// checked; the strategy's parser enforces it.
func DetectSource(rawURL string) SourceType {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return SourceUnknown
	}
	p := u.Path

	switch {
	case strings.Contains(p, "/releases/download/"):
		return SourceReleaseAsset
	case strings.Contains(p, "/releases/assets/"):
		return SourceAPIAsset
	case strings.Contains(p, "/releases/tag/"), strings.HasSuffix(strings.TrimRight(p, "/"), "/releases"):
		return SourceReleasePage
	default:
		return SourceUnknown
	}
}

// Hint returns advice for URL types the downloader cannot take
func (t SourceType) Hint() string {
	switch t {
	case SourceReleasePage:
		return "this is a release page; copy the link of one of its assets instead"
	case SourceAPIAsset:
		return "pass the browser download URL (.../releases/download/<tag>/<file>), not the API URL"
	case SourceUnknown:
		return "expected https://github.com/<owner>/<repo>/releases/download/<tag>/<file>"
	default:
		return ""
	}
}
