package domain

import (
	"fmt"
	"time"
)

// AssetID is the numeric identifier GitHub assigns to a release asset
type AssetID int64

// AssetLocator identifies a release asset by its position in a repository
type AssetLocator struct {
	Owner    string
	Repo     string
	Tag      string
	Filename string
}

// String returns owner/repo@tag/filename
func (l AssetLocator) String() string {
	return fmt.Sprintf("%s/%s@%s/%s", l.Owner, l.Repo, l.Tag, l.Filename)
}

// Valid reports whether every field is populated
func (l AssetLocator) Valid() bool {
	return l.Owner != "" && l.Repo != "" && l.Tag != "" && l.Filename != ""
}

// Release is the subset of GET /repos/{owner}/{repo}/releases/tags/{tag}
// needed to locate assets.
type Release struct {
	ID      int64          `json:"id"`
	TagName string         `json:"tag_name"`
	Name    string         `json:"name"`
	Draft   bool           `json:"draft"`
	Assets  []ReleaseAsset `json:"assets"`
}

// ReleaseAsset is a single entry of a release's assets array
type ReleaseAsset struct {
	ID                 AssetID `json:"id"`
	Name               string  `json:"name"`
	Size               int64   `json:"size"`
	ContentType        string  `json:"content_type"`
	BrowserDownloadURL string  `json:"browser_download_url"`
}

// FindAsset returns the first asset whose name equals filename.
// Duplicate names are not expected within a release; response order wins.
func (r *Release) FindAsset(filename string) (ReleaseAsset, bool) {
	for _, a := range r.Assets {
		if a.Name == filename {
			return a, true
		}
	}
	return ReleaseAsset{}, false
}

// Response represents an HTTP response
type Response struct {
	StatusCode  int
	Body        []byte
	ContentType string
	URL         string
	FromCache   bool
}

// DownloadRequest describes one binary transfer handed to a Downloader
type DownloadRequest struct {
	URL         string
	Headers     map[string]string
	Destination string
	Timeout     time.Duration
}

// DownloadResult summarizes a completed asset download
type DownloadResult struct {
	Locator     AssetLocator
	AssetID     AssetID
	Destination string
	Skipped     bool
	Duration    time.Duration
}
