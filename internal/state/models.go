package state

import "time"

// StateVersion is the schema version for state file migration
const StateVersion = 1

// DownloadState records the assets a manifest has placed in a directory
type DownloadState struct {
	Version  int                   `json:"version"`
	Manifest string                `json:"manifest,omitempty"`
	LastRun  time.Time             `json:"last_run"`
	Assets   map[string]AssetState `json:"assets"`
}

// AssetState is the ledger entry of one downloaded file, keyed by its
// destination path relative to the state directory.
type AssetState struct {
	URL          string    `json:"url"`
	AssetID      int64     `json:"asset_id"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// NewDownloadState creates a new empty state
func NewDownloadState(manifest string) *DownloadState {
	return &DownloadState{
		Version:  StateVersion,
		Manifest: manifest,
		LastRun:  time.Now(),
		Assets:   make(map[string]AssetState),
	}
}

// AssetCount returns the number of recorded assets
func (s *DownloadState) AssetCount() int {
	return len(s.Assets)
}

// GetAsset returns the entry recorded for key
func (s *DownloadState) GetAsset(key string) (AssetState, bool) {
	a, exists := s.Assets[key]
	return a, exists
}

// SetAsset updates or adds an entry
func (s *DownloadState) SetAsset(key string, a AssetState) {
	s.Assets[key] = a
}

// RemoveAsset removes an entry
func (s *DownloadState) RemoveAsset(key string) {
	delete(s.Assets, key)
}
