package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/quantmind-br/ghasset-go/internal/utils"
)

// StateFileName is the ledger file kept in a manifest's output directory
const StateFileName = ".ghasset-state.json"

// Manager tracks which asset id was downloaded to each destination so a
// later run can tell an unchanged file from a re-uploaded asset.
type Manager struct {
	baseDir  string
	state    *DownloadState
	mu       sync.RWMutex
	dirty    bool
	logger   *utils.Logger
	disabled bool
	seen     sync.Map
}

type ManagerOptions struct {
	BaseDir  string
	Manifest string
	Logger   *utils.Logger
	Disabled bool
}

func NewManager(opts ManagerOptions) *Manager {
	return &Manager{
		baseDir:  opts.BaseDir,
		logger:   opts.Logger,
		disabled: opts.Disabled,
		state:    NewDownloadState(opts.Manifest),
	}
}

func (m *Manager) Load(ctx context.Context) error {
	if m.disabled {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.statePath())
	if os.IsNotExist(err) {
		return ErrStateNotFound
	}
	if err != nil {
		return err
	}

	var state DownloadState
	if err := json.Unmarshal(data, &state); err != nil {
		return ErrStateCorrupted
	}

	if state.Version != StateVersion {
		if m.logger != nil {
			m.logger.Warn().
				Int("file_version", state.Version).
				Int("expected_version", StateVersion).
				Msg("State version mismatch, will rebuild state")
		}
		return ErrVersionMismatch
	}
	if state.Assets == nil {
		state.Assets = make(map[string]AssetState)
	}

	m.state = &state
	return nil
}

func (m *Manager) Save(ctx context.Context) error {
	if m.disabled {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty {
		return nil
	}

	m.state.LastRun = time.Now()

	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return err
	}

	path := m.statePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	m.dirty = false
	if m.logger != nil {
		m.logger.Debug().
			Int("assets", len(m.state.Assets)).
			Str("path", path).
			Msg("State saved")
	}
	return nil
}

// IsCurrent reports whether dest was last downloaded from url with the
// given asset id.
func (m *Manager) IsCurrent(dest, url string, assetID int64) bool {
	if m.disabled {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	a, exists := m.state.Assets[m.key(dest)]
	return exists && a.URL == url && a.AssetID == assetID
}

// Lookup returns the entry recorded for dest
func (m *Manager) Lookup(dest string) (AssetState, bool) {
	if m.disabled {
		return AssetState{}, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.GetAsset(m.key(dest))
}

// Record stores a completed download and marks dest as seen
func (m *Manager) Record(dest, url string, assetID int64) {
	if m.disabled {
		return
	}

	key := m.key(dest)
	m.mu.Lock()
	m.state.SetAsset(key, AssetState{
		URL:          url,
		AssetID:      assetID,
		DownloadedAt: time.Now(),
	})
	m.dirty = true
	m.mu.Unlock()

	m.seen.Store(key, true)
}

// MarkSeen marks dest as part of the current manifest
func (m *Manager) MarkSeen(dest string) {
	m.seen.Store(m.key(dest), true)
}

// Stale returns the recorded destinations the current run never saw,
// i.e. files of sources dropped from the manifest.
func (m *Manager) Stale() []string {
	if m.disabled {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var stale []string
	for key := range m.state.Assets {
		if _, seen := m.seen.Load(key); !seen {
			stale = append(stale, key)
		}
	}
	return stale
}

// Prune drops stale entries from the ledger. The files are left alone.
func (m *Manager) Prune() {
	if m.disabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.state.Assets {
		if _, seen := m.seen.Load(key); !seen {
			m.state.RemoveAsset(key)
			m.dirty = true
		}
	}
}

// Stats returns the number of recorded assets and how many of them
// the current run has not seen.
func (m *Manager) Stats() (total, stale int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total = len(m.state.Assets)
	for key := range m.state.Assets {
		if _, seen := m.seen.Load(key); !seen {
			stale++
		}
	}
	return total, stale
}

func (m *Manager) IsDisabled() bool {
	return m.disabled
}

// key makes dest relative to the state directory when it lies inside it
func (m *Manager) key(dest string) string {
	if rel, err := filepath.Rel(m.baseDir, dest); err == nil && filepath.IsLocal(rel) {
		return filepath.ToSlash(rel)
	}
	return filepath.Clean(dest)
}

func (m *Manager) statePath() string {
	return filepath.Join(m.baseDir, StateFileName)
}
