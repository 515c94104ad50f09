// Package app contains application services for the strategy context.
package app

import "sync"

// RunMode selects whether fills are real or simulated.
type RunMode string

const (
	// ModeDry simulates fills and never touches the execution client.
	ModeDry RunMode = "dry"

	// ModeLive submits real transactions.
	ModeLive RunMode = "live"
)

// Valid reports whether the mode is known.
func (m RunMode) Valid() bool {
	return m == ModeDry || m == ModeLive
}

// ModeManager holds the process-wide run mode. Every controller consults
// it at execution time, so a flip applies from the next opportunity on.
// The default is dry: going live is always an explicit operator action.
type ModeManager struct {
	mu   sync.RWMutex
	mode RunMode
}

// NewModeManager creates a manager starting in dry-run.
func NewModeManager() *ModeManager {
	return &ModeManager{mode: ModeDry}
}

// Mode returns the current run mode.
func (m *ModeManager) Mode() RunMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// SetMode switches the run mode. Unknown values are ignored and reported.
func (m *ModeManager) SetMode(mode RunMode) bool {
	if !mode.Valid() {
		return false
	}
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
	return true
}

// IsLive reports whether real executions are enabled.
func (m *ModeManager) IsLive() bool {
	return m.Mode() == ModeLive
}
