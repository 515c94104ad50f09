package domain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Status is a strategy controller's lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusError   Status = "error"
)

// State is a snapshot of one strategy's counters. The controller owns the
// live copy; everything handed out is a value copy.
type State struct {
	ID     string `json:"id"`
	Group  string `json:"group"`
	Status Status `json:"status"`

	ScansCompleted      uint64 `json:"scans_completed"`
	ScanFailures        uint64 `json:"scan_failures"`
	ConsecutiveFailures int    `json:"consecutive_failures"`

	OpportunitiesFound  uint64 `json:"opportunities_found"`
	ExecutionsAttempted uint64 `json:"executions_attempted"`
	Fills               uint64 `json:"fills"`
	SimulatedFills      uint64 `json:"simulated_fills"`

	RealizedPnLUSD  decimal.Decimal `json:"realized_pnl_usd"`
	SimulatedPnLUSD decimal.Decimal `json:"simulated_pnl_usd"`

	LastScan  time.Time `json:"last_scan"`
	LastError string    `json:"last_error,omitempty"`

	RecentLog []LogEntry `json:"recent_log"`
}

// LogEntry is one line of a strategy's in-memory activity log.
type LogEntry struct {
	Time     time.Time `json:"time"`
	Severity Severity  `json:"severity"`
	Text     string    `json:"text"`
}

// LogRing is a fixed-capacity activity log. Oldest entries fall off.
type LogRing struct {
	mu      sync.Mutex
	entries []LogEntry
	next    int
	full    bool
}

// NewLogRing creates a ring holding up to capacity entries.
func NewLogRing(capacity int) *LogRing {
	if capacity <= 0 {
		capacity = 64
	}
	return &LogRing{entries: make([]LogEntry, capacity)}
}

// Append records one entry, evicting the oldest when full.
func (r *LogRing) Append(severity Severity, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = LogEntry{Time: time.Now(), Severity: severity, Text: text}
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

// Entries returns the log oldest-first.
func (r *LogRing) Entries() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]LogEntry, r.next)
		copy(out, r.entries[:r.next])
		return out
	}

	out := make([]LogEntry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	out = append(out, r.entries[:r.next]...)
	return out
}
