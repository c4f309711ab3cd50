package executor

import (
	"sync"
	"time"
)

// HistoryEntry records one finished execution attempt.
type HistoryEntry struct {
	StatementID string
	Statement   string
	Outcome     Outcome
	Error       string
	RowCount    int
	StartedAt   time.Time
	Duration    time.Duration
}

// History is a bounded in-memory record of finished executions. When full,
// the oldest entry is evicted. It does not survive a restart.
type History struct {
	mu      sync.Mutex
	entries []HistoryEntry
	max     int
}

// NewHistory creates a history holding at most max entries.
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultOptions().HistorySize
	}
	return &History{max: max}
}

// Add appends an entry, evicting the oldest when the bound is reached.
func (h *History) Add(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) >= h.max {
		h.entries = h.entries[1:]
	}
	h.entries = append(h.entries, entry)
}

// Entries returns a copy of the recorded entries, oldest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of recorded entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
