package engine

import (
	"fmt"
	"sync"
	"time"
)

const defaultLogCap = 500

// LogEntry is one line of the in-memory trade/error log exposed by the
// status API. It mirrors the broker-facing audit trail without requiring
// any storage backend.
type LogEntry struct {
	TS     time.Time `json:"ts"`
	Kind   string    `json:"kind"` // "trade" or "error"
	Symbol string    `json:"symbol,omitempty"`
	Msg    string    `json:"msg"`
}

// eventLog is a bounded, concurrency-safe append log. When full, the
// oldest half is dropped so appends stay O(1) amortized.
type eventLog struct {
	mu      sync.Mutex
	cap     int
	entries []LogEntry
}

func newEventLog(capacity int) *eventLog {
	return &eventLog{cap: capacity, entries: make([]LogEntry, 0, capacity)}
}

func (l *eventLog) add(kind, symbol, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) >= l.cap {
		keep := l.cap / 2
		copy(l.entries, l.entries[len(l.entries)-keep:])
		l.entries = l.entries[:keep]
	}
	l.entries = append(l.entries, LogEntry{
		TS:     time.Now(),
		Kind:   kind,
		Symbol: symbol,
		Msg:    fmt.Sprintf(format, args...),
	})
}

// tail returns up to limit newest entries of the given kind, oldest first.
// An empty kind matches everything.
func (l *eventLog) tail(kind string, limit int) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if kind == "" || l.entries[i].Kind == kind {
			out = append(out, l.entries[i])
		}
	}
	// reverse to chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (e *Engine) logTrade(symbol, format string, args ...any) {
	e.events.add("trade", symbol, format, args...)
}

func (e *Engine) logError(symbol, format string, args ...any) {
	e.events.add("error", symbol, format, args...)
}
