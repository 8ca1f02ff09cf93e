package cache

import (
	"encoding/json"
	"time"
)

// Entry is the last known-good upstream response stored under a key.
// Entries are immutable once saved; a refresh replaces the whole entry.
type Entry struct {
	// Key is the fully-qualified upstream URL
	Key string `json:"key"`

	// Payload is the response body exactly as received
	Payload json.RawMessage `json:"payload"`

	// FetchedAt is when the payload was retrieved
	FetchedAt time.Time `json:"fetched_at"`
}

// IsFresh reports whether the entry is still within window at now.
// Freshness is decided by the caller's window, not stored with the entry.
func (e *Entry) IsFresh(now time.Time, window time.Duration) bool {
	return now.Sub(e.FetchedAt) < window
}

// Age returns how long ago the entry was fetched.
// Returns 0 if the fetch time lies in the future.
func (e *Entry) Age(now time.Time) time.Duration {
	age := now.Sub(e.FetchedAt)
	if age < 0 {
		return 0
	}
	return age
}
