package cache

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the store
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store holds entries keyed by upstream URL.
//
// Save must replace key, payload and timestamp as one unit: a reader never
// observes the payload of one fetch paired with the timestamp of another.
type Store interface {
	// Load returns the entry for key, or ErrCacheMiss.
	Load(ctx context.Context, key string) (*Entry, error)

	// Save stores entry under entry.Key, replacing any prior entry.
	Save(ctx context.Context, entry *Entry) error

	// Len returns the number of stored entries.
	Len(ctx context.Context) (int, error)

	// Kind names the backend for metrics and logs ("memory", "redis").
	Kind() string
}

// MemoryStore is a process-local Store. It never evicts; entries live until
// the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
	}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}
	return &entry, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, entry *Entry) error {
	if entry == nil {
		return errors.New("cache entry cannot be nil")
	}

	s.mu.Lock()
	s.entries[entry.Key] = *entry
	s.mu.Unlock()

	return nil
}

// Len implements Store.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Kind implements Store.
func (s *MemoryStore) Kind() string { return "memory" }
