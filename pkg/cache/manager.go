package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/alpha-dashboard/pkg/logging"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidWindow is returned for a negative freshness window.
var ErrInvalidWindow = errors.New("freshness window must not be negative")

// Fetcher performs the upstream call and returns the parsed body.
// The cache never inspects the payload.
type Fetcher func(ctx context.Context) (json.RawMessage, error)

// Result describes how a lookup was served.
type Result struct {
	// Entry is the entry that was returned (fresh from the store or just fetched)
	Entry *Entry

	// Hit is true when no fetch was needed
	Hit bool

	// Shared is true when the payload came from another caller's in-flight fetch
	Shared bool
}

// Cache serves the latest upstream response for a key without fetching more
// often than the caller's freshness window allows.
type Cache struct {
	store  Store
	group  singleflight.Group
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now (for tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates a cache over store.
func New(store Store, opts ...Option) *Cache {
	if store == nil {
		panic("cache store cannot be nil")
	}

	c := &Cache{
		store:  store,
		now:    time.Now,
		logger: logging.NewLogger(logging.ComponentCache),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the backing store.
func (c *Cache) Store() Store {
	return c.store
}

// GetOrFetch returns the payload stored under key if it is younger than
// window. Otherwise it calls fetch, stores the result with the current time
// and returns it. A failed fetch is returned as is and leaves any prior entry
// untouched.
func (c *Cache) GetOrFetch(ctx context.Context, key string, window time.Duration, fetch Fetcher) (json.RawMessage, error) {
	res, err := c.Resolve(ctx, key, window, fetch)
	if err != nil {
		return nil, err
	}
	return res.Entry.Payload, nil
}

// Resolve is GetOrFetch with details about how the payload was obtained.
//
// Concurrent misses for the same key share one fetch. The shared fetch is
// detached from the first caller's cancellation and bounded by the fetcher's
// own timeout. A caller whose ctx ends first returns ctx.Err() while the
// fetch runs on and stores its result.
func (c *Cache) Resolve(ctx context.Context, key string, window time.Duration, fetch Fetcher) (Result, error) {
	if window < 0 {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidWindow, window)
	}
	if fetch == nil {
		return Result{}, errors.New("fetcher cannot be nil")
	}

	kind := c.store.Kind()

	entry, err := c.store.Load(ctx, key)
	switch {
	case err == nil:
		if entry.IsFresh(c.now(), window) {
			CacheHits.WithLabelValues(kind).Inc()
			c.logger.Debug().
				Str("key", key).
				Dur("age", entry.Age(c.now())).
				Msg("Cache hit")
			return Result{Entry: entry, Hit: true}, nil
		}
	case errors.Is(err, ErrCacheMiss):
	default:
		// Unreadable store: behave as a miss rather than failing the request.
		StoreErrors.WithLabelValues("load").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache load error")
	}

	CacheMisses.WithLabelValues(kind).Inc()

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.fetchAndStore(fetchCtx, key, fetch)
	})

	select {
	case <-ctx.Done():
		c.logger.Debug().
			Err(ctx.Err()).
			Str("key", key).
			Msg("Caller gave up waiting for fetch")
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Shared {
			CoalescedFetches.Inc()
		}
		if r.Err != nil {
			return Result{}, r.Err
		}
		return Result{Entry: r.Val.(*Entry), Shared: r.Shared}, nil
	}
}

func (c *Cache) fetchAndStore(ctx context.Context, key string, fetch Fetcher) (*Entry, error) {
	payload, err := fetch(ctx)
	if err != nil {
		FetchErrors.Inc()
		c.logger.Debug().Err(err).Str("key", key).Msg("Fetch failed, entry left untouched")
		return nil, err
	}

	entry := &Entry{
		Key:       key,
		Payload:   payload,
		FetchedAt: c.now(),
	}

	if err := c.store.Save(ctx, entry); err != nil {
		StoreErrors.WithLabelValues("save").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to store fetched payload")
	} else {
		PayloadBytes.Observe(float64(len(payload)))
		c.logger.Debug().
			Str("key", key).
			Int("bytes", len(payload)).
			Msg("Stored fetched payload")
	}

	return entry, nil
}
