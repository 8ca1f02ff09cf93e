package batch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel fetches
	MaxConcurrency int
	// Timeout per source fetch
	Timeout time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        20 * time.Second,
	}
}

// Fetch loads one source.
type Fetch func(ctx context.Context) (json.RawMessage, error)

// Source is a named input of a batch
type Source struct {
	Name  string
	Fetch Fetch
}

// Result represents the outcome of fetching a single source
type Result struct {
	Name  string
	Data  json.RawMessage
	Error error
}

// OK reports whether the source loaded.
func (r Result) OK() bool {
	return r.Error == nil
}

// Results maps source name to outcome.
type Results map[string]Result

// Failed returns the names of the sources that errored, in no particular order.
func (r Results) Failed() []string {
	var names []string
	for name, res := range r {
		if res.Error != nil {
			names = append(names, name)
		}
	}
	return names
}

// BatchFetcher fetches several sources in parallel
type BatchFetcher struct {
	config Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(config Config) *BatchFetcher {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &BatchFetcher{
		config: config,
	}
}

// FetchAll fetches every source with bounded concurrency and waits for all of
// them. A failing source never cancels the others; its error is recorded in
// its Result. Duplicate names keep the last source.
func (bf *BatchFetcher) FetchAll(ctx context.Context, sources []Source) Results {
	start := time.Now()

	collected := make([]Result, len(sources))

	var g errgroup.Group
	g.SetLimit(bf.config.MaxConcurrency)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			collected[i] = bf.fetchOne(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	results := make(Results, len(sources))
	failed := 0
	for _, res := range collected {
		results[res.Name] = res
		if res.Error != nil {
			failed++
		}
	}

	log.Debug().
		Int("sources", len(sources)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results
}

// fetchOne fetches a single source under the per-source timeout
func (bf *BatchFetcher) fetchOne(ctx context.Context, src Source) Result {
	if err := ctx.Err(); err != nil {
		return Result{Name: src.Name, Error: err}
	}

	srcCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()

	data, err := src.Fetch(srcCtx)
	if err != nil {
		log.Warn().
			Err(err).
			Str("source", src.Name).
			Msg("Source fetch failed")
		return Result{Name: src.Name, Error: err}
	}

	return Result{Name: src.Name, Data: data}
}
