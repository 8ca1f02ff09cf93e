// Package cache provides the fetch cache that sits in front of every upstream
// market-data call.
//
// The cache maps an upstream URL to the last successful response and the time
// it was retrieved. Freshness is decided per call: the caller passes a
// freshness window, so the same entry may be fresh for a slow-moving resource
// and stale for a volatile one.
//
//   - A fresh entry is returned without touching the network
//   - An absent or stale entry triggers exactly one fetch; concurrent misses
//     for the same key share that fetch
//   - A failed fetch is returned to the caller and never stored; any prior
//     entry stays as it was
//   - Entries are never evicted by the cache itself
//
// # Basic Usage
//
//	c := cache.New(cache.NewMemoryStore())
//
//	key := cache.Key{
//		Base:  "https://api.coingecko.com/api/v3",
//		Path:  "/search/trending",
//	}.String()
//
//	payload, err := c.GetOrFetch(ctx, key, 2*time.Minute, func(ctx context.Context) (json.RawMessage, error) {
//		return upstreamClient.Fetch(ctx, key)
//	})
//
// # Stores
//
// MemoryStore lives for the life of the process. RedisStore shares entries
// between replicas; each entry is written with a single SET so payload and
// timestamp are always replaced together.
//
// # HTTP Helpers
//
// SetResponseHeaders annotates a response with X-Cache, Age, Cache-Control
// and a BLAKE3 ETag; NotModified evaluates If-None-Match against it.
//
// # Metrics
//
//   - dashboard_cache_hits_total{store} - Fresh reads
//   - dashboard_cache_misses_total{store} - Absent or stale reads
//   - dashboard_cache_fetch_errors_total - Failed fetches (not stored)
//   - dashboard_cache_coalesced_total - Misses served by an in-flight fetch
//   - dashboard_cache_store_errors_total{operation} - Store errors
//   - dashboard_cache_payload_bytes - Stored payload sizes
package cache
