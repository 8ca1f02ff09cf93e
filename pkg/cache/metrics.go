package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks fresh reads by store kind
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_cache_hits_total",
			Help: "Total number of fetch cache hits",
		},
		[]string{"store"}, // "memory", "redis"
	)

	// CacheMisses tracks absent or stale reads by store kind
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_cache_misses_total",
			Help: "Total number of fetch cache misses",
		},
		[]string{"store"},
	)

	// FetchErrors tracks failed fetches (never stored)
	FetchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_cache_fetch_errors_total",
			Help: "Total number of failed upstream fetches seen by the cache",
		},
	)

	// CoalescedFetches tracks callers that shared another caller's in-flight fetch
	CoalescedFetches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_cache_coalesced_total",
			Help: "Total number of cache misses served by an in-flight fetch for the same key",
		},
	)

	// StoreErrors tracks store operation errors
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_cache_store_errors_total",
			Help: "Total number of cache store operation errors",
		},
		[]string{"operation"}, // "load", "save"
	)

	// PayloadBytes tracks the size of stored payloads
	PayloadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashboard_cache_payload_bytes",
			Help:    "Size of payloads stored in the fetch cache",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)
)
