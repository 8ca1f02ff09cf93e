// Package batch provides parallel fetching of several independent sources
// for the dashboard views.
//
// A view needs a handful of upstream resources at once (for example trending
// coins, markets and categories for the overview). FetchAll loads them with a
// bounded worker pool and all-settled semantics: every source is attempted,
// and each outcome is reported separately so a view can tell "failed" from
// "empty".
//
// Example usage:
//
//	fetcher := batch.NewBatchFetcher(batch.DefaultConfig())
//	results := fetcher.FetchAll(ctx, []batch.Source{
//		{Name: "trending", Fetch: loadTrending},
//		{Name: "markets", Fetch: loadMarkets},
//	})
//	if !results["markets"].OK() { ... }
package batch
