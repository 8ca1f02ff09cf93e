package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"time"

	"github.com/Sternrassler/alpha-dashboard/pkg/cache"
	"github.com/Sternrassler/alpha-dashboard/pkg/logging"
	"github.com/Sternrassler/alpha-dashboard/pkg/market"
	"github.com/Sternrassler/alpha-dashboard/pkg/metrics"
	"github.com/rs/zerolog"
)

// ErrNoFallbackData is returned when the trending document has no nfts field.
var ErrNoFallbackData = errors.New("no fallback data")

// Upstream fetches JSON documents from one market-data API.
type Upstream interface {
	Name() string
	BaseURL() string
	Fetch(ctx context.Context, rawURL string) (json.RawMessage, error)
}

// FallbackFunc produces a replacement payload after the primary fetch failed.
type FallbackFunc func(ctx context.Context, s *Service, primary error) (Loaded, error)

// Loaded is a payload together with how it was obtained.
type Loaded struct {
	Resource string
	Result   cache.Result
	Window   time.Duration
	Fallback bool
}

// Payload returns the JSON body.
func (l Loaded) Payload() json.RawMessage {
	if l.Result.Entry == nil {
		return nil
	}
	return l.Result.Entry.Payload
}

// Service resolves resources through the fetch cache.
type Service struct {
	cache     *cache.Cache
	upstreams map[string]Upstream
	resources map[string]Resource
	now       func() time.Time
	logger    zerolog.Logger
}

// NewService wires the cache to the upstream clients. Every resource's
// upstream must be present in upstreams.
func NewService(c *cache.Cache, upstreams ...Upstream) (*Service, error) {
	if c == nil {
		return nil, errors.New("cache is required")
	}

	s := &Service{
		cache:     c,
		upstreams: make(map[string]Upstream, len(upstreams)),
		resources: make(map[string]Resource),
		now:       time.Now,
		logger:    logging.NewLogger(logging.ComponentAPI),
	}

	for _, u := range upstreams {
		s.upstreams[u.Name()] = u
	}

	for _, res := range Resources() {
		if _, ok := s.upstreams[res.Upstream]; !ok {
			return nil, fmt.Errorf("resource %s: upstream %q not configured", res.Name, res.Upstream)
		}
		s.resources[res.Name] = res
	}

	return s, nil
}

// SetClock overrides the clock used for response headers (for testing).
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Resource returns the named resource.
func (s *Service) Resource(name string) (Resource, bool) {
	res, ok := s.resources[name]
	return res, ok
}

// URL renders the upstream URL of res with params. It is the cache key.
func (s *Service) URL(res Resource, params Params) string {
	query := make(url.Values, len(res.Fixed)+len(params.Query))
	maps.Copy(query, res.Fixed)
	maps.Copy(query, params.Query)

	return cache.Key{
		Base:       s.upstreams[res.Upstream].BaseURL(),
		Path:       res.Path,
		PathParams: params.Path,
		Query:      query,
	}.String()
}

// Load returns the resource payload, fresh from the cache or fetched. When
// the fetch fails and the resource has a fallback that accepts the error, the
// fallback's outcome is returned instead, including its failure.
func (s *Service) Load(ctx context.Context, name string, params Params) (Loaded, error) {
	res, ok := s.resources[name]
	if !ok {
		return Loaded{}, fmt.Errorf("unknown resource %q", name)
	}

	loaded, err := s.resolve(ctx, res, params)
	if err == nil {
		return loaded, nil
	}

	if res.Fallback == nil || res.FallbackOn == nil || !res.FallbackOn(err) {
		return Loaded{}, err
	}

	s.logger.Info().
		Err(err).
		Str("resource", res.Name).
		Msg("Primary fetch refused, using fallback")

	loaded, fbErr := res.Fallback(ctx, s, err)
	if fbErr != nil {
		metrics.NFTFallback("error")
		return Loaded{}, fbErr
	}
	metrics.NFTFallback("ok")
	return loaded, nil
}

func (s *Service) resolve(ctx context.Context, res Resource, params Params) (Loaded, error) {
	client := s.upstreams[res.Upstream]
	rawURL := s.URL(res, params)

	result, err := s.cache.Resolve(ctx, rawURL, res.Window, func(ctx context.Context) (json.RawMessage, error) {
		return client.Fetch(ctx, rawURL)
	})
	if err != nil {
		return Loaded{}, err
	}

	return Loaded{Resource: res.Name, Result: result, Window: res.Window}, nil
}

// nftsFromTrending serves NFT collections from the trending endpoint, which
// stays available when /nfts/markets is refused for the configured key.
func nftsFromTrending(ctx context.Context, s *Service, _ error) (Loaded, error) {
	trending, err := s.Load(ctx, ResourceTrending, Params{})
	if err != nil {
		return Loaded{}, err
	}

	var resp market.TrendingResponse
	if err := json.Unmarshal(trending.Payload(), &resp); err != nil {
		return Loaded{}, fmt.Errorf("decode trending: %w", err)
	}
	// An empty list is a valid answer; only an absent or null field fails.
	if resp.NFTs == nil {
		return Loaded{}, ErrNoFallbackData
	}

	payload, err := json.Marshal(market.NFTsFromTrending(resp.NFTs))
	if err != nil {
		return Loaded{}, fmt.Errorf("encode fallback: %w", err)
	}

	nfts := s.resources[ResourceNFTs]
	return Loaded{
		Resource: ResourceNFTs,
		Result: cache.Result{
			Entry: &cache.Entry{
				Key:       s.URL(nfts, Params{}),
				Payload:   payload,
				FetchedAt: trending.Result.Entry.FetchedAt,
			},
			Hit: trending.Result.Hit,
		},
		Window:   trending.Window,
		Fallback: true,
	}, nil
}
