package api

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/alpha-dashboard/pkg/upstream"
	"github.com/gin-gonic/gin"
)

// ErrInvalidParams marks a request the dashboard refuses before contacting
// any upstream.
var ErrInvalidParams = errors.New("invalid query parameters")

// Params are the variable parts of a resource URL.
type Params struct {
	Query url.Values
	Path  map[string]string
}

// Binder reads a resource's parameters from a request.
type Binder func(c *gin.Context) (Params, error)

// Resource describes one proxied upstream resource: where it lives, how long
// a fetched copy stays fresh, and which parameters the caller may set.
type Resource struct {
	// Name is the route segment under /api (e.g., "trending")
	Name string

	// Upstream selects the API (upstream.CoinGeckoName or upstream.GeckoTerminalName)
	Upstream string

	// Path is the upstream path, optionally with {name} placeholders
	Path string

	// Fixed query parameters always sent
	Fixed url.Values

	// Window is the freshness window of cached copies
	Window time.Duration

	// Bind reads caller parameters; nil means the resource takes none
	Bind Binder

	// Fallback, when set, is tried if FallbackOn accepts the primary error
	Fallback   FallbackFunc
	FallbackOn func(error) bool
}

// Resource names.
const (
	ResourceTrending      = "trending"
	ResourceMarkets       = "markets"
	ResourceCategories    = "categories"
	ResourceNews          = "news"
	ResourceNFTs          = "nfts"
	ResourceNetworks      = "networks"
	ResourceNewPools      = "new-pools"
	ResourceTrendingPools = "trending-pools"
)

// Markets parameter defaults and bounds.
const (
	DefaultVsCurrency = "usd"
	DefaultOrder      = "market_cap_desc"
	DefaultPerPage    = 100
	MaxPerPage        = 250
	DefaultPage       = 1
	DefaultNetwork    = "eth"
)

// Resources returns the resource table in route order.
func Resources() []Resource {
	return []Resource{
		{
			Name:     ResourceTrending,
			Upstream: upstream.CoinGeckoName,
			Path:     "/search/trending",
			Window:   2 * time.Minute,
		},
		{
			Name:     ResourceMarkets,
			Upstream: upstream.CoinGeckoName,
			Path:     "/coins/markets",
			Fixed: url.Values{
				"sparkline":               {"false"},
				"price_change_percentage": {"1h,24h,7d"},
			},
			Window: time.Minute,
			Bind:   bindMarkets,
		},
		{
			Name:     ResourceCategories,
			Upstream: upstream.CoinGeckoName,
			Path:     "/coins/categories",
			Fixed:    url.Values{"order": {"market_cap_change_24h_desc"}},
			Window:   5 * time.Minute,
		},
		{
			Name:     ResourceNews,
			Upstream: upstream.CoinGeckoName,
			Path:     "/status_updates",
			Fixed:    url.Values{"per_page": {"15"}, "page": {"1"}},
			Window:   3 * time.Minute,
		},
		{
			Name:     ResourceNFTs,
			Upstream: upstream.CoinGeckoName,
			Path:     "/nfts/markets",
			Fixed: url.Values{
				"order":    {"market_cap_usd_desc"},
				"per_page": {"50"},
				"page":     {"1"},
			},
			Window:     2 * time.Minute,
			Fallback:   nftsFromTrending,
			FallbackOn: upstream.IsAuthError,
		},
		{
			Name:     ResourceNetworks,
			Upstream: upstream.GeckoTerminalName,
			Path:     "/networks",
			Fixed:    url.Values{"page": {"1"}},
			Window:   10 * time.Minute,
		},
		{
			Name:     ResourceNewPools,
			Upstream: upstream.GeckoTerminalName,
			Path:     "/networks/new_pools",
			Fixed:    url.Values{"include": {"base_token,dex,network"}},
			Window:   30 * time.Second,
		},
		{
			Name:     ResourceTrendingPools,
			Upstream: upstream.GeckoTerminalName,
			Path:     "/networks/{network}/trending_pools",
			Fixed:    url.Values{"include": {"base_token,dex"}},
			Window:   time.Minute,
			Bind:     bindTrendingPools,
		},
	}
}

// MarketsQuery are the caller-settable markets parameters.
type MarketsQuery struct {
	VsCurrency string `form:"vs_currency" binding:"omitempty,alphanum,max=10"`
	Order      string `form:"order" binding:"omitempty,oneof=market_cap_asc market_cap_desc volume_asc volume_desc id_asc id_desc"`
	PerPage    int    `form:"per_page" binding:"omitempty,min=1,max=250"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
}

// Params applies defaults and renders the query.
func (q MarketsQuery) Params() Params {
	if q.VsCurrency == "" {
		q.VsCurrency = DefaultVsCurrency
	}
	if q.Order == "" {
		q.Order = DefaultOrder
	}
	if q.PerPage == 0 {
		q.PerPage = DefaultPerPage
	}
	if q.Page == 0 {
		q.Page = DefaultPage
	}

	return Params{Query: url.Values{
		"vs_currency": {q.VsCurrency},
		"order":       {q.Order},
		"per_page":    {strconv.Itoa(q.PerPage)},
		"page":        {strconv.Itoa(q.Page)},
	}}
}

func bindMarkets(c *gin.Context) (Params, error) {
	var q MarketsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return q.Params(), nil
}

// PoolsQuery selects the network of the trending pools.
type PoolsQuery struct {
	Network string `form:"network" binding:"omitempty,max=64,excludesall=/?#"`
}

// Params applies defaults and renders the path parameters.
func (q PoolsQuery) Params() Params {
	if q.Network == "" {
		q.Network = DefaultNetwork
	}
	return Params{Path: map[string]string{"network": q.Network}}
}

func bindTrendingPools(c *gin.Context) (Params, error) {
	var q PoolsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return q.Params(), nil
}
