package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Sternrassler/alpha-dashboard/pkg/batch"
	"github.com/Sternrassler/alpha-dashboard/pkg/market"
	"github.com/Sternrassler/alpha-dashboard/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// Source states reported by the views.
const (
	SourceOK    = "ok"
	SourceError = "error"
)

// SourceStatus tells whether a view input loaded. An empty list with status
// "ok" means the upstream had no data; with "error" it means the load failed.
type SourceStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Sources maps source name to status.
type Sources map[string]SourceStatus

// AllFailed reports whether no source loaded.
func (s Sources) AllFailed() bool {
	for _, st := range s {
		if st.Status == SourceOK {
			return false
		}
	}
	return len(s) > 0
}

// CoinTable is one page of the filtered and sorted market table.
type CoinTable struct {
	Items []market.Coin      `json:"items"`
	Page  market.Page        `json:"pagination"`
	Sort  market.CoinSortKey `json:"sort"`
	Dir   market.Direction   `json:"dir"`
	Query string             `json:"q,omitempty"`
}

// OverviewView is the main dashboard.
type OverviewView struct {
	Trending  []market.TrendingCoin `json:"trending"`
	Heatmap   []market.HeatmapCell  `json:"heatmap"`
	Markets   CoinTable             `json:"markets"`
	Anomalies []string              `json:"anomalies"`
	News      []market.StatusUpdate `json:"news"`
	Sources   Sources               `json:"sources"`
}

// AirdropView ranks small caps for airdrop hunting.
type AirdropView struct {
	Networks      []market.Network     `json:"networks"`
	Opportunities []market.Opportunity `json:"opportunities"`
	MicroCaps     []market.Coin        `json:"micro_caps"`
	Sources       Sources              `json:"sources"`
}

// OnchainView lists fresh and trending DEX pools.
type OnchainView struct {
	Network       string        `json:"network"`
	NewPools      []market.Pool `json:"new_pools"`
	TrendingPools []market.Pool `json:"trending_pools"`
	Sources       Sources       `json:"sources"`
}

// NFTView lists NFT collections.
type NFTView struct {
	Items    []market.NFT      `json:"items"`
	Sort     market.NFTSortKey `json:"sort"`
	Dir      market.Direction  `json:"dir"`
	Query    string            `json:"q,omitempty"`
	Fallback bool              `json:"fallback"`
	Sources  Sources           `json:"sources"`
}

// OverviewQuery controls the market table of the overview.
type OverviewQuery struct {
	Q    string `form:"q" binding:"max=100"`
	Sort string `form:"sort"`
	Dir  string `form:"dir"`
	Page int    `form:"page" binding:"omitempty,min=1"`
}

// NFTQuery controls the NFT list.
type NFTQuery struct {
	Q    string `form:"q" binding:"max=100"`
	Sort string `form:"sort"`
	Dir  string `form:"dir"`
}

// Markets parameters used by the views.
var (
	overviewMarkets = MarketsQuery{PerPage: 100, Order: "market_cap_desc"}.Params()
	airdropMarkets  = MarketsQuery{PerPage: MaxPerPage, Order: "market_cap_asc"}.Params()
)

// source adapts a resource load for the batch fetcher.
func (h *Handler) source(name, resource string, params Params) batch.Source {
	return batch.Source{
		Name: name,
		Fetch: func(ctx context.Context) (json.RawMessage, error) {
			loaded, err := h.service.Load(ctx, resource, params)
			if err != nil {
				return nil, err
			}
			return loaded.Payload(), nil
		},
	}
}

// decodeSource decodes a source into out and records its status. A source
// whose body does not have the expected shape counts as failed.
func decodeSource(view string, results batch.Results, sources Sources, name string, out any) bool {
	res := results[name]
	if res.Error == nil {
		if err := json.Unmarshal(res.Data, out); err != nil {
			res.Error = fmt.Errorf("unexpected %s response: %w", name, err)
		}
	}

	if res.Error != nil {
		metrics.ViewSourceFailed(view, name)
		sources[name] = SourceStatus{Status: SourceError, Error: res.Error.Error()}
		return false
	}

	sources[name] = SourceStatus{Status: SourceOK}
	return true
}

// respondView writes a view; 502 when every source failed.
func respondView(c *gin.Context, sources Sources, view any) {
	status := http.StatusOK
	if sources.AllFailed() {
		status = FailureStatus
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(status, view)
}

// Overview serves GET /api/views/overview.
func (h *Handler) Overview(c *gin.Context) {
	var q OverviewQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, fmt.Errorf("%w: %v", ErrInvalidParams, err))
		return
	}
	sortKey, err := market.ParseCoinSortKey(q.Sort)
	if err != nil {
		respondError(c, fmt.Errorf("%w: %v", ErrInvalidParams, err))
		return
	}
	dir, err := market.ParseDirection(q.Dir, market.Asc)
	if err != nil {
		respondError(c, fmt.Errorf("%w: %v", ErrInvalidParams, err))
		return
	}

	results := h.batch.FetchAll(c.Request.Context(), []batch.Source{
		h.source("trending", ResourceTrending, Params{}),
		h.source("markets", ResourceMarkets, overviewMarkets),
		h.source("categories", ResourceCategories, Params{}),
		h.source("news", ResourceNews, Params{}),
	})

	view := OverviewView{
		Trending:  []market.TrendingCoin{},
		Heatmap:   []market.HeatmapCell{},
		Anomalies: []string{},
		News:      []market.StatusUpdate{},
		Sources:   Sources{},
	}

	var trending market.TrendingResponse
	if decodeSource("overview", results, view.Sources, "trending", &trending) {
		view.Trending = market.Head(trending.Coins, market.TrendingCardCount)
	}

	var categories []market.Category
	if decodeSource("overview", results, view.Sources, "categories", &categories) {
		view.Heatmap = market.SectorHeatmap(categories, market.DefaultHeatmapSize)
	}

	var coins []market.Coin
	decodeSource("overview", results, view.Sources, "markets", &coins)
	view.Anomalies = market.VolumeAnomalies(coins)
	items, page := market.Paginate(market.SortCoins(market.FilterCoins(coins, q.Q), sortKey, dir), q.Page, market.PageSize)
	view.Markets = CoinTable{Items: items, Page: page, Sort: sortKey, Dir: dir, Query: q.Q}

	var news market.StatusUpdatesResponse
	if decodeSource("overview", results, view.Sources, "news", &news) && news.StatusUpdates != nil {
		view.News = news.StatusUpdates
	}

	respondView(c, view.Sources, view)
}

// Airdrop serves GET /api/views/airdrop.
func (h *Handler) Airdrop(c *gin.Context) {
	results := h.batch.FetchAll(c.Request.Context(), []batch.Source{
		h.source("networks", ResourceNetworks, Params{}),
		h.source("markets", ResourceMarkets, airdropMarkets),
		h.source("trending", ResourceTrending, Params{}),
	})

	view := AirdropView{
		Networks:      []market.Network{},
		Opportunities: []market.Opportunity{},
		MicroCaps:     []market.Coin{},
		Sources:       Sources{},
	}

	var networks market.NetworksResponse
	if decodeSource("airdrop", results, view.Sources, "networks", &networks) && networks.Data != nil {
		view.Networks = market.Head(networks.Data, market.NetworkListSize)
	}

	var trending market.TrendingResponse
	decodeSource("airdrop", results, view.Sources, "trending", &trending)

	var coins []market.Coin
	if decodeSource("airdrop", results, view.Sources, "markets", &coins) {
		view.Opportunities = market.Opportunities(coins, market.TrendingIDs(trending.Coins), market.DefaultOpportunityLimit)
		view.MicroCaps = market.MicroCaps(coins, market.DefaultMicroCapLimit)
	}

	respondView(c, view.Sources, view)
}

// Onchain serves GET /api/views/onchain.
func (h *Handler) Onchain(c *gin.Context) {
	var q PoolsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, fmt.Errorf("%w: %v", ErrInvalidParams, err))
		return
	}
	params := q.Params()

	results := h.batch.FetchAll(c.Request.Context(), []batch.Source{
		h.source("new_pools", ResourceNewPools, Params{}),
		h.source("trending_pools", ResourceTrendingPools, params),
	})

	view := OnchainView{
		Network:       params.Path["network"],
		NewPools:      []market.Pool{},
		TrendingPools: []market.Pool{},
		Sources:       Sources{},
	}

	var newPools market.PoolsResponse
	if decodeSource("onchain", results, view.Sources, "new_pools", &newPools) && newPools.Data != nil {
		view.NewPools = market.Head(newPools.Data, market.PoolTableSize)
	}

	var trendingPools market.PoolsResponse
	if decodeSource("onchain", results, view.Sources, "trending_pools", &trendingPools) && trendingPools.Data != nil {
		view.TrendingPools = market.Head(trendingPools.Data, market.PoolTableSize)
	}

	respondView(c, view.Sources, view)
}

// NFTs serves GET /api/views/nfts.
func (h *Handler) NFTs(c *gin.Context) {
	var q NFTQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, fmt.Errorf("%w: %v", ErrInvalidParams, err))
		return
	}
	sortKey, err := market.ParseNFTSortKey(q.Sort)
	if err != nil {
		respondError(c, fmt.Errorf("%w: %v", ErrInvalidParams, err))
		return
	}
	dir, err := market.ParseDirection(q.Dir, market.Desc)
	if err != nil {
		respondError(c, fmt.Errorf("%w: %v", ErrInvalidParams, err))
		return
	}

	var fallback bool
	results := h.batch.FetchAll(c.Request.Context(), []batch.Source{{
		Name: "nfts",
		Fetch: func(ctx context.Context) (json.RawMessage, error) {
			loaded, err := h.service.Load(ctx, ResourceNFTs, Params{})
			if err != nil {
				return nil, err
			}
			fallback = loaded.Fallback
			return loaded.Payload(), nil
		},
	}})

	view := NFTView{
		Items:   []market.NFT{},
		Sort:    sortKey,
		Dir:     dir,
		Query:   q.Q,
		Sources: Sources{},
	}

	var nfts []market.NFT
	if decodeSource("nfts", results, view.Sources, "nfts", &nfts) {
		view.Items = market.SortNFTs(market.FilterNFTs(nfts, q.Q), sortKey, dir)
		view.Fallback = fallback
	}

	respondView(c, view.Sources, view)
}
