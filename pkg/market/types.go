// Package market holds the typed upstream records used by the dashboard views
// and the pure computations derived from them (opportunity scoring, anomaly
// detection, filtering, sorting, pagination and aggregation).
//
// Nothing in this package performs I/O. Every function is deterministic in its
// inputs and never mutates the slices it is given.
package market

import "encoding/json"

// Coin is one row of CoinGecko's /coins/markets response.
// Numbers the upstream may send as null are pointers.
type Coin struct {
	ID                                string   `json:"id"`
	Symbol                            string   `json:"symbol"`
	Name                              string   `json:"name"`
	Image                             string   `json:"image,omitempty"`
	CurrentPrice                      *float64 `json:"current_price"`
	MarketCap                         *float64 `json:"market_cap"`
	MarketCapRank                     *int     `json:"market_cap_rank"`
	TotalVolume                       *float64 `json:"total_volume"`
	PriceChangePercentage24h          *float64 `json:"price_change_percentage_24h"`
	PriceChangePercentage1hInCurrency *float64 `json:"price_change_percentage_1h_in_currency,omitempty"`
	PriceChangePercentage7dInCurrency *float64 `json:"price_change_percentage_7d_in_currency,omitempty"`
}

// TrendingResponse is CoinGecko's /search/trending response.
type TrendingResponse struct {
	Coins []TrendingCoin `json:"coins"`
	NFTs  []TrendingNFT  `json:"nfts"`
}

// TrendingCoin wraps one trending coin.
type TrendingCoin struct {
	Item TrendingCoinItem `json:"item"`
}

// TrendingCoinItem is the payload of a trending coin.
type TrendingCoinItem struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Symbol        string            `json:"symbol"`
	Thumb         string            `json:"thumb,omitempty"`
	MarketCapRank *int              `json:"market_cap_rank"`
	Score         *int              `json:"score,omitempty"`
	Data          *TrendingCoinData `json:"data,omitempty"`
}

// TrendingCoinData carries the display strings of a trending coin. Only the
// 24h change is typed; the rest is passed through as sent.
type TrendingCoinData struct {
	Price                    json.RawMessage    `json:"price,omitempty"`
	PriceChangePercentage24h map[string]float64 `json:"price_change_percentage_24h,omitempty"`
	MarketCap                json.RawMessage    `json:"market_cap,omitempty"`
	TotalVolume              json.RawMessage    `json:"total_volume,omitempty"`
}

// Change24hUSD returns the 24h USD change, or 0 when absent.
func (c TrendingCoin) Change24hUSD() float64 {
	if c.Item.Data == nil {
		return 0
	}
	return c.Item.Data.PriceChangePercentage24h["usd"]
}

// TrendingNFT is one NFT collection of the trending response.
type TrendingNFT struct {
	ID                            string           `json:"id"`
	Name                          string           `json:"name"`
	Symbol                        string           `json:"symbol,omitempty"`
	Thumb                         string           `json:"thumb,omitempty"`
	NativeCurrencySymbol          string           `json:"native_currency_symbol,omitempty"`
	FloorPrice24hPercentageChange *float64         `json:"floor_price_24h_percentage_change"`
	Data                          *TrendingNFTData `json:"data,omitempty"`
}

// TrendingNFTData holds the display strings of a trending NFT collection.
type TrendingNFTData struct {
	FloorPrice string `json:"floor_price,omitempty"`
	H24Volume  string `json:"h24_volume,omitempty"`
}

// Category is one row of CoinGecko's /coins/categories response.
type Category struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	MarketCap          *float64 `json:"market_cap"`
	MarketCapChange24h *float64 `json:"market_cap_change_24h"`
	Volume24h          *float64 `json:"volume_24h,omitempty"`
	Top3Coins          []string `json:"top_3_coins,omitempty"`
}

// NFT is one row of CoinGecko's /nfts/markets response.
type NFT struct {
	ID                                 string    `json:"id"`
	Name                               string    `json:"name"`
	Symbol                             string    `json:"symbol,omitempty"`
	Image                              NFTImage  `json:"image"`
	NativeCurrencySymbol               string    `json:"native_currency_symbol"`
	FloorPrice                         NFTAmount `json:"floor_price"`
	MarketCap                          NFTAmount `json:"market_cap"`
	Volume24h                          NFTAmount `json:"volume_24h"`
	FloorPriceInUSD24hPercentageChange *float64  `json:"floor_price_in_usd_24h_percentage_change"`
}

// NFTImage holds collection image URLs.
type NFTImage struct {
	Small string `json:"small"`
}

// NFTAmount is a value quoted in the collection's native currency and USD.
type NFTAmount struct {
	NativeCurrency *float64 `json:"native_currency"`
	USD            *float64 `json:"usd"`
}

// NetworksResponse is GeckoTerminal's /networks response.
type NetworksResponse struct {
	Data []Network `json:"data"`
}

// Network is one chain known to GeckoTerminal.
type Network struct {
	ID         string            `json:"id"`
	Type       string            `json:"type,omitempty"`
	Attributes NetworkAttributes `json:"attributes"`
}

// NetworkAttributes describes a network.
type NetworkAttributes struct {
	Name                     string  `json:"name"`
	CoingeckoAssetPlatformID *string `json:"coingecko_asset_platform_id"`
	NativeCoinID             *string `json:"native_coin_id,omitempty"`
	ChainIdentifier          *int64  `json:"chain_identifier,omitempty"`
}

// PlatformLabel is the asset platform id, falling back to the network id.
func (n Network) PlatformLabel() string {
	if n.Attributes.CoingeckoAssetPlatformID != nil {
		return *n.Attributes.CoingeckoAssetPlatformID
	}
	return n.ID
}

// PoolsResponse is GeckoTerminal's pool list response.
type PoolsResponse struct {
	Data     []Pool            `json:"data"`
	Included []json.RawMessage `json:"included,omitempty"`
}

// Pool is one DEX liquidity pool. GeckoTerminal sends decimals as strings.
type Pool struct {
	ID            string                  `json:"id"`
	Type          string                  `json:"type,omitempty"`
	Attributes    PoolAttributes          `json:"attributes"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
}

// PoolAttributes describes a pool.
type PoolAttributes struct {
	Name                  string                 `json:"name"`
	Address               string                 `json:"address"`
	BaseTokenPriceUSD     *string                `json:"base_token_price_usd"`
	QuoteTokenPriceUSD    *string                `json:"quote_token_price_usd"`
	PoolCreatedAt         *string                `json:"pool_created_at"`
	ReserveInUSD          *string                `json:"reserve_in_usd"`
	FDVUSD                *string                `json:"fdv_usd"`
	VolumeUSD             map[string]*string     `json:"volume_usd,omitempty"`
	PriceChangePercentage map[string]*string     `json:"price_change_percentage,omitempty"`
	Transactions          map[string]PoolTxCount `json:"transactions,omitempty"`
}

// PoolTxCount counts buys and sells within a window.
type PoolTxCount struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// Relationship links a pool to a token, DEX or network.
type Relationship struct {
	Data *ResourceRef `json:"data"`
}

// ResourceRef identifies a related resource.
type ResourceRef struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
}

// StatusUpdatesResponse is CoinGecko's /status_updates response.
type StatusUpdatesResponse struct {
	StatusUpdates []StatusUpdate `json:"status_updates"`
}

// StatusUpdate is one project announcement.
type StatusUpdate struct {
	Description string        `json:"description"`
	Category    string        `json:"category,omitempty"`
	CreatedAt   string        `json:"created_at"`
	Project     StatusProject `json:"project"`
}

// StatusProject is the project that posted a status update.
type StatusProject struct {
	Name  string       `json:"name"`
	Image ProjectImage `json:"image"`
}

// ProjectImage holds project image URLs.
type ProjectImage struct {
	Thumb string `json:"thumb,omitempty"`
	Small string `json:"small,omitempty"`
	Large string `json:"large,omitempty"`
}

// num reads a nullable number, treating null as 0.
func num(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Head returns at most the first n items.
func Head[T any](items []T, n int) []T {
	if n < 0 || len(items) <= n {
		return items
	}
	return items[:n]
}
