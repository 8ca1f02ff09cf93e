package market

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrInvalidSortKey is returned for a sort key the view does not know.
	ErrInvalidSortKey = errors.New("invalid sort key")

	// ErrInvalidDirection is returned for a direction other than asc/desc.
	ErrInvalidDirection = errors.New("invalid sort direction")
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection parses "asc" or "desc" case-insensitively. An empty string
// yields def.
func ParseDirection(s string, def Direction) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return def, nil
	case Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// CoinSortKey selects the numeric column coins are sorted by.
type CoinSortKey string

const (
	SortByMarketCapRank CoinSortKey = "market_cap_rank"
	SortByCurrentPrice  CoinSortKey = "current_price"
	SortByChange24h     CoinSortKey = "price_change_percentage_24h"
	SortByMarketCap     CoinSortKey = "market_cap"
	SortByTotalVolume   CoinSortKey = "total_volume"
)

// CoinSortKeys lists the accepted coin sort keys.
var CoinSortKeys = []CoinSortKey{
	SortByMarketCapRank,
	SortByCurrentPrice,
	SortByChange24h,
	SortByMarketCap,
	SortByTotalVolume,
}

// ParseCoinSortKey validates a coin sort key. An empty string selects
// market_cap_rank.
func ParseCoinSortKey(s string) (CoinSortKey, error) {
	if s == "" {
		return SortByMarketCapRank, nil
	}
	key := CoinSortKey(s)
	if !slices.Contains(CoinSortKeys, key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSortKey, s)
	}
	return key, nil
}

// Value returns the sort value of coin under key; missing values are 0.
func (k CoinSortKey) Value(coin Coin) float64 {
	switch k {
	case SortByMarketCapRank:
		if coin.MarketCapRank == nil {
			return 0
		}
		return float64(*coin.MarketCapRank)
	case SortByCurrentPrice:
		return num(coin.CurrentPrice)
	case SortByChange24h:
		return num(coin.PriceChangePercentage24h)
	case SortByMarketCap:
		return num(coin.MarketCap)
	case SortByTotalVolume:
		return num(coin.TotalVolume)
	default:
		return 0
	}
}

// NFTSortKey selects the numeric column NFT collections are sorted by.
type NFTSortKey string

const (
	SortByFloorPriceUSD    NFTSortKey = "floor_price_usd"
	SortByVolume24hUSD     NFTSortKey = "volume_24h_usd"
	SortByMarketCapUSD     NFTSortKey = "market_cap_usd"
	SortByFloorPriceChange NFTSortKey = "floor_price_24h_change"
)

// NFTSortKeys lists the accepted NFT sort keys.
var NFTSortKeys = []NFTSortKey{
	SortByFloorPriceUSD,
	SortByVolume24hUSD,
	SortByMarketCapUSD,
	SortByFloorPriceChange,
}

// ParseNFTSortKey validates an NFT sort key. An empty string selects
// market_cap_usd.
func ParseNFTSortKey(s string) (NFTSortKey, error) {
	if s == "" {
		return SortByMarketCapUSD, nil
	}
	key := NFTSortKey(s)
	if !slices.Contains(NFTSortKeys, key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSortKey, s)
	}
	return key, nil
}

// Value returns the sort value of nft under key; missing values are 0.
func (k NFTSortKey) Value(nft NFT) float64 {
	switch k {
	case SortByFloorPriceUSD:
		return num(nft.FloorPrice.USD)
	case SortByVolume24hUSD:
		return num(nft.Volume24h.USD)
	case SortByMarketCapUSD:
		return num(nft.MarketCap.USD)
	case SortByFloorPriceChange:
		return num(nft.FloorPriceInUSD24hPercentageChange)
	default:
		return 0
	}
}

// sortStableBy returns a sorted copy of items. Equal values keep input order
// in both directions.
func sortStableBy[T any](items []T, value func(T) float64, dir Direction) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		if dir == Desc {
			return cmp.Compare(value(b), value(a))
		}
		return cmp.Compare(value(a), value(b))
	})
	return out
}
