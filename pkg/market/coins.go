package market

import (
	"math"
	"slices"
	"strings"
)

// View constants.
const (
	// PageSize is the number of rows per market table page.
	PageSize = 20

	// AnomalyVolumeRatio is the volume/market-cap ratio above which a coin
	// with a flat price is flagged.
	AnomalyVolumeRatio = 0.5

	// AnomalyMaxChange is the absolute 24h change below which a price is flat.
	AnomalyMaxChange = 5.0

	// MicroCapCeiling is the exclusive market cap limit of a micro cap.
	MicroCapCeiling = 1e6

	DefaultMicroCapLimit = 20
	DefaultHeatmapSize   = 12
	TrendingCardCount    = 7
	NetworkListSize      = 24
	PoolTableSize        = 20
)

// FilterCoins keeps coins whose name or symbol contains q, ignoring case.
// An empty q keeps every coin.
func FilterCoins(coins []Coin, q string) []Coin {
	q = strings.ToLower(q)
	if q == "" {
		return slices.Clone(coins)
	}

	out := make([]Coin, 0, len(coins))
	for _, c := range coins {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Symbol), q) {
			out = append(out, c)
		}
	}
	return out
}

// SortCoins returns coins sorted by key in dir.
func SortCoins(coins []Coin, key CoinSortKey, dir Direction) []Coin {
	return sortStableBy(coins, key.Value, dir)
}

// VolumeAnomalies returns the ids of coins trading more than half their
// market cap in a day while the price moved less than 5%. A zero or missing
// market cap divides by 1.
func VolumeAnomalies(coins []Coin) []string {
	ids := make([]string, 0)
	for _, c := range coins {
		mcap := num(c.MarketCap)
		if mcap == 0 {
			mcap = 1
		}
		if num(c.TotalVolume)/mcap > AnomalyVolumeRatio && math.Abs(num(c.PriceChangePercentage24h)) < AnomalyMaxChange {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// MicroCaps returns up to limit coins with 0 <= market cap < 1e6, highest
// volume first. A limit <= 0 means DefaultMicroCapLimit.
func MicroCaps(coins []Coin, limit int) []Coin {
	if limit <= 0 {
		limit = DefaultMicroCapLimit
	}

	out := make([]Coin, 0)
	for _, c := range coins {
		if mcap := num(c.MarketCap); mcap >= 0 && mcap < MicroCapCeiling {
			out = append(out, c)
		}
	}

	return Head(sortStableBy(out, SortByTotalVolume.Value, Desc), limit)
}

// HeatmapCell is one sector of the heatmap.
type HeatmapCell struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Change24h float64 `json:"change_24h"`
	MarketCap float64 `json:"market_cap"`
	Positive  bool    `json:"positive"`
}

// SectorHeatmap turns the first n categories into heatmap cells. Categories
// are expected in upstream order (largest 24h change first).
func SectorHeatmap(categories []Category, n int) []HeatmapCell {
	if n <= 0 {
		n = DefaultHeatmapSize
	}

	top := Head(categories, n)
	cells := make([]HeatmapCell, 0, len(top))
	for _, c := range top {
		change := num(c.MarketCapChange24h)
		cells = append(cells, HeatmapCell{
			ID:        c.ID,
			Name:      c.Name,
			Change24h: change,
			MarketCap: num(c.MarketCap),
			Positive:  change >= 0,
		})
	}
	return cells
}

// Page describes one page of a paginated list.
type Page struct {
	Number     int `json:"page"`
	Size       int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// Paginate slices items to the 1-based page of the given size. A page past
// the end is empty; page < 1 is treated as 1.
func Paginate[T any](items []T, page, size int) ([]T, Page) {
	if size <= 0 {
		size = PageSize
	}
	if page < 1 {
		page = 1
	}

	info := Page{
		Number:     page,
		Size:       size,
		TotalItems: len(items),
		TotalPages: (len(items) + size - 1) / size,
	}

	start := (page - 1) * size
	if start >= len(items) {
		return []T{}, info
	}
	end := min(start+size, len(items))
	return items[start:end], info
}
