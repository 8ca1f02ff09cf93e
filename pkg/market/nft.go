package market

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// FilterNFTs keeps collections whose name contains q, ignoring case.
func FilterNFTs(nfts []NFT, q string) []NFT {
	q = strings.ToLower(q)
	if q == "" {
		return slices.Clone(nfts)
	}

	out := make([]NFT, 0, len(nfts))
	for _, n := range nfts {
		if strings.Contains(strings.ToLower(n.Name), q) {
			out = append(out, n)
		}
	}
	return out
}

// SortNFTs returns nfts sorted by key in dir.
func SortNFTs(nfts []NFT, key NFTSortKey, dir Direction) []NFT {
	return sortStableBy(nfts, key.Value, dir)
}

// NFTsFromTrending reshapes trending NFT collections into the /nfts/markets
// schema. Floor price and 24h volume are read in native currency from the
// display strings; zero or unreadable values become null. USD figures are
// not available from the trending endpoint and are null.
func NFTsFromTrending(trending []TrendingNFT) []NFT {
	out := make([]NFT, 0, len(trending))
	for _, t := range trending {
		var floor, volume *float64
		if t.Data != nil {
			floor = parseDisplayNumber(t.Data.FloorPrice)
			volume = parseDisplayNumber(t.Data.H24Volume)
		}

		out = append(out, NFT{
			ID:                                 t.ID,
			Name:                               t.Name,
			Symbol:                             t.Symbol,
			Image:                              NFTImage{Small: t.Thumb},
			NativeCurrencySymbol:               t.NativeCurrencySymbol,
			FloorPrice:                         NFTAmount{NativeCurrency: floor},
			Volume24h:                          NFTAmount{NativeCurrency: volume},
			FloorPriceInUSD24hPercentageChange: t.FloorPrice24hPercentageChange,
		})
	}
	return out
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// parseDisplayNumber reads the numeric prefix of s ("0.52 ETH" is 0.52).
// Thousands separators are dropped first. A result of 0 or no number at all
// is nil.
func parseDisplayNumber(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	m := leadingNumber.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v == 0 {
		return nil
	}
	return &v
}
