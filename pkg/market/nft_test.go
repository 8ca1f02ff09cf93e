package market

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestNFTsFromTrending(t *testing.T) {
	raw := `{"coins":[],"nfts":[
		{"id":"pudgy","name":"Pudgy Penguins","symbol":"PPG","thumb":"https://img/p.png",
		 "native_currency_symbol":"eth","floor_price_24h_percentage_change":4.2,
		 "data":{"floor_price":"10.52 ETH","h24_volume":"1,234.5 ETH"}},
		{"id":"ghost","name":"Ghosts","native_currency_symbol":"eth",
		 "floor_price_24h_percentage_change":null,
		 "data":{"floor_price":"0 ETH","h24_volume":"n/a"}}
	]}`

	var resp TrendingResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	nfts := NFTsFromTrending(resp.NFTs)
	if len(nfts) != 2 {
		t.Fatalf("len = %d, want 2", len(nfts))
	}

	p := nfts[0]
	if p.ID != "pudgy" || p.Image.Small != "https://img/p.png" || p.NativeCurrencySymbol != "eth" {
		t.Errorf("identity fields not carried over: %+v", p)
	}
	if p.FloorPrice.NativeCurrency == nil || *p.FloorPrice.NativeCurrency != 10.52 {
		t.Errorf("floor price = %v, want 10.52", p.FloorPrice.NativeCurrency)
	}
	if p.Volume24h.NativeCurrency == nil || *p.Volume24h.NativeCurrency != 1234.5 {
		t.Errorf("volume = %v, want 1234.5", p.Volume24h.NativeCurrency)
	}
	if p.FloorPrice.USD != nil || p.MarketCap.USD != nil || p.Volume24h.USD != nil {
		t.Error("USD figures should be null")
	}
	if p.FloorPriceInUSD24hPercentageChange == nil || *p.FloorPriceInUSD24hPercentageChange != 4.2 {
		t.Errorf("24h change = %v", p.FloorPriceInUSD24hPercentageChange)
	}

	g := nfts[1]
	if g.FloorPrice.NativeCurrency != nil {
		t.Errorf("zero floor should be null, got %v", *g.FloorPrice.NativeCurrency)
	}
	if g.Volume24h.NativeCurrency != nil {
		t.Errorf("unreadable volume should be null, got %v", *g.Volume24h.NativeCurrency)
	}

	out, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var shape map[string]any
	_ = json.Unmarshal(out, &shape)
	if mc, ok := shape["market_cap"].(map[string]any); !ok || mc["usd"] != nil {
		t.Errorf("market_cap should be {usd: null}, got %v", shape["market_cap"])
	}
}

func TestParseDisplayNumber(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"0.52", f(0.52)},
		{"0.52 ETH", f(0.52)},
		{" 12 ", f(12)},
		{"1e3", f(1000)},
		{"0", nil},
		{"", nil},
		{"ETH 3", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseDisplayNumber(tt.in)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("got %v, want nil", *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("got %v, want %v", got, *tt.want)
			}
		})
	}
}

func TestFilterAndSortNFTs(t *testing.T) {
	nfts := []NFT{
		{ID: "a", Name: "Azuki", MarketCap: NFTAmount{USD: f(300)}},
		{ID: "b", Name: "Bored Ape", MarketCap: NFTAmount{USD: f(900)}},
		{ID: "m", Name: "Milady", MarketCap: NFTAmount{}},
		{ID: "p", Name: "Pudgy Penguins", Symbol: "AZUKI-LIKE", MarketCap: NFTAmount{USD: f(500)}},
	}

	filtered := FilterNFTs(nfts, "AZU")
	if len(filtered) != 1 || filtered[0].ID != "a" {
		t.Errorf("filter should match name only, got %v", filtered)
	}

	sorted := SortNFTs(nfts, SortByMarketCapUSD, Desc)
	got := make([]string, len(sorted))
	for i, n := range sorted {
		got[i] = n.ID
	}
	if want := []string{"b", "p", "a", "m"}; !slices.Equal(got, want) {
		t.Errorf("SortNFTs() = %v, want %v", got, want)
	}

	if _, err := ParseNFTSortKey("floor_price_usd"); err != nil {
		t.Errorf("ParseNFTSortKey: %v", err)
	}
	if key, _ := ParseNFTSortKey(""); key != SortByMarketCapUSD {
		t.Errorf("default NFT sort key = %q", key)
	}
	if _, err := ParseNFTSortKey("rarity"); err == nil {
		t.Error("expected error for unknown key")
	}
}
