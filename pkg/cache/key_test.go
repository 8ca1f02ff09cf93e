package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "base and path",
			key: Key{
				Base: "https://api.coingecko.com/api/v3",
				Path: "/search/trending",
			},
			want: "https://api.coingecko.com/api/v3/search/trending",
		},
		{
			name: "trailing and leading slashes normalized",
			key: Key{
				Base: "https://api.coingecko.com/api/v3/",
				Path: "/search/trending",
			},
			want: "https://api.coingecko.com/api/v3/search/trending",
		},
		{
			name: "query params sorted",
			key: Key{
				Base: "https://api.coingecko.com/api/v3",
				Path: "/status_updates",
				Query: url.Values{
					"per_page": []string{"15"},
					"page":     []string{"1"},
				},
			},
			want: "https://api.coingecko.com/api/v3/status_updates?page=1&per_page=15",
		},
		{
			name: "path params substituted",
			key: Key{
				Base:       "https://api.geckoterminal.com/api/v2",
				Path:       "/networks/{network}/trending_pools",
				PathParams: map[string]string{"network": "eth"},
				Query:      url.Values{"include": []string{"base_token,dex"}},
			},
			want: "https://api.geckoterminal.com/api/v2/networks/eth/trending_pools?include=base_token%2Cdex",
		},
		{
			name: "path params escaped",
			key: Key{
				Base:       "https://api.geckoterminal.com/api/v2",
				Path:       "/networks/{network}/trending_pools",
				PathParams: map[string]string{"network": "../admin"},
			},
			want: "https://api.geckoterminal.com/api/v2/networks/..%2Fadmin/trending_pools",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_String_Deterministic(t *testing.T) {
	key := Key{
		Base: "https://api.coingecko.com/api/v3",
		Path: "/coins/markets",
		Query: url.Values{
			"vs_currency": []string{"usd"},
			"order":       []string{"market_cap_desc"},
			"per_page":    []string{"100"},
			"page":        []string{"1"},
			"sparkline":   []string{"false"},
		},
	}

	first := key.String()
	for i := 0; i < 50; i++ {
		if got := key.String(); got != first {
			t.Fatalf("String() not deterministic: %q != %q", got, first)
		}
	}
}
