package cache

import (
	"net/url"
	"sort"
	"strings"
)

// Key identifies an upstream resource. Its rendered URL is the cache identity.
type Key struct {
	// Base is the upstream base URL (e.g., "https://api.coingecko.com/api/v3")
	Base string

	// Path is the resource path, optionally with {name} placeholders
	// (e.g., "/networks/{network}/trending_pools")
	Path string

	// PathParams fill the placeholders in Path (e.g., {"network": "eth"})
	PathParams map[string]string

	// Query holds the query parameters
	Query url.Values
}

// String renders the fully-qualified upstream URL.
// Path parameters are escaped and query keys are sorted, so equal keys always
// render to the same string.
//
// Example:
//
//	https://api.geckoterminal.com/api/v2/networks/eth/trending_pools?include=base_token%2Cdex
func (k Key) String() string {
	path := k.Path
	if len(k.PathParams) > 0 {
		names := make([]string, 0, len(k.PathParams))
		for name := range k.PathParams {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(k.PathParams[name]))
		}
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(k.Base, "/"))
	if path != "" {
		b.WriteByte('/')
		b.WriteString(strings.TrimLeft(path, "/"))
	}

	if len(k.Query) > 0 {
		b.WriteByte('?')
		b.WriteString(k.Query.Encode())
	}

	return b.String()
}
