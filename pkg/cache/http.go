package cache

import (
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lukechampine.com/blake3"
)

// Response headers describing how a payload was served.
const (
	HeaderCache = "X-Cache"
	CacheHit    = "HIT"
	CacheMiss   = "MISS"
)

// ETag returns a strong entity tag for payload.
func ETag(payload []byte) string {
	sum := blake3.Sum256(payload)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// SetResponseHeaders describes res on h: hit or miss, entry age, remaining
// freshness as max-age, and the payload's ETag. It returns the ETag.
func SetResponseHeaders(h http.Header, res Result, now time.Time, window time.Duration) string {
	if res.Entry == nil {
		return ""
	}

	if res.Hit {
		h.Set(HeaderCache, CacheHit)
	} else {
		h.Set(HeaderCache, CacheMiss)
	}

	age := res.Entry.Age(now)
	h.Set("Age", strconv.Itoa(int(age/time.Second)))

	remaining := window - age
	if remaining < 0 {
		remaining = 0
	}
	h.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(remaining/time.Second)))

	etag := ETag(res.Entry.Payload)
	h.Set("ETag", etag)
	return etag
}

// NotModified reports whether req's If-None-Match matches etag, in which case
// the caller can answer 304 Not Modified.
func NotModified(req *http.Request, etag string) bool {
	if req == nil || etag == "" {
		return false
	}

	header := req.Header.Get("If-None-Match")
	if header == "" {
		return false
	}

	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		// Weak comparison, as for GET requests
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}
