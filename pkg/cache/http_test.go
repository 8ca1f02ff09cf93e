package cache

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestETag(t *testing.T) {
	a := ETag([]byte(`{"a":1}`))
	b := ETag([]byte(`{"a":1}`))
	c := ETag([]byte(`{"a":2}`))

	if a != b {
		t.Errorf("ETag not stable: %s != %s", a, b)
	}
	if a == c {
		t.Error("different payloads produced the same ETag")
	}
	if len(a) != 34 || a[0] != '"' || a[len(a)-1] != '"' {
		t.Errorf("ETag %s is not a quoted 32 hex digit tag", a)
	}
}

func TestSetResponseHeaders(t *testing.T) {
	fetched := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	entry := &Entry{Key: "k", Payload: json.RawMessage(`[]`), FetchedAt: fetched}

	tests := []struct {
		name       string
		res        Result
		now        time.Time
		window     time.Duration
		wantCache  string
		wantAge    string
		wantMaxAge string
	}{
		{
			name:       "fresh miss",
			res:        Result{Entry: entry},
			now:        fetched,
			window:     time.Minute,
			wantCache:  CacheMiss,
			wantAge:    "0",
			wantMaxAge: "public, max-age=60",
		},
		{
			name:       "hit half way",
			res:        Result{Entry: entry, Hit: true},
			now:        fetched.Add(30 * time.Second),
			window:     time.Minute,
			wantCache:  CacheHit,
			wantAge:    "30",
			wantMaxAge: "public, max-age=30",
		},
		{
			name:       "stale never negative",
			res:        Result{Entry: entry, Hit: true},
			now:        fetched.Add(2 * time.Minute),
			window:     time.Minute,
			wantCache:  CacheHit,
			wantAge:    "120",
			wantMaxAge: "public, max-age=0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			etag := SetResponseHeaders(h, tt.res, tt.now, tt.window)

			if got := h.Get(HeaderCache); got != tt.wantCache {
				t.Errorf("X-Cache = %q, want %q", got, tt.wantCache)
			}
			if got := h.Get("Age"); got != tt.wantAge {
				t.Errorf("Age = %q, want %q", got, tt.wantAge)
			}
			if got := h.Get("Cache-Control"); got != tt.wantMaxAge {
				t.Errorf("Cache-Control = %q, want %q", got, tt.wantMaxAge)
			}
			if etag == "" || h.Get("ETag") != etag {
				t.Errorf("ETag header = %q, returned %q", h.Get("ETag"), etag)
			}
		})
	}
}

func TestSetResponseHeaders_NilEntry(t *testing.T) {
	h := http.Header{}
	if etag := SetResponseHeaders(h, Result{}, time.Now(), time.Minute); etag != "" {
		t.Errorf("expected empty etag, got %q", etag)
	}
	if len(h) != 0 {
		t.Errorf("expected no headers, got %v", h)
	}
}

func TestNotModified(t *testing.T) {
	etag := ETag([]byte(`[]`))

	tests := []struct {
		name        string
		ifNoneMatch string
		want        bool
	}{
		{"no header", "", false},
		{"exact match", etag, true},
		{"weak match", "W/" + etag, true},
		{"list match", `"other", ` + etag, true},
		{"wildcard", "*", true},
		{"no match", `"other"`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/trending", nil)
			if tt.ifNoneMatch != "" {
				req.Header.Set("If-None-Match", tt.ifNoneMatch)
			}
			if got := NotModified(req, etag); got != tt.want {
				t.Errorf("NotModified() = %v, want %v", got, tt.want)
			}
		})
	}

	if NotModified(nil, etag) {
		t.Error("nil request should not match")
	}
}
