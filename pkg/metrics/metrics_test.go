package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestObserveRequest(t *testing.T) {
	counter := httpRequestsTotal.WithLabelValues("/api/trending", "GET", "200")
	before := testutil.ToFloat64(counter)

	ObserveRequest("/api/trending", "GET", 200, 15*time.Millisecond)

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("requests counter delta = %v, want 1", got)
	}
}

func TestRequestStarted(t *testing.T) {
	before := testutil.ToFloat64(httpInFlight)

	done := RequestStarted()
	if got := testutil.ToFloat64(httpInFlight) - before; got != 1 {
		t.Errorf("in-flight delta = %v, want 1", got)
	}

	done("/api/markets", "GET", 502)
	if got := testutil.ToFloat64(httpInFlight) - before; got != 0 {
		t.Errorf("in-flight delta after completion = %v, want 0", got)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/markets", "GET", "502")); got < 1 {
		t.Errorf("completion not recorded, counter = %v", got)
	}
}

func TestViewAndFallbackCounters(t *testing.T) {
	source := viewSourceFailures.WithLabelValues("overview", "markets")
	before := testutil.ToFloat64(source)
	ViewSourceFailed("overview", "markets")
	if got := testutil.ToFloat64(source) - before; got != 1 {
		t.Errorf("view failure delta = %v, want 1", got)
	}

	ok := nftFallbacksTotal.WithLabelValues("ok")
	before = testutil.ToFloat64(ok)
	NFTFallback("ok")
	if got := testutil.ToFloat64(ok) - before; got != 1 {
		t.Errorf("fallback delta = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	ObserveRequest("/health", "GET", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "dashboard_http_requests_total") {
		t.Error("exposition should include dashboard_http_requests_total")
	}
}
