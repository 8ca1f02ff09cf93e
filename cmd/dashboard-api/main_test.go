package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/alpha-dashboard/pkg/config"
	"github.com/Sternrassler/alpha-dashboard/pkg/upstream"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestNewApp_Memory(t *testing.T) {
	cfg := config.Default()

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "memory", a.store.Kind())

	w := get(t, a.handler, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = get(t, a.handler, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewApp_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Cache.Store = config.StoreRedis
	cfg.Cache.RedisURL = "redis://" + mr.Addr() + "/0"

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "redis", a.store.Kind())

	w := get(t, a.handler, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	mr.Close()

	w = get(t, a.handler, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNewApp_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.Default()
	cfg.Cache.Store = config.StoreRedis
	cfg.Cache.RedisURL = addr

	_, err := newApp(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestNewApp_ProxiesUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "demo-key", r.Header.Get(upstream.CoinGeckoKeyHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"coins":[],"nfts":[]}`)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Upstream.CoinGeckoBaseURL = server.URL
	cfg.Upstream.CoinGeckoAPIKey = "demo-key"

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	w := get(t, a.handler, "/api/trending")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"coins":[],"nfts":[]}`, w.Body.String())
}

func TestUpstreamConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Upstream.UserAgent = "custom/2.0"
	cfg.Upstream.Timeout = 3 * time.Second
	cfg.Upstream.MaxRetries = 2

	got := upstreamConfig(upstream.GeckoTerminalConfig(""), cfg)
	assert.Equal(t, upstream.GeckoTerminalName, got.Name)
	assert.Equal(t, upstream.GeckoTerminalBaseURL, got.BaseURL)
	assert.Equal(t, "custom/2.0", got.UserAgent)
	assert.Equal(t, 3*time.Second, got.Timeout)
	assert.Equal(t, 3, got.Retry.MaxAttempts)

	cfg.Upstream.MaxRetries = 0
	got = upstreamConfig(upstream.CoinGeckoConfig("", ""), cfg)
	assert.Equal(t, 1, got.Retry.MaxAttempts)
}

func TestRun_ConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		err := run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, io.Discard)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading config file")
	})

	t.Run("invalid store", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("cache:\n  store: disk\n"), 0o600))

		err := run(context.Background(), []string{"-config", path}, io.Discard)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache store must be 'memory' or 'redis'")
	})

	t.Run("unknown flag", func(t *testing.T) {
		err := run(context.Background(), []string{"-verbose"}, io.Discard)
		require.Error(t, err)
	})
}

func TestRun_GracefulShutdown(t *testing.T) {
	t.Setenv("PORT", "18431")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, nil, io.Discard)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:18431/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}
