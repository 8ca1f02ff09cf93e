package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Sternrassler/alpha-dashboard/pkg/batch"
	"github.com/Sternrassler/alpha-dashboard/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// ReadyFunc reports whether the backing store is reachable.
type ReadyFunc func(ctx context.Context) error

// Options configures the router.
type Options struct {
	Service         *Service
	Ready           ReadyFunc
	CORSOrigins     []string
	RequestTimeout  time.Duration
	ViewConcurrency int
}

// NewRouter returns the dashboard's HTTP handler:
//
//	GET /api/<resource>        proxied upstream resources
//	GET /api/views/<view>      aggregated dashboard views
//	GET /health                liveness
//	GET /ready                 readiness of the cache store
//	GET /metrics               Prometheus metrics
func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(), CORS(opts.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/ready", readyHandler(opts.Ready))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	cfg := batch.DefaultConfig()
	if opts.ViewConcurrency > 0 {
		cfg.MaxConcurrency = opts.ViewConcurrency
	}
	if opts.RequestTimeout > 0 {
		cfg.Timeout = opts.RequestTimeout
	}
	h := NewHandler(opts.Service, batch.NewBatchFetcher(cfg))

	api := r.Group("/api", Timeout(opts.RequestTimeout))
	for _, res := range Resources() {
		api.GET("/"+res.Name, h.Resource(res.Name))
	}

	views := api.Group("/views")
	views.GET("/overview", h.Overview)
	views.GET("/airdrop", h.Airdrop)
	views.GET("/onchain", h.Onchain)
	views.GET("/nfts", h.NFTs)

	return r
}

func readyHandler(ready ReadyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := ready(ctx); err != nil {
				_ = c.Error(err)
				c.String(http.StatusServiceUnavailable, "Cache store unavailable")
				return
			}
		}
		c.String(http.StatusOK, "OK")
	}
}
