package api

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/Sternrassler/alpha-dashboard/pkg/cache"
	"github.com/Sternrassler/alpha-dashboard/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// unmatchedRoute labels requests no route matched.
const unmatchedRoute = "unmatched"

// RequestLogger logs one line per request and records the HTTP metrics.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		done := metrics.RequestStarted()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		status := c.Writer.Status()
		done(route, c.Request.Method, status)

		event := log.Debug()
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Warn()
		case status >= http.StatusBadRequest:
			event = log.Info()
		}
		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.Last().Error())
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("route", route).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("duration", time.Since(start)).
			Str("cache", c.Writer.Header().Get(cache.HeaderCache)).
			Msg("Request served")
	}
}

// CORS allows browser access from origins. "*" allows any origin.
func CORS(origins []string) gin.HandlerFunc {
	allowAll := slices.Contains(origins, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(origins, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, If-None-Match, Cache-Control")
		c.Header("Access-Control-Expose-Headers", strings.Join([]string{"ETag", "Age", cache.HeaderCache, HeaderFallback}, ", "))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Timeout bounds the request context. A request past its deadline stops
// waiting on the cache; the shared upstream fetch it joined runs on.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
