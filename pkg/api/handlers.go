package api

import (
	"errors"
	"net/http"

	"github.com/Sternrassler/alpha-dashboard/pkg/batch"
	"github.com/Sternrassler/alpha-dashboard/pkg/cache"
	"github.com/gin-gonic/gin"
)

// FailureStatus is the status of every failed upstream-backed response,
// whatever status the upstream returned.
const FailureStatus = http.StatusBadGateway

// HeaderFallback names the source of a fallback payload.
const HeaderFallback = "X-Fallback"

// Handler serves the proxied resources and the dashboard views.
type Handler struct {
	service *Service
	batch   *batch.BatchFetcher
}

// NewHandler creates a handler. fetcher bounds how views load their sources.
func NewHandler(service *Service, fetcher *batch.BatchFetcher) *Handler {
	if fetcher == nil {
		fetcher = batch.NewBatchFetcher(batch.DefaultConfig())
	}
	return &Handler{service: service, batch: fetcher}
}

// Resource returns the handler proxying the named resource. It panics when
// the resource does not exist, which is a wiring error.
func (h *Handler) Resource(name string) gin.HandlerFunc {
	res, ok := h.service.Resource(name)
	if !ok {
		panic("api: unknown resource " + name)
	}

	return func(c *gin.Context) {
		var params Params
		if res.Bind != nil {
			var err error
			if params, err = res.Bind(c); err != nil {
				respondError(c, err)
				return
			}
		}

		loaded, err := h.service.Load(c.Request.Context(), res.Name, params)
		if err != nil {
			respondError(c, err)
			return
		}

		h.respondPayload(c, loaded)
	}
}

// respondPayload writes the payload verbatim with its cache headers, or 304
// when the client already holds it.
func (h *Handler) respondPayload(c *gin.Context, loaded Loaded) {
	etag := cache.SetResponseHeaders(c.Writer.Header(), loaded.Result, h.service.now(), loaded.Window)
	if loaded.Fallback {
		c.Header(HeaderFallback, ResourceTrending)
	}

	if cache.NotModified(c.Request, etag) {
		c.Status(http.StatusNotModified)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", loaded.Payload())
}

// respondError writes the error envelope.
func respondError(c *gin.Context, err error) {
	status := FailureStatus
	if errors.Is(err, ErrInvalidParams) {
		status = http.StatusBadRequest
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
