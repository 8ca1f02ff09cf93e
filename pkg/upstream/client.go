// Package upstream provides the HTTP client for the third-party market-data
// APIs (CoinGecko and GeckoTerminal) with error classification, optional
// retries and rate-limit gating.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/alpha-dashboard/pkg/cache"
	"github.com/Sternrassler/alpha-dashboard/pkg/logging"
	"github.com/Sternrassler/alpha-dashboard/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for upstream requests.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_upstream_requests_total",
		Help: "Total upstream requests by upstream and status",
	}, []string{"upstream", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"upstream"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_upstream_errors_total",
		Help: "Total upstream errors by upstream and class",
	}, []string{"upstream", "class"})
)

// Upstream defaults.
const (
	CoinGeckoName        = "coingecko"
	CoinGeckoBaseURL     = "https://api.coingecko.com/api/v3"
	CoinGeckoKeyHeader   = "x-cg-demo-api-key"
	GeckoTerminalName    = "geckoterminal"
	GeckoTerminalBaseURL = "https://api.geckoterminal.com/api/v2"

	DefaultUserAgent = "alpha-dashboard/1.0"
	DefaultTimeout   = 15 * time.Second

	// maxBodyBytes bounds how much of an upstream body is read.
	maxBodyBytes = 16 << 20
)

// Config holds the client configuration.
type Config struct {
	// Name labels logs and metrics (e.g., "coingecko")
	Name string

	// BaseURL is the upstream API root
	BaseURL string

	// APIKey is optional; when empty the key header is not sent
	APIKey string

	// APIKeyHeader is the header carrying APIKey
	APIKeyHeader string

	// UserAgent header value
	UserAgent string

	// Timeout bounds each upstream call
	Timeout time.Duration

	// Retry; MaxAttempts 1 disables retries
	Retry RetryConfig
}

// CoinGeckoConfig returns the configuration for the CoinGecko API.
// An empty baseURL selects the public endpoint.
func CoinGeckoConfig(baseURL, apiKey string) Config {
	if baseURL == "" {
		baseURL = CoinGeckoBaseURL
	}
	return Config{
		Name:         CoinGeckoName,
		BaseURL:      baseURL,
		APIKey:       apiKey,
		APIKeyHeader: CoinGeckoKeyHeader,
		UserAgent:    DefaultUserAgent,
		Timeout:      DefaultTimeout,
		Retry:        DefaultRetryConfig(),
	}
}

// GeckoTerminalConfig returns the configuration for the GeckoTerminal API.
// An empty baseURL selects the public endpoint.
func GeckoTerminalConfig(baseURL string) Config {
	if baseURL == "" {
		baseURL = GeckoTerminalBaseURL
	}
	return Config{
		Name:      GeckoTerminalName,
		BaseURL:   baseURL,
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
		Retry:     DefaultRetryConfig(),
	}
}

// Client fetches JSON documents from one upstream API.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	config      Config
	logger      zerolog.Logger
	retry       *retrier
}

// New creates a new upstream client. tracker may be shared between clients.
func New(cfg Config, tracker *ratelimit.Tracker) (*Client, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("upstream name is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %v)", cfg.Timeout)
	}
	if cfg.APIKey != "" && cfg.APIKeyHeader == "" {
		return nil, fmt.Errorf("api key header is required when an api key is set")
	}

	logger := logging.NewLogger(logging.ComponentUpstream).With().Str("upstream", cfg.Name).Logger()

	if tracker == nil {
		tracker = ratelimit.NewTracker(logger)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: tracker,
		config:      cfg,
		logger:      logger,
		retry: &retrier{
			cfg:      cfg.Retry,
			upstream: cfg.Name,
			logger:   logger,
			classify: ClassOf,
			cooldown: func() time.Duration { return tracker.Cooldown(cfg.Name) },
		},
	}, nil
}

// Name returns the upstream name.
func (c *Client) Name() string {
	return c.config.Name
}

// BaseURL returns the upstream API root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Fetch performs a GET request and returns the body if it is valid JSON.
//
// Failures are returned as *Error: transport problems as ErrorClassNetwork,
// non-2xx statuses by status class, and non-JSON bodies as ErrorClassDecode.
func (c *Client) Fetch(ctx context.Context, rawURL string) (json.RawMessage, error) {
	startTime := time.Now()
	defer func() {
		upstreamRequestDuration.WithLabelValues(c.config.Name).Observe(time.Since(startTime).Seconds())
	}()

	if allowed, wait := c.rateLimiter.ShouldAllowRequest(c.config.Name); !allowed {
		upstreamRequestsTotal.WithLabelValues(c.config.Name, "rate_limited").Inc()
		upstreamErrorsTotal.WithLabelValues(c.config.Name, string(ErrorClassRateLimit)).Inc()
		return nil, &Error{
			Upstream:   c.config.Name,
			StatusCode: http.StatusTooManyRequests,
			ErrorClass: ErrorClassRateLimit,
			Message:    fmt.Sprintf("%s cooling down for %s", c.config.Name, wait.Round(time.Second)),
			Err:        ErrRateLimited,
		}
	}

	var body json.RawMessage
	err := c.retry.run(ctx, func() error {
		var reqErr error
		body, reqErr = c.do(ctx, rawURL)
		if reqErr != nil {
			upstreamErrorsTotal.WithLabelValues(c.config.Name, string(ClassOf(reqErr))).Inc()
		}
		return reqErr
	})
	if err != nil {
		return nil, err
	}

	return body, nil
}

// Fetcher adapts Fetch for the cache.
func (c *Client) Fetcher(rawURL string) cache.Fetcher {
	return func(ctx context.Context) (json.RawMessage, error) {
		return c.Fetch(ctx, rawURL)
	}
}

// do executes a single request attempt.
func (c *Client) do(ctx context.Context, rawURL string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if c.config.APIKey != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	c.logger.Debug().
		Str("url", rawURL).
		Msg("Executing upstream request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		upstreamRequestsTotal.WithLabelValues(c.config.Name, "network_error").Inc()
		c.logger.Warn().Err(err).Str("url", rawURL).Msg("Upstream request failed")
		return nil, &Error{
			Upstream:   c.config.Name,
			ErrorClass: ErrorClassNetwork,
			Message:    fmt.Sprintf("%s request failed", c.config.Name),
			Err:        err,
		}
	}
	defer resp.Body.Close()

	upstreamRequestsTotal.WithLabelValues(c.config.Name, strconv.Itoa(resp.StatusCode)).Inc()
	c.rateLimiter.UpdateFromResponse(c.config.Name, resp.StatusCode, resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

		upErr := statusError(c.config.Name, resp.StatusCode)
		c.logger.Warn().
			Str("url", rawURL).
			Int("status", resp.StatusCode).
			Str("error_class", string(upErr.ErrorClass)).
			Msg("Upstream returned error status")
		return nil, upErr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{
			Upstream:   c.config.Name,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	if !json.Valid(data) {
		return nil, &Error{
			Upstream:   c.config.Name,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    fmt.Sprintf("%s returned a body that is not valid JSON", c.config.Name),
		}
	}

	return json.RawMessage(data), nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
