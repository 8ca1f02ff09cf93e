package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	upstreamCooldownSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dashboard_upstream_cooldown_seconds",
		Help: "Remaining cooldown after the last 429 from an upstream",
	}, []string{"upstream"})

	rateLimitBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_rate_limit_blocks_total",
		Help: "Total number of requests blocked while an upstream was cooling down",
	}, []string{"upstream"})

	rateLimitThrottlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_rate_limit_throttles_total",
		Help: "Total number of 429 responses received from upstreams",
	}, []string{"upstream"})
)

// Tracker monitors upstream throttling and gates requests.
// State is per process; each replica learns about throttling on its own.
type Tracker struct {
	mu     sync.Mutex
	states map[string]*State
	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a new rate limit tracker.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{
		states: make(map[string]*State),
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces time.Now (for tests).
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// State returns a snapshot of the upstream's state.
func (t *Tracker) State(upstream string) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.states[upstream]; ok {
		return *s
	}
	return State{Upstream: upstream}
}

// Cooldown returns the time left before upstream may be called again. Unlike
// ShouldAllowRequest it does not count as a blocked request.
func (t *Tracker) Cooldown(upstream string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.states[upstream]
	if !ok {
		return 0
	}
	return s.TimeUntilReset(t.now())
}

// ShouldAllowRequest reports whether a request to upstream may be sent now.
// When it may not, the remaining cooldown is returned.
func (t *Tracker) ShouldAllowRequest(upstream string) (bool, time.Duration) {
	t.mu.Lock()
	s, ok := t.states[upstream]
	now := t.now()
	var blocked bool
	var wait time.Duration
	if ok {
		blocked = s.IsBlocked(now)
		wait = s.TimeUntilReset(now)
	}
	t.mu.Unlock()

	if !blocked {
		return true, 0
	}

	t.logger.Warn().
		Str("upstream", upstream).
		Dur("wait_duration", wait).
		Msg("Upstream cooling down - blocking request")

	rateLimitBlocksTotal.WithLabelValues(upstream).Inc()
	upstreamCooldownSeconds.WithLabelValues(upstream).Set(wait.Seconds())
	return false, wait
}

// UpdateFromResponse records the outcome of an upstream response.
// A 429 starts (or extends) a cooldown; anything else leaves state unchanged.
func (t *Tracker) UpdateFromResponse(upstream string, statusCode int, headers http.Header) {
	if statusCode != http.StatusTooManyRequests {
		return
	}

	t.mu.Lock()
	now := t.now()
	cooldown, ok := ParseRetryAfter(headers, now)
	if !ok {
		cooldown = DefaultCooldown
	}

	s, exists := t.states[upstream]
	if !exists {
		s = &State{Upstream: upstream}
		t.states[upstream] = s
	}
	s.Throttles++
	s.LastThrottle = now
	if until := now.Add(cooldown); until.After(s.BlockedUntil) {
		s.BlockedUntil = until
	}
	snapshot := *s
	t.mu.Unlock()

	rateLimitThrottlesTotal.WithLabelValues(upstream).Inc()
	upstreamCooldownSeconds.WithLabelValues(upstream).Set(snapshot.TimeUntilReset(now).Seconds())

	t.logger.Warn().
		Str("upstream", upstream).
		Dur("cooldown", cooldown).
		Time("blocked_until", snapshot.BlockedUntil).
		Int("throttles", snapshot.Throttles).
		Msg("Upstream returned 429 - cooling down")
}
