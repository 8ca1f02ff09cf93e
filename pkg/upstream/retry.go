package upstream

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	upstreamRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_upstream_retries_total",
		Help: "Retried upstream requests by upstream and error class",
	}, []string{"upstream", "error_class"})

	upstreamRetryWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_upstream_retry_wait_seconds",
		Help:    "Time waited before a retry by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	upstreamRetryGiveUpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_upstream_retry_give_ups_total",
		Help: "Requests that failed after retrying by upstream and error class",
	}, []string{"upstream", "error_class"})
)

// RetryConfig controls retries of failed upstream requests.
type RetryConfig struct {
	// MaxAttempts counts the first request; 1 disables retries
	MaxAttempts int

	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig makes a single attempt so failures surface at once.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       1,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// initialBackoffFor scales the first wait by error class.
func initialBackoffFor(cfg RetryConfig, class ErrorClass) time.Duration {
	switch class {
	case ErrorClassRateLimit:
		return cfg.InitialBackoff * 5
	case ErrorClassNetwork:
		return cfg.InitialBackoff * 2
	default:
		return cfg.InitialBackoff
	}
}

// retrier repeats a request on retryable failures with jittered exponential
// backoff. After a 429 it waits at least the tracked cooldown, and gives up
// when that cooldown is longer than MaxBackoff.
type retrier struct {
	cfg      RetryConfig
	upstream string
	logger   zerolog.Logger
	classify func(error) ErrorClass

	// cooldown reports the remaining rate limit cooldown; nil means none
	cooldown func() time.Duration

	// jitter spreads a backoff; defaults to ±20%
	jitter func(time.Duration) time.Duration
}

func defaultJitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
}

// wait returns how long to sleep before retrying after an error of class,
// and false when the retry should be abandoned.
func (r *retrier) wait(class ErrorClass, backoff time.Duration) (time.Duration, bool) {
	jitter := r.jitter
	if jitter == nil {
		jitter = defaultJitter
	}
	d := jitter(backoff)

	if class != ErrorClassRateLimit || r.cooldown == nil {
		return d, true
	}
	cd := r.cooldown()
	if r.cfg.MaxBackoff > 0 && cd > r.cfg.MaxBackoff {
		return 0, false
	}
	return max(d, cd), true
}

// run calls fn until it succeeds, fails with a non-retryable error, or the
// attempts run out. With a single attempt fn's error is returned unchanged.
func (r *retrier) run(ctx context.Context, fn func() error) error {
	attempts := max(r.cfg.MaxAttempts, 1)

	var (
		lastErr error
		class   ErrorClass
		backoff time.Duration
	)
	for attempt := 1; ; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				r.logger.Info().
					Str("error_class", string(class)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		class = r.classify(lastErr)
		if attempts == 1 || !shouldRetry(class) {
			return lastErr
		}
		if attempt >= attempts {
			break
		}

		if backoff == 0 {
			backoff = initialBackoffFor(r.cfg, class)
		}
		d, ok := r.wait(class, backoff)
		if !ok {
			r.logger.Warn().
				Str("error_class", string(class)).
				Int("attempt", attempt).
				Msg("Cooldown exceeds max backoff, not retrying")
			return lastErr
		}

		upstreamRetriesTotal.WithLabelValues(r.upstream, string(class)).Inc()
		upstreamRetryWaitSeconds.WithLabelValues(string(class)).Observe(d.Seconds())
		r.logger.Debug().
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", d).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Warn().
				Str("error_class", string(class)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * r.cfg.BackoffMultiplier)
		if r.cfg.MaxBackoff > 0 && backoff > r.cfg.MaxBackoff {
			backoff = r.cfg.MaxBackoff
		}
	}

	upstreamRetryGiveUpsTotal.WithLabelValues(r.upstream, string(class)).Inc()
	r.logger.Warn().
		Str("error_class", string(class)).
		Int("max_attempts", attempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, lastErr)
}
