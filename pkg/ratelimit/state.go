// Package ratelimit tracks upstream 429 responses and gates requests while an
// upstream asks us to back off.
// It honours the Retry-After header so that a throttled upstream is not hit
// again before it is ready, which would only extend the throttle.
package ratelimit

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultCooldown applies when a 429 carries no usable Retry-After header.
	DefaultCooldown = 60 * time.Second

	// MaxCooldown caps the cooldown taken from a Retry-After header.
	MaxCooldown = 10 * time.Minute
)

// State represents the throttle state of one upstream.
type State struct {
	// Upstream is the upstream name (e.g., "coingecko").
	Upstream string `json:"upstream"`

	// BlockedUntil is when requests may resume. Zero when never throttled.
	BlockedUntil time.Time `json:"blocked_until"`

	// LastThrottle is when the most recent 429 was seen.
	LastThrottle time.Time `json:"last_throttle"`

	// Throttles counts 429 responses seen for this upstream.
	Throttles int `json:"throttles"`
}

// IsBlocked returns true while the upstream is cooling down.
func (s *State) IsBlocked(now time.Time) bool {
	return now.Before(s.BlockedUntil)
}

// TimeUntilReset returns the remaining cooldown.
// Returns 0 if the cooldown has already passed.
func (s *State) TimeUntilReset(now time.Time) time.Duration {
	d := s.BlockedUntil.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// ParseRetryAfter reads a Retry-After header given as delta seconds or as an
// HTTP date. The result is clamped to [0, MaxCooldown].
func ParseRetryAfter(headers http.Header, now time.Time) (time.Duration, bool) {
	value := strings.TrimSpace(headers.Get("Retry-After"))
	if value == "" {
		return 0, false
	}

	var d time.Duration
	// ParseInt saturates on ErrRange, so huge values clamp like any other.
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil || errors.Is(err, strconv.ErrRange) {
		switch {
		case secs <= 0:
			d = 0
		case secs > int64(MaxCooldown/time.Second):
			d = MaxCooldown
		default:
			d = time.Duration(secs) * time.Second
		}
	} else if at, err := http.ParseTime(value); err == nil {
		d = at.Sub(now)
	} else {
		return 0, false
	}

	if d < 0 {
		d = 0
	}
	if d > MaxCooldown {
		d = MaxCooldown
	}
	return d, true
}
