// Package logging configures the process-wide zerolog logger of the
// dashboard API.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a configured level name.
type LogLevel string

// Level names.
const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Components name the sources of log events.
const (
	ComponentAPI       = "api"
	ComponentCache     = "fetch-cache"
	ComponentUpstream  = "upstream"
	ComponentRateLimit = "ratelimit"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level written; empty means info
	Level LogLevel

	// Pretty switches from JSON lines to the console writer
	Pretty bool

	// Output defaults to os.Stderr
	Output io.Writer

	// Service, when set, is attached to every event as "service"
	Service string
}

// DefaultConfig returns JSON output at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// ParseLevel validates a level name. "warning" is accepted for warn and the
// empty string selects info.
func ParseLevel(name string) (LogLevel, error) {
	switch l := LogLevel(strings.ToLower(strings.TrimSpace(name))); l {
	case "":
		return LevelInfo, nil
	case "warning":
		return LevelWarn, nil
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return l, nil
	default:
		return "", fmt.Errorf("unknown log level %q (want debug, info, warn or error)", name)
	}
}

// zerologLevel maps a level name to zerolog. Unknown names fall back to info.
func zerologLevel(level LogLevel) zerolog.Level {
	l, err := ParseLevel(string(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	parsed, err := zerolog.ParseLevel(string(l))
	if err != nil {
		return zerolog.InfoLevel
	}
	return parsed
}

// Setup installs the global logger described by cfg and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(zerologLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lc := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		lc = lc.Str("service", cfg.Service)
	}

	log.Logger = lc.Logger()
	return log.Logger
}

// NewLogger derives a logger from the global one tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log levels in use:
//
//	debug  cache hit/miss/store with key and age, batch summaries, served requests
//	info   startup and shutdown, 4xx responses, NFT fallback activations
//	warn   upstream failures, retries, 429 cooldowns, store errors, 5xx responses
//	error  nothing is logged at error; fatal startup errors exit through main
//
// Common fields: component, upstream, key, status, route, duration,
// error_class, source.
