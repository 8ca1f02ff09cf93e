// Command dashboard-api serves the market dashboard backend: cached proxies of
// the CoinGecko and GeckoTerminal APIs plus the aggregated dashboard views.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/alpha-dashboard/pkg/api"
	"github.com/Sternrassler/alpha-dashboard/pkg/cache"
	"github.com/Sternrassler/alpha-dashboard/pkg/config"
	"github.com/Sternrassler/alpha-dashboard/pkg/logging"
	"github.com/Sternrassler/alpha-dashboard/pkg/ratelimit"
	"github.com/Sternrassler/alpha-dashboard/pkg/upstream"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const serviceName = "dashboard-api"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("Dashboard API failed")
	}
}

func run(ctx context.Context, args []string, logOutput io.Writer) error {
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("DASHBOARD_CONFIG"), "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	logging.Setup(logging.Config{
		Level:   level,
		Pretty:  cfg.Log.Pretty,
		Output:  logOutput,
		Service: serviceName,
	})

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           app.handler,
		ReadHeaderTimeout: cfg.Server.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", app.store.Kind()).
			Bool("coingecko_key", cfg.Upstream.CoinGeckoAPIKey != "").
			Msg("Starting dashboard API")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", cfg.Server.ShutdownTimeout).Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// app holds the wired components of one server instance.
type app struct {
	handler http.Handler
	store   cache.Store
	redis   *redis.Client
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	var ready api.ReadyFunc
	switch cfg.Cache.Store {
	case config.StoreRedis:
		opts, err := cfg.Cache.RedisOptions()
		if err != nil {
			return nil, err
		}
		a.redis = redis.NewClient(opts)

		store := cache.NewRedisStore(a.redis, cfg.Cache.Retention)
		if err := store.Ping(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
		}
		log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("Connected to Redis")

		a.store = store
		ready = store.Ping
	default:
		a.store = cache.NewMemoryStore()
	}

	tracker := ratelimit.NewTracker(logging.NewLogger(logging.ComponentRateLimit))

	coingecko, err := upstream.New(upstreamConfig(upstream.CoinGeckoConfig(cfg.Upstream.CoinGeckoBaseURL, cfg.Upstream.CoinGeckoAPIKey), cfg), tracker)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("coingecko client: %w", err)
	}
	geckoterminal, err := upstream.New(upstreamConfig(upstream.GeckoTerminalConfig(cfg.Upstream.GeckoTerminalBaseURL), cfg), tracker)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("geckoterminal client: %w", err)
	}

	c := cache.New(a.store, cache.WithLogger(logging.NewLogger(logging.ComponentCache)))

	service, err := api.NewService(c, coingecko, geckoterminal)
	if err != nil {
		a.Close()
		return nil, err
	}

	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	a.handler = api.NewRouter(api.Options{
		Service:         service,
		Ready:           ready,
		CORSOrigins:     cfg.Server.CORSOrigins,
		RequestTimeout:  cfg.Server.RequestTimeout,
		ViewConcurrency: cfg.Views.Concurrency,
	})
	return a, nil
}

// upstreamConfig applies the shared upstream settings to an API's defaults.
func upstreamConfig(base upstream.Config, cfg *config.Config) upstream.Config {
	if cfg.Upstream.UserAgent != "" {
		base.UserAgent = cfg.Upstream.UserAgent
	}
	if cfg.Upstream.Timeout > 0 {
		base.Timeout = cfg.Upstream.Timeout
	}
	base.Retry.MaxAttempts = cfg.Upstream.MaxRetries + 1
	return base
}
