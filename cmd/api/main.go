// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/chirpfeed/internal/api"
	"github.com/onnwee/chirpfeed/internal/auth"
	"github.com/onnwee/chirpfeed/internal/chirp"
	"github.com/onnwee/chirpfeed/internal/config"
	"github.com/onnwee/chirpfeed/internal/db"
	"github.com/onnwee/chirpfeed/internal/feed"
	"github.com/onnwee/chirpfeed/internal/health"
	"github.com/onnwee/chirpfeed/internal/middleware"
	"github.com/onnwee/chirpfeed/internal/ranking"
	"github.com/onnwee/chirpfeed/internal/tracing"
	"github.com/onnwee/chirpfeed/internal/user"
	"github.com/onnwee/chirpfeed/migrations"
)

const (
	serviceName     = "chirpfeed-api"
	shutdownTimeout = 10 * time.Second
	cleanupInterval = time.Minute
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to YAML config file (env vars take precedence)")
	flag.Parse()

	if *help {
		fmt.Println("Chirpfeed API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", summaryAttrs(cfg.LogSummary())...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// run serves until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// app holds the wired handler and the resources to release on exit.
type app struct {
	handler http.Handler
	closers []func() error
	logger  *slog.Logger
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to release resource", "error", err)
		}
	}
}

// newApp wires storage, rate limiting, metrics and tracing into the router.
// Empty DATABASE_URL or REDIS_URL select the in-memory implementations.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	tp, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.TracingSampleRate,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return tp.Shutdown(shutdownCtx)
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	feedMetrics := feed.NewMetrics()
	if err := feedMetrics.Register(reg); err != nil {
		return nil, fmt.Errorf("failed to register feed metrics: %w", err)
	}
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(reg); err != nil {
		return nil, fmt.Errorf("failed to register middleware metrics: %w", err)
	}

	weights, err := ranking.LoadCalibration(cfg.RankingCalibrationPath)
	if err != nil {
		logger.Warn("ranking calibration not applied", "error", err)
	}
	engine := feed.NewEngine(feed.EngineConfig{
		Weights:     weights,
		Diagnostics: feed.NewLogDiagnostics(logger, feedMetrics),
		Metrics:     feedMetrics,
	})

	var (
		chirps       chirp.Repository
		users        user.Repository
		dbChecker    health.Checker
		redisChecker health.Checker
		limitStore   middleware.RateLimitStore
	)

	if cfg.DatabaseURL != "" {
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, conn.Close)
		if cfg.AutoMigrate {
			n, err := db.Migrate(ctx, conn, migrations.FS)
			if err != nil {
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
			logger.Info("database migrations complete", "applied", n)
		}
		chirps = chirp.NewPostgresRepository(conn)
		users = user.NewPostgresRepository(conn)
		dbChecker = health.NewDBChecker(conn)
		logger.Info("using postgres stores")
	} else {
		chirps = chirp.NewInMemoryRepository()
		users = user.NewInMemoryRepository()
		logger.Warn("DATABASE_URL not set, using in-memory stores")
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		a.closers = append(a.closers, client.Close)
		limitStore = middleware.NewRedisRateLimitStore(client,
			middleware.WithRedisMetrics(httpMetrics),
			middleware.WithRedisLogger(logger),
		)
		redisChecker = health.NewRedisChecker(client)
		logger.Info("using redis rate limiter")
	} else {
		mem := middleware.NewInMemoryRateLimitStore()
		go mem.RunCleanup(ctx, cleanupInterval)
		limitStore = mem
		logger.Warn("REDIS_URL not set, using in-memory rate limiter")
	}

	a.handler = api.NewRouter(api.RouterConfig{
		Feed: api.NewFeedHandlers(api.FeedHandlersConfig{
			Chirps:            chirps,
			Users:             users,
			Engine:            engine,
			DefaultLimit:      cfg.FeedDefaultLimit,
			CandidatePoolSize: cfg.FeedCandidatePoolSize,
		}),
		Health: api.NewHealthHandlers(api.HealthHandlersConfig{
			DBChecker:    dbChecker,
			RedisChecker: redisChecker,
		}),
		Auth:           auth.NewJWTService(cfg.JWTSecret, auth.WithPreviousSecret(cfg.JWTPreviousSecret)),
		RateLimitStore: limitStore,
		RateLimit:      middleware.FeedLimit(cfg.RateLimitFeedPerMinute),
		Logger:         logger,
		Metrics:        httpMetrics,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ServiceName:    tracingServiceName(tp),
	})

	ok = true
	return a, nil
}

// tracingServiceName enables the tracing middleware only when spans are exported.
func tracingServiceName(tp *tracing.Provider) string {
	if tp.IsEnabled() {
		return serviceName
	}
	return ""
}

// summaryAttrs flattens a config summary into sorted slog key/value pairs.
func summaryAttrs(summary map[string]string) []any {
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		attrs = append(attrs, k, summary[k])
	}
	return attrs
}
