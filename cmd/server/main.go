// Package main is the entry point for the relay routing server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/orcaai/relay/internal/api"
	"github.com/orcaai/relay/internal/config"
	"github.com/orcaai/relay/internal/provider/openai"
	"github.com/orcaai/relay/internal/ratelimit"
	"github.com/orcaai/relay/internal/registry"
	"github.com/orcaai/relay/internal/router"
	"github.com/orcaai/relay/internal/stats"
	"github.com/orcaai/relay/internal/store"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	cfgManager, err := config.NewManager(*configPath, slog.Default())
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg := cfgManager.Get()

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)
	logger.Info("starting relay", "version", "0.1.0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := cfgManager.Watch(ctx); err != nil {
		logger.Warn("config hot-reload disabled", "error", err)
	}

	counters := newCounterStore(cfg.Redis, logger)
	defer counters.Close()

	reg, err := registry.New(profilesFromConfig(cfg))
	if err != nil {
		logger.Error("failed to build provider registry", "error", err)
		os.Exit(1)
	}
	for _, name := range reg.Names() {
		logger.Info("provider registered", "name", name)
	}

	tracker := stats.NewTracker(counters, logger)
	recorder := stats.NewRecorder(tracker, logger,
		stats.WithQueueSize(cfg.Routing.RecorderQueueSize),
	)
	defer recorder.Close()

	limiter := ratelimit.New(counters, reg, logger)

	var routerOpts []router.Option
	if cfg.Routing.DecisionCacheTTL > 0 {
		routerOpts = append(routerOpts, router.WithDecisionCache(cfg.Routing.DecisionCacheTTL))
	}
	if cfg.Routing.DispatchTimeout > 0 {
		routerOpts = append(routerOpts, router.WithDispatchTimeout(cfg.Routing.DispatchTimeout))
	}

	rt := router.New(reg, tracker, limiter, recorder, logger, routerOpts...)

	for _, pc := range cfg.Providers {
		rt.RegisterAdapter(openai.New(openai.Config{
			Name:    pc.Name,
			APIKey:  pc.APIKey,
			BaseURL: pc.BaseURL,
			Model:   pc.Model,
		}))
	}

	handler := api.NewHandler(reg, rt, tracker, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health)
	mux.HandleFunc("POST /v1/route", handler.Route)
	mux.HandleFunc("POST /v1/query", handler.Query)
	mux.HandleFunc("GET /v1/providers", handler.Providers)
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.Handler())
	}

	var httpHandler http.Handler = mux
	if cfg.GatewayLimit.Enabled {
		clientLimiter := api.NewClientLimiter(cfg.GatewayLimit.RequestsPerMinute, cfg.GatewayLimit.Burst, logger)
		httpHandler = clientLimiter.Middleware(httpHandler)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	cfgManager.Close()
	logger.Info("server stopped")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// newCounterStore selects the shared Redis store when configured, falling
// back to the local in-memory store for single-instance runs.
func newCounterStore(cfg config.RedisConfig, logger *slog.Logger) store.Counters {
	if cfg.Addr == "" {
		logger.Warn("no redis configured, using in-memory counter store")
		return store.NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	var opts []store.RedisOption
	if cfg.OpTimeout > 0 {
		opts = append(opts, store.WithOpTimeout(cfg.OpTimeout))
	}
	return store.NewRedisStore(client, opts...)
}

func profilesFromConfig(cfg *config.Config) []registry.Profile {
	profiles := make([]registry.Profile, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		profiles = append(profiles, registry.Profile{
			Name:            p.Name,
			CostPer1KInput:  p.CostPer1KInput,
			CostPer1KOutput: p.CostPer1KOutput,
			MaxTokens:       p.MaxTokens,
			RateLimit:       p.RateLimit,
			QualityByTask:   p.QualityByTask,
		})
	}
	return profiles
}
