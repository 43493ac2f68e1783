package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/PratikDhanave/game-event-tracking/internal/config"
	"github.com/PratikDhanave/game-event-tracking/internal/dedup"
	"github.com/PratikDhanave/game-event-tracking/internal/httpserver"
	"github.com/PratikDhanave/game-event-tracking/internal/ingest"
	"github.com/PratikDhanave/game-event-tracking/internal/logging"
	"github.com/PratikDhanave/game-event-tracking/internal/metrics"
	"github.com/PratikDhanave/game-event-tracking/internal/sink"
	"github.com/PratikDhanave/game-event-tracking/internal/store"
)

// main boots the service: config → logger → dedup guard → sink → HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Can't use logger yet, fall back to panic
		panic("failed to load config: " + err.Error())
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics("game_events")
	checks := map[string]httpserver.Pinger{}

	guard, closeGuard, err := buildGuard(ctx, cfg.Dedup, logger, checks)
	if err != nil {
		logger.Fatal("failed to build dedup guard", zap.String("backend", cfg.Dedup.Backend), zap.Error(err))
	}
	defer closeGuard()

	s, closeSink, err := buildSink(ctx, cfg.Sink, logger)
	if err != nil {
		logger.Fatal("failed to build sink", zap.String("sink", cfg.Sink.Kind), zap.Error(err))
	}
	defer closeSink()

	pipeline := ingest.New(guard, s, logger, ingest.WithMetrics(m))

	router := httpserver.NewRouter(httpserver.Dependencies{
		Config:   cfg,
		Pipeline: pipeline,
		Logger:   logger,
		Metrics:  m,
		Checks:   checks,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	logger.Info("starting game event ingestion",
		zap.String("addr", cfg.Addr),
		zap.String("sink", cfg.Sink.Kind),
		zap.String("stream", cfg.Sink.FirehoseStream),
		zap.String("region", cfg.Sink.AWSRegion),
		zap.String("dedup_backend", cfg.Dedup.Backend),
		zap.Bool("auth_enabled", cfg.AuthEnabled()),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Stop background goroutines before the deferred closers run.
	cancel()

	logger.Info("server stopped")
}

// buildGuard picks the dedup backend. External backends are added to checks
// so /ready reports them.
func buildGuard(ctx context.Context, cfg config.DedupConfig, logger *zap.Logger, checks map[string]httpserver.Pinger) (dedup.Guard, func(), error) {
	switch cfg.Backend {
	case config.DedupMemory:
		logger.Warn("memory dedup guard is unbounded; use it for local runs only")
		return dedup.NewMemory(), func() {}, nil

	case config.DedupLRU:
		return dedup.NewLRU(cfg.Capacity, cfg.TTL), func() {}, nil

	case config.DedupRedis:
		client, err := store.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		g := store.NewRedisGuard(client, cfg.TTL)
		checks["redis"] = g
		return g, func() { _ = g.Close() }, nil

	case config.DedupPostgres:
		db, err := store.NewPostgresStore(ctx, cfg.DBURL)
		if err != nil {
			return nil, nil, err
		}
		// Ensure required tables/indexes exist so a fresh database is enough.
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		checks["postgres"] = db
		if cfg.TTL > 0 {
			go pruneSeen(ctx, db, cfg.TTL, logger)
		}
		return db, db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown dedup backend %q", cfg.Backend)
}

// pruneSeen drops recorded ids older than ttl until ctx is done.
func pruneSeen(ctx context.Context, db *store.PostgresStore, ttl time.Duration, logger *zap.Logger) {
	interval := ttl / 24
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := db.Prune(ctx, time.Now().Add(-ttl))
			if err != nil {
				logger.Warn("prune seen events failed", zap.Error(err))
				continue
			}
			logger.Debug("pruned seen events", zap.Int64("removed", n))
		case <-ctx.Done():
			return
		}
	}
}

func buildSink(ctx context.Context, cfg config.SinkConfig, logger *zap.Logger) (sink.Sink, func(), error) {
	switch cfg.Kind {
	case config.SinkFirehose:
		f, err := sink.NewFirehoseFromEnv(ctx, cfg.FirehoseStream, cfg.AWSRegion)
		if err != nil {
			return nil, nil, err
		}
		return f, func() {}, nil

	case config.SinkKafka:
		k, err := sink.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		return k, func() {
			if err := k.Close(); err != nil {
				logger.Warn("kafka writer close failed", zap.Error(err))
			}
		}, nil

	case config.SinkLog:
		return sink.NewLog(logger), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown sink %q", cfg.Kind)
}
