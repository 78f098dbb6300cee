/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the claims-ratio report server: configuration,
  logger, record source selection, dependency wiring, graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (env / .env)
  2. Build zap logger and Prometheus registry
  3. Open the record source (sqlite, postgres, or memory)
  4. Wire handler, cache, and router
  5. Start server with graceful shutdown

CONFIGURATION (environment):
  PORT            HTTP port (default 8080)
  LOG_LEVEL       info|debug
  DB_DRIVER       sqlite|postgres|memory
  DB_PATH         SQLite path (":memory:" for in-memory)
  DATABASE_URL    PostgreSQL DSN (when DB_DRIVER=postgres)
  REPORT_TIMEOUT  Per-report deadline (default 30s)
  CACHE_TTL       Report cache TTL (default 5m)

FLAGS:
  -seed   Load the demo dataset into the sqlite store and exit
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/plansaude/sinistro-engine/api"
	"github.com/plansaude/sinistro-engine/cache"
	"github.com/plansaude/sinistro-engine/config"
	"github.com/plansaude/sinistro-engine/engine"
	memstore "github.com/plansaude/sinistro-engine/engine/store"
	"github.com/plansaude/sinistro-engine/observability"
	"github.com/plansaude/sinistro-engine/store/postgres"
	"github.com/plansaude/sinistro-engine/store/sqlite"
)

func main() {
	seed := flag.Bool("seed", false, "load the demo dataset into the sqlite store and exit")
	flag.Parse()

	cfg := config.Load()
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx := context.Background()

	var (
		source engine.RecordSource
		closer func()
	)
	switch cfg.DBDriver {
	case "postgres":
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to open postgres source", zap.Error(err))
		}
		source, closer = pg, pg.Close
	case "memory":
		source, closer = memstore.NewMemory(), func() {}
	default:
		sq, err := sqlite.New(cfg.DBPath)
		if err != nil {
			logger.Fatal("failed to open sqlite source", zap.Error(err))
		}
		source, closer = sq, func() { sq.Close() }

		if *seed {
			if err := sq.Seed(ctx); err != nil {
				logger.Fatal("seed failed", zap.Error(err))
			}
			logger.Info("demo dataset loaded", zap.String("db", cfg.DBPath))
			sq.Close()
			return
		}
	}
	defer closer()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(registry)

	pipeline := engine.NewPipeline(logger)
	pipeline.Workers = cfg.Workers

	handler := api.NewHandler(
		source,
		pipeline,
		cache.New[*api.ReportDTO](cfg.CacheTTL),
		metrics,
		logger,
		cfg.ReportTimeout,
	)
	router := api.NewRouter(handler, logger, registry)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("driver", cfg.DBDriver),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
