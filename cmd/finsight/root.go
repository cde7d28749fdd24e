package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/hyperengineering/finsight/internal/api"
	"github.com/hyperengineering/finsight/internal/assistant"
	"github.com/hyperengineering/finsight/internal/config"
	"github.com/hyperengineering/finsight/internal/insight"
	"github.com/hyperengineering/finsight/internal/override"
	"github.com/hyperengineering/finsight/internal/snapshot"
	"github.com/hyperengineering/finsight/internal/store"
	"github.com/hyperengineering/finsight/internal/worker"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:          "finsight",
	Short:        "Finsight - financial insight service",
	Long:         "Serves alerts, tips and challenge suggestions derived from a user's transactions, budgets, goals and investments.",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(overridesCmd)
	rootCmd.AddCommand(snapshotCmd)
}

// services holds the insight stack built over one store.
type services struct {
	store      *store.SQLiteStore
	overrides  *override.Store
	aggregator *insight.Aggregator
	unified    *insight.Unified
}

func newServices(db *store.SQLiteStore, cfg *config.Config, now func() time.Time) *services {
	overrides := override.NewStore(db, now)
	agg := insight.NewAggregator(db, db, overrides, insight.Options{
		CacheTTL: time.Duration(cfg.Insights.CacheTTL),
		Now:      now,
	})
	return &services{
		store:      db,
		overrides:  overrides,
		aggregator: agg,
		unified:    insight.NewUnified(agg, insight.NewChallenges(agg, db, overrides)),
	}
}

func newAssistant(cfg config.AssistantConfig) assistant.Assistant {
	if !cfg.Enabled() {
		return assistant.Noop{}
	}
	return assistant.NewOpenAI(cfg.APIKey, cfg.Model, cfg.MaxTokens)
}

func run(cmd *cobra.Command, args []string) error {
	// 1. Signal handling
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// 2. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("configuration loaded")

	// 3. Initialize logger
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))
	slog.Info("logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	// 4. Initialize store (migrations, WAL mode)
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", cfg.Database.Path)

	// 5. Initialize insight services and assistant
	svc := newServices(db, cfg, time.Now)
	asst := newAssistant(cfg.Assistant)
	slog.Info("assistant initialized", "enabled", asst.Enabled(), "model", asst.ModelName())

	uploader, err := snapshot.NewUploader(cfg.Snapshot)
	if err != nil {
		db.Close()
		return err
	}

	// 6. Initialize HTTP router
	handler := api.NewHandler(svc.unified, svc.aggregator, asst, cfg.Auth.APIKey, Version)
	router := api.NewRouter(handler)
	slog.Info("router initialized")

	// 7. Configure HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	// 8. Workers
	var wg sync.WaitGroup
	if retention := time.Duration(cfg.Overrides.Retention); retention > 0 {
		coordinator := worker.NewRetentionCoordinator(svc.overrides,
			time.Duration(cfg.Overrides.PruneInterval), retention, time.Now)
		startWorker(ctx, &wg, "retention-coordinator", coordinator.Run)
	} else {
		slog.Info("override retention disabled")
	}
	if interval := time.Duration(cfg.Snapshot.Interval); interval > 0 {
		coordinator := worker.NewSnapshotCoordinator(db, uploader, cfg.Snapshot.Dir, interval, time.Now)
		startWorker(ctx, &wg, "snapshot-coordinator", coordinator.Run)
	} else {
		slog.Info("periodic snapshots disabled")
	}

	// 9. Start HTTP server in goroutine
	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is called gracefully.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	// 10. Block until signal received
	<-ctx.Done()
	slog.Info("shutdown initiated")

	// 11. Graceful shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	// 11a. Stop HTTP server (drains in-flight requests)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// 11b. Wait for workers to complete
	wg.Wait()

	// 11c. Close store
	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// newLogger builds the process logger. Format "text" selects the text
// handler; anything else logs JSON.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker launches a background worker goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}
