package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fundcompare/backend/internal/api"
	"github.com/wonny/fundcompare/backend/internal/api/handlers"
	"github.com/wonny/fundcompare/backend/internal/scheduler"
	"github.com/wonny/fundcompare/backend/internal/scheduler/jobs"
	"github.com/wonny/fundcompare/backend/internal/session"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the HTTP API server.

The catalog is loaded once at startup. If it cannot be loaded the server
still starts and the catalog endpoints answer 503. The return series is
fetched on the first history request.

Endpoints:
  GET    /health
  GET    /metrics
  GET    /api/funds
  GET    /api/funds/{fundId}/classes
  GET    /api/periods
  POST   /api/sessions
  GET    /api/sessions/{id}
  DELETE /api/sessions/{id}
  POST   /api/sessions/{id}/selections
  DELETE /api/sessions/{id}/selections
  DELETE /api/sessions/{id}/selections/{selectionId}
  POST   /api/sessions/{id}/history?period=1Y
  GET    /api/sessions/{id}/table.html
  GET    /api/sessions/{id}/ws

Example:
  go run ./cmd/fundcmp serve
  go run ./cmd/fundcmp serve --port 9000`,
	RunE: runServe,
}

var (
	servePort string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (default $PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), "=== Fund Compare API Server ===")

	// 1. Config, logger, clients
	rt, err := newRuntime(os.Stdout)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, log := rt.cfg, rt.log
	if servePort != "" {
		cfg.Port = servePort
	}

	// 2. Metrics
	var metrics *api.Metrics
	var store *session.Store
	if cfg.MetricsEnabled {
		metrics = api.NewMetrics(func() int {
			if store == nil {
				return 0
			}
			return store.Len()
		})
		rt.observe = metrics.ObserveFetch
	}

	// 3. Feeds
	if rt.db != nil {
		if err := rt.db.EnsureSchema(cmd.Context()); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	loader, err := rt.seriesLoader()
	if err != nil {
		return fmt.Errorf("series feed: %w", err)
	}

	cat, catalogErr := rt.loadCatalog(cmd.Context())
	if catalogErr != nil {
		log.WithError(catalogErr).Error("Catalog unavailable, dropdown endpoints disabled")
	} else {
		store = session.NewStore(cat, loader, log)
	}

	// 4. Scheduler
	sched := scheduler.New(log)
	if store != nil {
		reaper := jobs.NewSessionReaperJob(store, cfg.Session.IdleTTL, cfg.Session.ReapSchedule, log)
		if err := sched.AddJob(reaper); err != nil {
			return fmt.Errorf("schedule session reaper: %w", err)
		}
	}
	if rt.db != nil {
		if err := sched.AddJob(jobs.NewFeedStoreHealthJob(rt.db, log)); err != nil {
			return fmt.Errorf("schedule health check: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// 5. Router and server
	sessions := handlers.NewSessionHandler(store, catalogErr, log)
	if metrics != nil {
		sessions.WithRecorder(metrics)
	}

	router := api.NewRouter(api.RouterDeps{
		Funds:    handlers.NewFundHandler(cat, catalogErr, log),
		Sessions: sessions,
		Jobs:     handlers.NewJobHandler(sched, log),
		Metrics:  metrics,
		Limiter:  api.NewLimiter(cfg.APIRateLimit),
	}, log)

	server := api.New(cfg, log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Fprintln(cmd.OutOrStdout(), "\nPress Ctrl+C to stop")

	// Wait for interrupt signal or a failed listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
