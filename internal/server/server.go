// Package server provides the main server initialization and run logic.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mesfabric/routecraft/internal/api"
	"github.com/mesfabric/routecraft/internal/audit"
	"github.com/mesfabric/routecraft/internal/config"
	"github.com/mesfabric/routecraft/internal/db"
	"github.com/mesfabric/routecraft/internal/export"
	"github.com/mesfabric/routecraft/internal/logger"
	"github.com/mesfabric/routecraft/internal/queue"
	"github.com/mesfabric/routecraft/internal/rbac"
)

// Config holds the server configuration options.
type Config struct {
	Port    int    // Port to run the server on (0 = use config default)
	Version string // Version string to report
}

// Run starts the server with the given configuration and blocks until the
// context is canceled.
func Run(ctx context.Context, cfg Config) error {
	appCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Port != 0 {
		appCfg.Server.Port = cfg.Port
	}

	logger.Init(appCfg.Log.Format, appCfg.Log.Level)
	slog.Info("Starting RouteCraft server", "version", cfg.Version, "mode", appCfg.Server.Mode)

	database, err := db.New(appCfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("Database initialized", "driver", appCfg.Database.Driver)

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database migrations completed")

	if err := db.CreateDefaultAdmin(database, appCfg.Auth); err != nil {
		return fmt.Errorf("failed to create default admin user: %w", err)
	}

	if err := rbac.InitEnforcer(database, slog.Default()); err != nil {
		return fmt.Errorf("failed to initialize RBAC: %w", err)
	}

	auditQueue, err := createQueue(appCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize audit queue: %w", err)
	}
	defer auditQueue.Close()
	slog.Info("Audit queue initialized", "type", appCfg.Queue.Type)

	recorderCtx, stopRecorder := context.WithCancel(ctx)
	defer stopRecorder()
	recorder := audit.NewRecorder(database, auditQueue)
	recorder.Start(recorderCtx)

	emitter := audit.NewEmitter(auditQueue)

	exporter := export.New(appCfg.Export)
	defer exporter.Close()

	router := api.NewRouter(appCfg, database, emitter, exporter)

	addr := fmt.Sprintf(":%d", appCfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("Server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("Server stopped")

	// Let the recorder drain before the queue closes
	stopRecorder()
	recorder.Wait()

	slog.Info("RouteCraft exited")
	return nil
}

// RunWithSignalHandling starts the server and handles OS signals for
// graceful shutdown.
func RunWithSignalHandling(cfg Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, cfg)
	}()

	select {
	case sig := <-quit:
		slog.Info("Received signal", "signal", sig)
		cancel()
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// createQueue creates an audit queue based on configuration.
func createQueue(cfg *config.Config) (queue.Queue, error) {
	switch cfg.Queue.Type {
	case "memory":
		return queue.NewMemoryQueue(256), nil
	case "valkey":
		if cfg.Queue.ValkeyAddr == "" {
			return nil, fmt.Errorf("valkey address is required when queue type is valkey")
		}
		return queue.NewValkeyQueue(cfg.Queue.ValkeyAddr)
	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: memory, valkey)", cfg.Queue.Type)
	}
}
