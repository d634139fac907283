package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"neuronbudget/internal/amqp"
	"neuronbudget/internal/backend"
	"neuronbudget/internal/config"
	apphttp "neuronbudget/internal/http"
	applog "neuronbudget/internal/log"
	"neuronbudget/internal/remote"
	"neuronbudget/internal/repository"
	"neuronbudget/internal/storage"
	"neuronbudget/internal/store"
	"neuronbudget/internal/store/memory"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Local backend: sqlite (default) or memory
	var local store.Adapter
	switch cfg.LocalBackend {
	case "sqlite":
		sqliteStore, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		local = sqliteStore
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		local = memory.New()
		logger.Info("Initialized memory backend")
	}

	// Remote backend: optional; without it signed-in requests are refused
	var remoteClient *remote.Client
	if cfg.RemoteEnabled() {
		var err error
		remoteClient, err = remote.New(context.Background(), cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile, cfg.RemoteCallTimeout)
		if err != nil {
			logger.Error("Failed to initialize Firestore client", "error", err, "project_id", cfg.FirestoreProjectID)
			os.Exit(1)
		}
		defer remoteClient.Close()
		logger.Info("Initialized Firestore backend", "project_id", cfg.FirestoreProjectID)
	} else {
		logger.Info("Firestore disabled - no FIRESTORE_PROJECT_ID provided")
	}

	// AMQP notifier: optional
	var notifier repository.Notifier
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		notifier = amqpClient
		logger.Info("Initialized AMQP notifier", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - change events will not be published")
	}

	repo := repository.New(backend.NewSelector(local, remoteClient), notifier, cfg.OperationTimeout)
	srv := apphttp.NewServer(":"+cfg.Port, repo)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting neuronbudget server", "port", cfg.Port, "local_backend", cfg.LocalBackend, "remote_enabled", cfg.RemoteEnabled())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
