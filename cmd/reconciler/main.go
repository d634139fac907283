package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"neuronbudget/internal/amqp"
	"neuronbudget/internal/config"
	applog "neuronbudget/internal/log"
	"neuronbudget/internal/remote"
	"neuronbudget/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	logger.Info("Starting reconciler")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if !cfg.RemoteEnabled() {
		logger.Error("Reconciler requires a Firestore backend - set FIRESTORE_PROJECT_ID")
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("Reconciler requires AMQP - set AMQP_URL")
		os.Exit(1)
	}

	remoteClient, err := remote.New(context.Background(), cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile, cfg.RemoteCallTimeout)
	if err != nil {
		logger.Error("Failed to initialize Firestore client", "error", err, "project_id", cfg.FirestoreProjectID)
		os.Exit(1)
	}
	defer remoteClient.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reconciler := worker.NewReconciler(func(userID string) worker.UserBalanceStore {
		return remoteClient.ForUser(userID)
	})

	go func() {
		if err := reconciler.Run(ctx, amqpClient); err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Shutting down reconciler...")
	time.Sleep(2 * time.Second)
	logger.Info("Reconciler shutdown complete")
}
