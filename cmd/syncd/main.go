package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/topicstream/topicstream/internal/db"
	"github.com/topicstream/topicstream/internal/syncer"
	"github.com/topicstream/topicstream/internal/translate"
	"github.com/topicstream/topicstream/internal/twitter"
	"github.com/topicstream/topicstream/pkg/config"
	"github.com/topicstream/topicstream/pkg/logging"
	"github.com/topicstream/topicstream/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting topicstream sync daemon")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Initialize database
	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Initialize collaborators and the daemon
	feed, err := twitter.New(&cfg.Twitter)
	if err != nil {
		logger.Fatal("Failed to initialize Twitter client", zap.Error(err))
	}
	translator := translate.New(&cfg.Translation)

	repo := db.NewRepository(database.DB)
	daemon := syncer.NewDaemon(&cfg.Syncer, repo, syncer.New(repo, feed, translator))

	// Cancel the daemon context on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := daemon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("Sync daemon failed", zap.Error(err))
	}

	logger.Info("Sync daemon exited")
}
