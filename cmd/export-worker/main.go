package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"financebro/internal/amqp"
	"financebro/internal/config"
	applog "financebro/internal/log"
	"financebro/internal/sheets/google"
	"financebro/internal/storage"
	"financebro/internal/worker"

	"github.com/joho/godotenv"
)

// export-worker consumes transaction events and mirrors them to a Google
// spreadsheet. The sheet is a read model; storage stays the source of truth.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "export-worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentExport})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.AMQPURL == "" {
		return fmt.Errorf("AMQP_URL must be set for the export worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	sheet, err := google.NewFromEnv(ctx)
	if err != nil {
		return fmt.Errorf("google sheets: %w", err)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("amqp: %w", err)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(store, sheet, sheet, cfg.ExportBatchSize)

	// Re-queue anything that was written while the worker was down.
	if err := exportWorker.StartupSyncCheck(ctx); err != nil {
		logger.Warn("Startup sync check failed", applog.FieldError, err, applog.FieldOperation, applog.OpStartup)
	}

	logger.Info("Export worker started", "queue", cfg.AMQPQueue)
	return amqpClient.ConsumeEvents(ctx, func(event *amqp.TransactionEvent) error {
		return exportWorker.HandleEvent(ctx, event)
	})
}
