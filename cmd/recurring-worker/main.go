package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"financebro/internal/amqp"
	"financebro/internal/config"
	applog "financebro/internal/log"
	"financebro/internal/services"
	"financebro/internal/storage"

	"github.com/joho/godotenv"
)

// recurring-worker runs the scheduled generation pass on its own, for
// deployments where the API server is scaled out and should not each run
// their own ticker.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "recurring-worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentRecurrence})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, generated transactions will not be exported", applog.FieldError, err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	processor := services.NewRecurringProcessor(store, amqpClient, nil)
	goals := services.NewGoalService(store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runPass := func() {
		generated, err := processor.ProcessAll(ctx)
		if err != nil {
			logger.Error("Recurring pass failed", applog.FieldError, err)
			return
		}
		logger.Info("Recurring pass complete", "generated", generated)

		if cfg.OrphanSweepEnabled {
			if removed, err := goals.SweepOrphans(ctx); err != nil {
				logger.Error("Orphan sweep failed", applog.FieldError, err, applog.FieldOperation, applog.OpSweep)
			} else if removed > 0 {
				logger.Warn("Removed orphaned deposits", "count", removed, applog.FieldOperation, applog.OpSweep)
			}
		}
	}

	logger.Info("Recurring worker started", "interval", cfg.RecurringInterval.String())
	runPass()

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Recurring worker stopped", applog.FieldOperation, applog.OpShutdown)
			return nil
		case <-ticker.C:
			runPass()
		}
	}
}
