package main

import (
	"context"
	"os"
	"time"

	"esgrec/internal/amqp"
	"esgrec/internal/cli"
	applog "esgrec/internal/log"
	"esgrec/internal/mirror"
	"esgrec/internal/mirror/google"
	"esgrec/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting matrix-worker")

	store := cli.OpenStore(logger, cfg)
	defer func() {
		if store.Cleanup != nil {
			if err := store.Cleanup(); err != nil {
				logger.Error("Store cleanup failed", "error", err)
			}
		}
	}()

	// The Sheets mirror is optional; without it the worker only maintains
	// the annual summaries.
	var gridMirror mirror.GridMirror
	if cfg.MirrorEnabled() {
		client, err := google.NewClient(context.Background(), google.Config{
			SpreadsheetID:   cfg.MirrorSpreadsheetID,
			SheetName:       cfg.MirrorSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		})
		if err != nil {
			logger.Error("Failed to initialize Sheets mirror", "error", err)
			os.Exit(1)
		}
		gridMirror = client
		logger.Info("Sheets mirror initialized", "spreadsheet_id", cfg.MirrorSpreadsheetID)
	} else {
		logger.Info("Sheets mirror disabled - no MIRROR_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewMatrixWorker(store.Store, store.Store, store.Store, gridMirror)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := amqpClient.ConsumeMatrixSaved(ctx, func(msg *amqp.MatrixSavedMessage) error {
			return w.HandleMatrixSaved(ctx, msg)
		})
		if err != nil && err != context.Canceled {
			logger.Error("Message consumption failed", "error", err)
		}
		cancel()
	}()

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		cancel()
	})

	select {
	case <-shutdownCtx.Done():
	case <-ctx.Done():
		logger.Info("Consumer stopped")
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
	logger.Info("Worker shutdown complete")
}
