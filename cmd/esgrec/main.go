package main

import (
	"context"
	"os"
	"time"

	"esgrec/internal/amqp"
	"esgrec/internal/cache"
	"esgrec/internal/cli"
	apphttp "esgrec/internal/http"
	applog "esgrec/internal/log"
	"esgrec/internal/matrix"
	"esgrec/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.OpenStore(logger, cfg)
	defer func() {
		if store.Cleanup != nil {
			if err := store.Cleanup(); err != nil {
				logger.Error("Store cleanup failed", "error", err)
			}
		}
	}()

	// AMQP is optional: the API works without the worker pipeline.
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, saves will not be announced", "error", err)
		} else {
			amqpClient = client
			publisher = client
			defer amqpClient.Close()
			logger.Info("AMQP client initialized",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	opts := matrix.SourceOptions{
		TTL:        cfg.CacheTTL,
		MaxEntries: cfg.CacheSize,
		Retries:    cfg.FetchRetries,
		RetryDelay: cfg.RetryDelay,
	}
	accounts := matrix.NewCachedAccounts(store.Store, opts)
	matrixSrc := matrix.NewCachedMatrix(store.Store, opts)
	saver := matrix.NewSaver(store.Store, store.Store, cfg.SaveConcurrency)

	matrixSvc := services.NewMatrixService(accounts, matrixSrc, saver, store.Store, publisher)
	accountSvc := services.NewAccountService(store.Store, accounts)

	manager := cache.NewManager()
	manager.Register(accounts)
	manager.Register(matrixSrc)
	manager.StartCleanup(time.Minute)
	defer manager.Stop()

	srv := apphttp.NewServer(apphttp.Config{
		Port:              cfg.Port,
		RequestsPerMinute: 120,
	}, matrixSvc, accountSvc, store.Store.Ping)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting esgrec server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.Start(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
