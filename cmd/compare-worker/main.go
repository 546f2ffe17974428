package main

import (
	"context"
	"errors"
	"os"
	"time"

	"schoolcompare/internal/amqp"
	"schoolcompare/internal/cli"
	"schoolcompare/internal/log"
	"schoolcompare/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting compare-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.EventsEnabled() {
		logger.Error("AMQP_URL is required for the compare worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		_ = repo.Close()
		os.Exit(1)
	}

	stats := worker.NewStatsWorker(repo, logger)

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, func(context.Context) error {
		processed, failed := stats.Stats()
		logger.Info("Worker totals", "processed", processed, "failed", failed)
		return errors.Join(client.Close(), repo.Close())
	})

	if err := stats.Run(ctx, client); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption stopped", log.FieldError, err)
		_ = client.Close()
		_ = repo.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
