package main

import (
	"context"
	"errors"
	"os"

	"budget/internal/amqp"
	"budget/internal/cli"
	"budget/internal/core"
	"budget/internal/ingest"
)

func main() {
	logger, cfg, repo := cli.Bootstrap()
	defer repo.Close()

	logger.Info("Starting import-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the import worker")
		os.Exit(1)
	}

	queue, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer queue.Close()

	ingestSvc := ingest.NewService(repo)

	ctx, stop := cli.SignalContext()
	defer stop()

	logger.Info("Consuming import batches", "queue", cfg.AMQPQueue)
	err = queue.ConsumeImportBatches(ctx, func(ctx context.Context, msg *amqp.ImportBatchMessage) error {
		items := make([]core.Candidate, 0, len(msg.Items))
		for _, it := range msg.Items {
			items = append(items, it.Candidate())
		}
		stats := ingestSvc.ImportBatch(ctx, items, core.ImportSource(msg.Source))
		logger.Info("Import batch processed",
			"batch_id", stats.BatchID,
			"total", stats.Total,
			"imported", stats.Imported,
			"duplicates", stats.Duplicates,
			"errors", stats.Errors,
		)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
