package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"budget/internal/core"
)

// BatchStats is the outcome of one import batch.
// Imported + Duplicates + Errors always equals Total, and Total always
// equals the input length. ErrorMessages carries one entry per failed
// item, each naming the item's input index.
type BatchStats struct {
	BatchID    string   `json:"batch_id"`
	Total      int      `json:"total"`
	Imported   int      `json:"imported"`
	Duplicates int      `json:"duplicates"`
	Errors     int      `json:"errors"`
	Messages   []string `json:"error_messages,omitempty"`
}

// ImportBatch runs SafeAdd over a batch of extracted candidates.
//
// Import sources are noisy: a PDF or OCR extractor will regularly hand
// over a few malformed records in an otherwise good batch. Items are
// therefore processed independently and in input order, and a failing
// item is counted and reported instead of aborting the rest.
func (s *Service) ImportBatch(ctx context.Context, items []core.Candidate, source core.ImportSource) BatchStats {
	stats := BatchStats{
		BatchID: uuid.NewString(),
		Total:   len(items),
	}

	slog.InfoContext(ctx, "Import batch started",
		"batch_id", stats.BatchID,
		"source", source,
		"total", stats.Total)

	for i, item := range items {
		// Extractors frequently omit the account kind; assume card,
		// the dominant source of imported statements.
		if item.Kind == "" {
			item.Kind = core.Card
		}

		_, isNew, err := s.SafeAdd(ctx, item, source)
		switch {
		case err != nil:
			stats.Errors++
			stats.Messages = append(stats.Messages,
				fmt.Sprintf("item %d (%s): %v", i, item.Description, err))
			slog.WarnContext(ctx, "Import item failed",
				"batch_id", stats.BatchID,
				"index", i,
				"error", err)
		case isNew:
			stats.Imported++
		default:
			stats.Duplicates++
		}
	}

	slog.InfoContext(ctx, "Import batch finished",
		"batch_id", stats.BatchID,
		"source", source,
		"total", stats.Total,
		"imported", stats.Imported,
		"duplicates", stats.Duplicates,
		"errors", stats.Errors)

	return stats
}
