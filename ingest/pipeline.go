package ingest

import (
	"context"
	"fmt"

	"github.com/de7fp/restaurant-rag/llm"
	"github.com/de7fp/restaurant-rag/logger"
	"github.com/de7fp/restaurant-rag/metrics"
	"github.com/de7fp/restaurant-rag/models"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

type Store interface {
	RestaurantExists(ctx context.Context, placeID int64, name string) (bool, error)
	CreateRestaurant(ctx context.Context, restaurant *models.Restaurant) error
}

// Summary counts what happened to each row of a run.
type Summary struct {
	Inserted         int `json:"inserted"`
	SkippedExisting  int `json:"skipped_existing"`
	SkippedNoWaiting int `json:"skipped_no_waiting"`
	Invalid          int `json:"invalid"`
	Failed           int `json:"failed"`
}

func (s Summary) Total() int {
	return s.Inserted + s.SkippedExisting + s.SkippedNoWaiting + s.Invalid + s.Failed
}

func (s Summary) String() string {
	return fmt.Sprintf("total=%d inserted=%d skipped_existing=%d skipped_no_waiting=%d invalid=%d failed=%d",
		s.Total(), s.Inserted, s.SkippedExisting, s.SkippedNoWaiting, s.Invalid, s.Failed)
}

// Pipeline embeds source rows and inserts the ones not stored yet. Running
// it twice over the same source inserts nothing the second time.
type Pipeline struct {
	store    Store
	embedder llm.Embedder
}

func NewPipeline(store Store, embedder llm.Embedder) *Pipeline {
	return &Pipeline{store: store, embedder: embedder}
}

func (p *Pipeline) Run(ctx context.Context, src Source) (Summary, error) {
	var summary Summary

	rows, err := src.Rows(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to read %s source: %w", src.Name(), err)
	}
	logger.Info("ingestion started", zap.String("source", src.Name()), zap.Int("rows", len(rows)))

	count := func(result string) {
		metrics.IngestRecords.WithLabelValues(src.Name(), result).Inc()
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if !row.Valid() {
			summary.Invalid++
			count("invalid")
			continue
		}
		if !row.HasWaiting {
			summary.SkippedNoWaiting++
			count("no_waiting")
			continue
		}

		exists, err := p.store.RestaurantExists(ctx, row.PlaceID, row.Name)
		if err != nil {
			return summary, fmt.Errorf("failed to check restaurant %d: %w", row.PlaceID, err)
		}
		if exists {
			summary.SkippedExisting++
			count("existing")
			logger.Debug("skipping existing restaurant", zap.String("name", row.Name))
			continue
		}

		rest := row.Restaurant()
		vector, err := llm.EmbedOne(ctx, p.embedder, rest.Description)
		if err != nil {
			summary.Failed++
			count("failed")
			logger.Error("failed to embed restaurant", zap.String("name", rest.Name), zap.Error(err))
			continue
		}
		vec := pgvector.NewVector(vector)
		rest.Embedding = &vec

		if err := p.store.CreateRestaurant(ctx, rest); err != nil {
			summary.Failed++
			count("failed")
			logger.Error("failed to insert restaurant", zap.String("name", rest.Name), zap.Error(err))
			continue
		}

		summary.Inserted++
		count("inserted")
		logger.Info("restaurant saved",
			zap.String("name", rest.Name),
			zap.Int("estimated_wait_minutes", rest.EstimatedWaitingTime),
		)
	}

	logger.Info("ingestion finished", zap.String("source", src.Name()), zap.Stringer("summary", summary))
	return summary, nil
}
