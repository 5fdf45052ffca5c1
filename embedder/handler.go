package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/de7fp/restaurant-rag/llm"
	"github.com/de7fp/restaurant-rag/logger"
	"github.com/de7fp/restaurant-rag/models"
	"github.com/de7fp/restaurant-rag/queue"
	"github.com/de7fp/restaurant-rag/store"
	"go.uber.org/zap"
)

type Store interface {
	GetRestaurantByID(ctx context.Context, id uint64) (*models.Restaurant, error)
	UpdateRestaurantVector(ctx context.Context, id uint64, description string, vector []float32) error
}

type Handler struct {
	embedder llm.Embedder
	store    Store
}

func NewHandler(embedder llm.Embedder, store Store) *Handler {
	return &Handler{
		embedder: embedder,
		store:    store,
	}
}

// HandleRestaurantMessage rebuilds the description of the referenced
// restaurant and stores it with its embedding. A returned error naks the
// message so it is redelivered.
func (h *Handler) HandleRestaurantMessage(ctx context.Context, msg []byte) error {
	req, err := queue.ParseEmbedRequest(msg)
	if err != nil {
		logger.Warn("dropping malformed embed request", zap.ByteString("data", msg), zap.Error(err))
		return nil
	}

	restaurant, err := h.store.GetRestaurantByID(ctx, req.ID)
	if errors.Is(err, store.ErrNotFound) {
		logger.Info("restaurant gone before embedding", zap.Uint64("id", req.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load restaurant %d: %w", req.ID, err)
	}

	restaurant.Normalize()

	vector, err := llm.EmbedOne(ctx, h.embedder, restaurant.Description)
	if err != nil {
		return fmt.Errorf("failed to embed restaurant %d: %w", req.ID, err)
	}

	if err := h.store.UpdateRestaurantVector(ctx, req.ID, restaurant.Description, vector); err != nil {
		return fmt.Errorf("failed to update restaurant %d vector: %w", req.ID, err)
	}

	logger.Debug("restaurant embedded", zap.Uint64("id", req.ID), zap.String("name", restaurant.Name))
	return nil
}
