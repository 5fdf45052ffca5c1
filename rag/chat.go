package rag

import (
	"context"
	"strings"
	"time"

	"github.com/de7fp/restaurant-rag/llm"
	"github.com/de7fp/restaurant-rag/logger"
	"github.com/de7fp/restaurant-rag/metrics"
	"github.com/de7fp/restaurant-rag/models"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

const (
	DefaultTopK        = 4
	DefaultFallbackIDs = 3
	// MaxFallbackIDs caps how many retrieved ids a fallback reply carries.
	MaxFallbackIDs = 3
)

type Retriever interface {
	NearestRestaurants(ctx context.Context, vector []float32, k int) ([]models.Restaurant, error)
}

type HistoryRecorder interface {
	RecordChat(ctx context.Context, query, answer string, fallback bool) error
}

// QueryLister returns the most recent chat queries, newest first.
type QueryLister interface {
	ChatQueries(ctx context.Context, limit int) ([]string, error)
}

type Options struct {
	TopK        int
	FallbackIDs int
	Timeout     time.Duration
}

// Chat answers restaurant questions from the vector store.
type Chat struct {
	embedder  llm.Embedder
	retriever Retriever
	model     llms.Model
	history   HistoryRecorder
	opts      Options
}

func NewChat(embedder llm.Embedder, retriever Retriever, model llms.Model, history HistoryRecorder, opts Options) *Chat {
	if opts.TopK < 1 {
		opts.TopK = DefaultTopK
	}
	if opts.FallbackIDs < 1 {
		opts.FallbackIDs = DefaultFallbackIDs
	}
	opts.FallbackIDs = min(opts.FallbackIDs, MaxFallbackIDs)

	return &Chat{
		embedder:  embedder,
		retriever: retriever,
		model:     model,
		history:   history,
		opts:      opts,
	}
}

// Answer runs embed, retrieve, generate and parse for one message. The
// returned error is always a *Error.
func (c *Chat) Answer(ctx context.Context, message string) (Outcome, error) {
	out, err := c.answer(ctx, message)
	if err != nil {
		metrics.ChatRequests.WithLabelValues(metrics.OutcomeError).Inc()
		return Outcome{}, err
	}

	if out.Fallback {
		metrics.ChatRequests.WithLabelValues(metrics.OutcomeFallback).Inc()
		logger.Warn("model reply was not valid JSON, using fallback", zap.String("raw", out.Raw))
	} else {
		metrics.ChatRequests.WithLabelValues(metrics.OutcomeStructured).Inc()
	}

	c.record(ctx, message, out)
	return out, nil
}

func (c *Chat) answer(ctx context.Context, message string) (Outcome, error) {
	if strings.TrimSpace(message) == "" {
		return Outcome{}, errEmptyMessage
	}

	start := time.Now()
	vector, err := llm.EmbedOne(ctx, c.embedder, message)
	metrics.ObserveStage("embed", time.Since(start))
	if err != nil {
		return Outcome{}, newError(KindEmbedding, "임베딩 생성 실패", err)
	}

	start = time.Now()
	restaurants, err := c.retriever.NearestRestaurants(ctx, vector, c.opts.TopK)
	metrics.ObserveStage("retrieve", time.Since(start))
	if err != nil {
		return Outcome{}, newError(KindRetrieval, "맛집 검색 실패", err)
	}

	ids := make([]int64, 0, len(restaurants))
	for _, r := range restaurants {
		ids = append(ids, r.PlaceID)
	}

	prompt := BuildPrompt(BuildContext(restaurants), message)

	genCtx := ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	start = time.Now()
	raw, err := llms.GenerateFromSinglePrompt(genCtx, c.model, prompt)
	metrics.ObserveStage("generate", time.Since(start))
	if err != nil {
		return Outcome{}, newError(KindGeneration, "LLM 생성 오류", err)
	}

	logger.Debug("generated chat reply",
		zap.Int("retrieved", len(restaurants)),
		zap.Int64s("ids", ids),
	)

	return ParseReply(raw, ids, c.opts.FallbackIDs), nil
}

func (c *Chat) record(ctx context.Context, message string, out Outcome) {
	if c.history == nil {
		return
	}
	if err := c.history.RecordChat(ctx, message, out.Reply.Answer, out.Fallback); err != nil {
		logger.Warn("failed to record chat history", zap.Error(err))
	}
}
