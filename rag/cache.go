package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/de7fp/restaurant-rag/llm"
	"github.com/de7fp/restaurant-rag/logger"
	"github.com/de7fp/restaurant-rag/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is the subset of the redis client used for embeddings.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedEmbedder memoizes embeddings in redis keyed by the text hash. Cache
// failures are logged and never fail the embedding.
type CachedEmbedder struct {
	next  llm.Embedder
	cache Cache
	ttl   time.Duration
}

func NewCachedEmbedder(next llm.Embedder, cache Cache, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache, ttl: ttl}
}

func embeddingKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if v, ok := c.lookup(ctx, text); ok {
			vectors[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := c.next.CreateEmbedding(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, errors.New("embedding count does not match input count")
	}

	for j, i := range missIdx {
		vectors[i] = fresh[j]
		c.store(ctx, missTexts[j], fresh[j])
	}
	return vectors, nil
}

func (c *CachedEmbedder) lookup(ctx context.Context, text string) ([]float32, bool) {
	data, err := c.cache.Get(ctx, embeddingKey(text)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.EmbeddingCache.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.EmbeddingCache.WithLabelValues("error").Inc()
		logger.Warn("failed to read embedding cache", zap.Error(err))
		return nil, false
	}

	var v []float32
	if err := json.Unmarshal(data, &v); err != nil || len(v) == 0 {
		metrics.EmbeddingCache.WithLabelValues("error").Inc()
		logger.Warn("discarding malformed cached embedding", zap.Error(err))
		return nil, false
	}

	metrics.EmbeddingCache.WithLabelValues("hit").Inc()
	return v, true
}

func (c *CachedEmbedder) store(ctx context.Context, text string, v []float32) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, embeddingKey(text), data, c.ttl).Err(); err != nil {
		logger.Warn("failed to write embedding cache", zap.Error(err))
	}
}
