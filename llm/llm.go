package llm

import (
	"context"
	"fmt"

	"github.com/de7fp/restaurant-rag/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	ProviderGoogleAI = "googleai"
	ProviderOllama   = "ollama"
)

// Embedder turns texts into vectors, one per text.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Client bundles the generation model with the embedding model. For providers
// that serve both from one handle the two fields point to the same value.
type Client struct {
	llms.Model
	Embedder
}

func NewClient(ctx context.Context, cfg config.LLM) (*Client, error) {
	switch cfg.Provider {
	case ProviderGoogleAI:
		return newGoogleAI(ctx, cfg)
	case ProviderOllama:
		return newOllama(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

func newGoogleAI(ctx context.Context, cfg config.LLM) (*Client, error) {
	g, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultModel(cfg.ChatModel),
		googleai.WithDefaultEmbeddingModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create googleai client: %w", err)
	}

	return &Client{Model: g, Embedder: g}, nil
}

func newOllama(cfg config.LLM) (*Client, error) {
	embedding, err := ollama.New(
		ollama.WithServerURL(cfg.Address()),
		ollama.WithModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama embedding client: %w", err)
	}

	chat, err := ollama.New(
		ollama.WithServerURL(cfg.Address()),
		ollama.WithModel(cfg.ChatModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama chat client: %w", err)
	}

	return &Client{Model: chat, Embedder: embedding}, nil
}

// EmbedOne embeds a single text and fails when the provider returns no vector.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vectors, err := e.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embeddings")
	}

	return vectors[0], nil
}
