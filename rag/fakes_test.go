package rag

import (
	"context"
	"errors"
	"sync"

	"github.com/de7fp/restaurant-rag/models"
	"github.com/tmc/langchaingo/llms"
)

type fakeEmbedder struct {
	mu     sync.Mutex
	vector []float32
	err    error
	calls  [][]string
}

func (f *fakeEmbedder) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

type fakeRetriever struct {
	restaurants []models.Restaurant
	err         error
	gotK        int
}

func (f *fakeRetriever) NearestRestaurants(_ context.Context, _ []float32, k int) ([]models.Restaurant, error) {
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	if len(f.restaurants) > k {
		return f.restaurants[:k], nil
	}
	return f.restaurants, nil
}

type fakeModel struct {
	reply  string
	err    error
	prompt string
	block  bool
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, m := range messages {
		for _, p := range m.Parts {
			if text, ok := p.(llms.TextContent); ok {
				f.prompt = text.Text
			}
		}
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

type recordedChat struct {
	query, answer string
	fallback      bool
}

type fakeHistory struct {
	records []recordedChat
	err     error
}

func (f *fakeHistory) RecordChat(_ context.Context, query, answer string, fallback bool) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, recordedChat{query, answer, fallback})
	return nil
}

var errBoom = errors.New("boom")
