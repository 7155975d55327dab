package llm

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder produces text embeddings with a write-once in-process
// cache. Cache entries are immutable after their first write, so readers
// never observe a changing value. One read-write lock guards the whole map.
type OpenAIEmbedder struct {
	api    *openai.Client
	model  openai.EmbeddingModel
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string][]float32
}

// NewOpenAIEmbedder builds the embedder. Returns nil when no key is
// configured so callers can treat "no embedder" uniformly.
func NewOpenAIEmbedder(apiKey string) *OpenAIEmbedder {
	if apiKey == "" {
		return nil
	}
	return &OpenAIEmbedder{
		api:    openai.NewClient(apiKey),
		model:  defaultEmbeddingModel,
		logger: slog.With("component", "embedder"),
		cache:  make(map[string][]float32),
	}
}

// Embed returns the embedding for a text, consulting the cache first.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := strings.ToLower(strings.TrimSpace(text))
	if key == "" {
		return nil, nil
	}

	e.mu.RLock()
	cached, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return cached, nil
	}

	resp, err := e.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: e.model,
		Input: []string{text},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	vec := resp.Data[0].Embedding

	e.mu.Lock()
	// First writer wins; the entry is immutable afterwards.
	if existing, ok := e.cache[key]; ok {
		vec = existing
	} else {
		e.cache[key] = vec
	}
	e.mu.Unlock()

	return vec, nil
}

// CacheSize reports how many texts have been embedded so far.
func (e *OpenAIEmbedder) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}
