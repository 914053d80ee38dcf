package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"github.com/tmc/langchaingo/llms"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-embedding-001"

var ErrMissingAPIKey = errors.New("gemini api key not configured")

type Embedder struct {
	client      *genai.Client
	model       string
	countTokens func(model, text string) int
}

func NewEmbedder(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Embedder, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = DefaultModel
	}
	opts = append(opts, option.WithAPIKey(apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Embedder{client: client, model: model, countTokens: llms.CountTokens}, nil
}

// Embed returns the vector and an estimate of its token cost. The embedding
// endpoint does not report usage, so the cost is counted locally.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, int, error) {
	slog.DebugContext(ctx, "embedding content", "model", e.model, "length", len(text))
	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalDocument
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err)
		return nil, 0, err
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, 0, fmt.Errorf("empty embedding received")
	}
	return res.Embedding.Values, e.countTokens(e.model, text), nil
}

func (e *Embedder) Close() error {
	return e.client.Close()
}
