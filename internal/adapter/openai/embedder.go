package openai

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const DefaultModel = "text-embedding-3-small"

// Embedder calls an OpenAI compatible embeddings endpoint.
type Embedder struct {
	embedder    embeddings.Embedder
	model       string
	countTokens func(model, text string) int
	logger      *slog.Logger
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	token := cfg.APIKey
	if token == "" {
		// Local OpenAI compatible servers accept any token.
		token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(false))
	if err != nil {
		return nil, err
	}
	return &Embedder{
		embedder:    emb,
		model:       cfg.Model,
		countTokens: llms.CountTokens,
		logger:      slog.Default().With("component", "openai-embedder"),
	}, nil
}

// Embed returns the vector and an estimated token cost. The cost is counted
// locally with tiktoken rather than taken from the provider's usage report,
// and falls back to a rough character-based guess when the encoding cannot
// be downloaded.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, int, error) {
	e.logger.DebugContext(ctx, "generating embedding", "model", e.model, "length", len(text))

	vecs, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to generate embedding", "error", err)
		return nil, 0, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, 0, errors.New("embedder returned empty result")
	}
	return vecs[0], e.countTokens(e.model, text), nil
}

func (e *Embedder) String() string {
	return "openai:" + e.model
}
