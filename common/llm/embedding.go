package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type EmbeddingConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// Embedder turns ticket text into a fixed-length vector.
type Embedder struct {
	openai     openai.Client
	model      string
	dimensions int
}

func NewEmbedder(cfg EmbeddingConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = openai.EmbeddingModelTextEmbedding3Small
	}

	return &Embedder{
		openai:     openai.NewClient(opts...),
		model:      model,
		dimensions: cfg.Dimensions,
	}, nil
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: e.model,
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	start := time.Now()
	resp, err := e.openai.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding in response")
	}

	vec := resp.Data[0].Embedding
	if e.dimensions > 0 && len(vec) != e.dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, want %d", len(vec), e.dimensions)
	}

	slog.DebugContext(ctx, "embedding computed",
		"model", e.model,
		"dimensions", len(vec),
		"duration_ms", time.Since(start).Milliseconds())

	return vec, nil
}

// Dimensions is the configured vector length, used for zero-vector fallbacks.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}
