package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
)

// Provider constants for LLM provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Client produces a single structured JSON object per call, decoded into result.
type Client interface {
	Chat(ctx context.Context, req Request, result any) (*Response, error)
	Model() string
}

type Request struct {
	SystemPrompt string
	UserPrompt   string
	SchemaName   string
	Schema       any
	MaxTokens    int
	Temperature  *float64 // nil = model default, explicit 0 = deterministic
}

type Response struct {
	PromptTokens     int
	CompletionTokens int
}

// TotalTokens is what the cost model bills against.
func (r *Response) TotalTokens() int {
	if r == nil {
		return 0
	}
	return r.PromptTokens + r.CompletionTokens
}

// Config holds LLM client configuration.
type Config struct {
	Provider  string // "openai" or "anthropic"
	APIKey    string
	BaseURL   string // Optional: custom API endpoint
	Model     string
	MaxTokens int
}

// New selects the provider implementation. Defaults to OpenAI.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	switch cfg.Provider {
	case "", ProviderOpenAI:
		return newOpenAIClient(cfg), nil
	case ProviderAnthropic:
		return newAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

func Temp(t float64) *float64 {
	return &t
}

// IsRetryable reports whether err is worth another attempt. Used by callers
// that own a retry policy; the deflection core itself never retries.
func IsRetryable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		slog.DebugContext(ctx, "llm error not retryable: context cancelled or deadline exceeded")
		return false
	}

	status := 0
	var openaiErr *openai.Error
	var anthropicErr *anthropic.Error
	switch {
	case errors.As(err, &openaiErr):
		status = openaiErr.StatusCode
	case errors.As(err, &anthropicErr):
		status = anthropicErr.StatusCode
	default:
		slog.WarnContext(ctx, "llm network error, will retry", "error", err)
		return true
	}

	switch {
	case status == 429:
		slog.WarnContext(ctx, "llm rate limited, will retry", "status_code", status)
		return true
	case status >= 500:
		slog.WarnContext(ctx, "llm server error, will retry", "status_code", status)
		return true
	default:
		slog.ErrorContext(ctx, "llm client error, not retryable", "status_code", status)
		return false
	}
}
