package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicClient gets structured output by forcing a single tool call whose
// input schema is the requested response schema.
type anthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

func newAnthropicClient(cfg Config) *anthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-5-20250514"
	}

	return &anthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: cfg.MaxTokens,
	}
}

func (c *anthropicClient) Chat(ctx context.Context, req Request, result any) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens == 0 {
		maxTokens = 1000
	}

	inputSchema, err := toolInputSchema(req.Schema)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
		Tools: []anthropic.ToolUnionParam{
			{
				OfTool: &anthropic.ToolParam{
					Name:        req.SchemaName,
					Description: anthropic.String("Return the structured response"),
					InputSchema: inputSchema,
				},
			},
		},
		ToolChoice: anthropic.ToolChoiceParamOfTool(req.SchemaName),
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic chat: %w", err)
	}

	slog.DebugContext(ctx, "llm chat completed",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"stop_reason", resp.StopReason)

	for _, block := range resp.Content {
		if block.Type != "tool_use" {
			continue
		}
		if err := json.Unmarshal(block.Input, result); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		return &Response{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
		}, nil
	}

	return nil, fmt.Errorf("no tool_use block in response (stop_reason=%s)", resp.StopReason)
}

func (c *anthropicClient) Model() string {
	return c.model
}

// toolInputSchema carries the properties and required list of a reflected
// JSON schema over to a tool input schema.
func toolInputSchema(schema any) (anthropic.ToolInputSchemaParam, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return anthropic.ToolInputSchemaParam{}, fmt.Errorf("marshal schema: %w", err)
	}
	var doc struct {
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return anthropic.ToolInputSchemaParam{}, fmt.Errorf("decode schema: %w", err)
	}
	return anthropic.ToolInputSchemaParam{
		Properties: doc.Properties,
		Required:   doc.Required,
	}, nil
}
