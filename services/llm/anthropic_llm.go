package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 8192

// jsonModeSystemPrompt stands in for a JSON mode, which the Messages API lacks.
const jsonModeSystemPrompt = "Respond with a single JSON object and nothing else."

// AnthropicConfig configures an AnthropicClient.
type AnthropicConfig struct {
	// APIKey falls back to ANTHROPIC_API_KEY, then /run/secrets/anthropic_api_key.
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// DefaultModel is used when GenerationParams.Model is empty.
	DefaultModel string

	// MaxTokens caps the response when GenerationParams.MaxTokens is nil.
	MaxTokens int
}

type AnthropicClient struct {
	client anthropic.Client
	cfg    AnthropicConfig
}

func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	apiKey, err := resolveAPIKey(cfg.APIKey, "ANTHROPIC_API_KEY", "anthropic_api_key")
	if err != nil {
		return nil, err
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-3-5-sonnet-20240620"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultAnthropicMaxTokens
	}

	// Retries are owned by the Retrying wrapper.
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	slog.Debug("Initializing Anthropic client", "model", cfg.DefaultModel)
	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

// Generate implements the LLMClient interface
func (a *AnthropicClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	model := params.Model
	if model == "" {
		model = a.cfg.DefaultModel
	}
	maxTokens := a.cfg.MaxTokens
	if params.MaxTokens != nil {
		maxTokens = *params.MaxTokens
	}
	slog.Debug("Generating text via Anthropic", "model", model)

	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if params.JSONMode {
		req.System = []anthropic.TextBlockParam{{Text: jsonModeSystemPrompt}}
	}
	if params.Temperature != nil {
		req.Temperature = anthropic.Float(float64(*params.Temperature))
	}
	if params.TopK != nil {
		req.TopK = anthropic.Int(int64(*params.TopK))
	}
	if params.TopP != nil {
		req.TopP = anthropic.Float(float64(*params.TopP))
	}
	if len(params.Stop) > 0 {
		req.StopSequences = params.Stop
	}

	msg, err := a.client.Messages.New(ctx, req)
	if err != nil {
		slog.Error("Anthropic API call failed", "model", model, "error", err)
		return "", fmt.Errorf("Anthropic API call failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: Anthropic returned no text content", ErrEmptyResponse)
	}

	slog.Debug("Received response from Anthropic", "stop_reason", string(msg.StopReason))
	return sb.String(), nil
}
