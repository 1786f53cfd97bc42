package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Provider names an LLM backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
)

// ProviderForModel infers the provider that serves a model name.
//
// Example:
//
//	ProviderForModel("gpt-4o-mini")                // ProviderOpenAI
//	ProviderForModel("claude-3-5-sonnet-20240620") // ProviderAnthropic
//	ProviderForModel("llama3.1")                   // ProviderOllama
func ProviderForModel(model string) Provider {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, "gpt-"), strings.HasPrefix(m, "chatgpt-"),
		strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"), strings.HasPrefix(m, "o4"):
		return ProviderOpenAI
	case strings.HasPrefix(m, "claude-"):
		return ProviderAnthropic
	default:
		return ProviderOllama
	}
}

// Router dispatches each call to the provider that serves its model, so the
// discovery model and the generation model can live on different backends.
//
// Thread Safety:
//
//	Router is safe for concurrent use.
type Router struct {
	mu        sync.RWMutex
	providers map[Provider]LLMClient
	logger    *slog.Logger
}

// NewRouter creates an empty Router.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{providers: make(map[Provider]LLMClient), logger: logger}
}

// Register sets the client for a provider.
func (r *Router) Register(p Provider, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p] = client
}

// Has reports whether a client is registered for p.
func (r *Router) Has(p Provider) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[p]
	return ok
}

// Generate implements LLMClient.
func (r *Router) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	provider := ProviderForModel(params.Model)

	r.mu.RLock()
	client, ok := r.providers[provider]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q needs the %s provider", ErrNoProvider, params.Model, provider)
	}

	ctx, span := tracer.Start(ctx, "llm.Generate",
		trace.WithAttributes(
			attribute.String("llm.provider", string(provider)),
			attribute.String("llm.model", params.Model),
			attribute.Bool("llm.json_mode", params.JSONMode),
			attribute.Int("llm.prompt_size", len(prompt)),
		),
	)
	defer span.End()
	start := time.Now()

	out, err := client.Generate(ctx, prompt, params)
	recordRequest(ctx, provider, params.Model, time.Since(start), err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.Int("llm.response_size", len(out)))
	r.logger.Debug("llm call completed",
		slog.String("provider", string(provider)),
		slog.String("model", params.Model),
		slog.Duration("duration", time.Since(start)),
		slog.Int("response_size", len(out)))
	return out, nil
}
