// Package llm is the boundary to large language model providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type GenerationParams struct {
	// Model selects the provider model. Empty uses the client default.
	Model string `json:"model,omitempty"`

	// JSONMode asks the provider to constrain output to a JSON object.
	JSONMode bool `json:"json_mode,omitempty"`

	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// GenerateFunc adapts a function to LLMClient.
type GenerateFunc func(ctx context.Context, prompt string, params GenerationParams) (string, error)

// Generate implements LLMClient.
func (f GenerateFunc) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return f(ctx, prompt, params)
}

var (
	// ErrMissingAPIKey indicates no API key was configured or found.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrEmptyResponse indicates the provider returned no content.
	ErrEmptyResponse = errors.New("empty response")

	// ErrNoProvider indicates no client is registered for the model's provider.
	ErrNoProvider = errors.New("no provider for model")
)

// SecretsDir is where container secrets are mounted.
var SecretsDir = "/run/secrets"

// resolveAPIKey returns explicit when set, then the environment variable,
// then the mounted secret file.
func resolveAPIKey(explicit, envName, secretName string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
		return v, nil
	}
	secretPath := filepath.Join(SecretsDir, secretName)
	if content, err := os.ReadFile(secretPath); err == nil {
		if v := strings.TrimSpace(string(content)); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: set %s or mount %s", ErrMissingAPIKey, envName, secretPath)
}
