package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderForModel(t *testing.T) {
	tests := []struct {
		model string
		want  Provider
	}{
		{"gpt-4o-mini", ProviderOpenAI},
		{"GPT-4o", ProviderOpenAI},
		{"o3-mini", ProviderOpenAI},
		{"claude-3-5-sonnet-20240620", ProviderAnthropic},
		{"llama3.1", ProviderOllama},
		{"", ProviderOllama},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, ProviderForModel(tt.model))
		})
	}
}

func TestRouter_Generate(t *testing.T) {
	r := NewRouter(nil)

	var gotModel string
	r.Register(ProviderOpenAI, GenerateFunc(func(ctx context.Context, prompt string, params GenerationParams) (string, error) {
		gotModel = params.Model
		return "from openai: " + prompt, nil
	}))

	out, err := r.Generate(context.Background(), "hi", GenerationParams{Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "from openai: hi", out)
	assert.Equal(t, "gpt-4o-mini", gotModel)
	assert.True(t, r.Has(ProviderOpenAI))
	assert.False(t, r.Has(ProviderAnthropic))

	_, err = r.Generate(context.Background(), "hi", GenerationParams{Model: "claude-3-5-sonnet-20240620"})
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestRouter_GeneratePropagatesError(t *testing.T) {
	r := NewRouter(nil)
	boom := errors.New("boom")
	r.Register(ProviderOllama, GenerateFunc(func(context.Context, string, GenerationParams) (string, error) {
		return "", boom
	}))

	_, err := r.Generate(context.Background(), "hi", GenerationParams{Model: "llama3.1"})
	assert.ErrorIs(t, err, boom)
}

func TestRateLimited_Generate(t *testing.T) {
	var calls atomic.Int32
	next := GenerateFunc(func(context.Context, string, GenerationParams) (string, error) {
		calls.Add(1)
		return "ok", nil
	})

	unlimited := NewRateLimited(next, 0, 0)
	for i := 0; i < 5; i++ {
		_, err := unlimited.Generate(context.Background(), "p", GenerationParams{})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(5), calls.Load())

	slow := NewRateLimited(next, 0.001, 1)
	_, err := slow.Generate(context.Background(), "p", GenerationParams{})
	require.NoError(t, err, "burst allows the first call")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = slow.Generate(ctx, "p", GenerationParams{})
	assert.Error(t, err, "second call cannot be admitted before the deadline")
}

func TestRetrying_Generate(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		var calls atomic.Int32
		next := GenerateFunc(func(context.Context, string, GenerationParams) (string, error) {
			if calls.Add(1) < 3 {
				return "", errors.New("503")
			}
			return "done", nil
		})

		out, err := NewRetrying(next, 3, time.Millisecond, nil).Generate(context.Background(), "p", GenerationParams{})
		require.NoError(t, err)
		assert.Equal(t, "done", out)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("zero retries calls once", func(t *testing.T) {
		var calls atomic.Int32
		next := GenerateFunc(func(context.Context, string, GenerationParams) (string, error) {
			calls.Add(1)
			return "", errors.New("503")
		})

		_, err := NewRetrying(next, 0, time.Millisecond, nil).Generate(context.Background(), "p", GenerationParams{})
		assert.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("gives up after retries", func(t *testing.T) {
		var calls atomic.Int32
		next := GenerateFunc(func(context.Context, string, GenerationParams) (string, error) {
			calls.Add(1)
			return "", errors.New("503")
		})

		_, err := NewRetrying(next, 2, time.Millisecond, nil).Generate(context.Background(), "p", GenerationParams{})
		assert.Error(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("missing provider is permanent", func(t *testing.T) {
		var calls atomic.Int32
		next := GenerateFunc(func(context.Context, string, GenerationParams) (string, error) {
			calls.Add(1)
			return "", ErrNoProvider
		})

		_, err := NewRetrying(next, 5, time.Millisecond, nil).Generate(context.Background(), "p", GenerationParams{})
		assert.ErrorIs(t, err, ErrNoProvider)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestResolveAPIKey(t *testing.T) {
	dir := t.TempDir()
	old := SecretsDir
	SecretsDir = dir
	t.Cleanup(func() { SecretsDir = old })

	t.Setenv("AITESTGEN_TEST_KEY", "")

	key, err := resolveAPIKey("explicit", "AITESTGEN_TEST_KEY", "test_key")
	require.NoError(t, err)
	assert.Equal(t, "explicit", key)

	_, err = resolveAPIKey("", "AITESTGEN_TEST_KEY", "test_key")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "test_key"), []byte("from-secret\n"), 0o600))
	key, err = resolveAPIKey("", "AITESTGEN_TEST_KEY", "test_key")
	require.NoError(t, err)
	assert.Equal(t, "from-secret", key)

	t.Setenv("AITESTGEN_TEST_KEY", "from-env")
	key, err = resolveAPIKey("", "AITESTGEN_TEST_KEY", "test_key")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
}

func TestOpenAIClient_Generate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"App\\\\Models\\\\User\":[]}"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), "find classes", GenerationParams{Model: "gpt-4o-mini", JSONMode: true})
	require.NoError(t, err)
	assert.Equal(t, `{"App\\Models\\User":[]}`, out)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	format, ok := body["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[]}`)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "x", GenerationParams{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestAnthropicClient_Generate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("X-Api-Key"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-sonnet-20240620",
			"content":[{"type":"text","text":"<?php it('works', function () {});"}],
			"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":3,"output_tokens":5}}`)
	}))
	defer srv.Close()

	client, err := NewAnthropicClient(AnthropicConfig{APIKey: "sk-ant", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), "write tests", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "<?php it('works', function () {});", out)
	assert.Equal(t, "claude-3-5-sonnet-20240620", body["model"])
	assert.EqualValues(t, defaultAnthropicMaxTokens, body["max_tokens"])
}

func TestOllamaClient_Generate(t *testing.T) {
	var req ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Model: req.Model, Response: "local answer", Done: true})
	}))
	defer srv.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: srv.URL + "/"})
	out, err := client.Generate(context.Background(), "p", GenerationParams{Model: "qwen2.5-coder", JSONMode: true})
	require.NoError(t, err)
	assert.Equal(t, "local answer", out)
	assert.Equal(t, "qwen2.5-coder", req.Model)
	assert.Equal(t, "json", req.Format)
	assert.False(t, req.Stream)
}

func TestOllamaClient_ModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"model \"nope\" not found, try pulling it first"}`)
	}))
	defer srv.Close()

	_, err := NewOllamaClient(OllamaConfig{BaseURL: srv.URL}).Generate(context.Background(), "p", GenerationParams{Model: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama pull nope")
}
