// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"

	"github.com/AleutianAI/aitestgen/cmd/aitestgen/config"
	"github.com/AleutianAI/aitestgen/services/llm"
)

// llmFactory builds the model client for a config.
type llmFactory func(cfg *config.AitestgenConfig, logger *slog.Logger) (llm.LLMClient, error)

// buildLLM registers one client per provider that the configured models
// need. Each client is rate limited and then retried, so a retry waits for
// a rate-limit token like any other call.
func buildLLM(cfg *config.AitestgenConfig, logger *slog.Logger) (llm.LLMClient, error) {
	router := llm.NewRouter(logger)

	for _, model := range []string{cfg.Discovery.Model, cfg.Generation.Model} {
		provider := llm.ProviderForModel(model)
		if router.Has(provider) {
			continue
		}
		client, err := newProviderClient(provider, model, cfg)
		if err != nil {
			return nil, fmt.Errorf("%s provider for %q: %w", provider, model, err)
		}
		var wrapped llm.LLMClient = client
		if cfg.LLM.RequestsPerSecond > 0 {
			wrapped = llm.NewRateLimited(wrapped, cfg.LLM.RequestsPerSecond, cfg.LLM.Burst)
		}
		if cfg.LLM.Retries > 0 {
			wrapped = llm.NewRetrying(wrapped, cfg.LLM.Retries, cfg.LLM.RetryInterval, logger)
		}
		router.Register(provider, wrapped)
	}
	return router, nil
}

func newProviderClient(provider llm.Provider, model string, cfg *config.AitestgenConfig) (llm.LLMClient, error) {
	switch provider {
	case llm.ProviderOpenAI:
		return llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL:      cfg.LLM.OpenAIBaseURL,
			DefaultModel: model,
		})
	case llm.ProviderAnthropic:
		return llm.NewAnthropicClient(llm.AnthropicConfig{
			BaseURL:      cfg.LLM.AnthropicBaseURL,
			DefaultModel: model,
			MaxTokens:    cfg.Generation.MaxTokens,
		})
	default:
		return llm.NewOllamaClient(llm.OllamaConfig{
			BaseURL:      cfg.LLM.OllamaURL,
			DefaultModel: model,
			Timeout:      cfg.LLM.Timeout,
		}), nil
	}
}
