// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package discovery

import "strings"

// Default values for Config.
const (
	DefaultDepth                = 2
	DefaultModel                = "gpt-4o-mini"
	DefaultRootNamespace        = `App\`
	DefaultFrameworkDescription = "Laravel (V11) project using Livewire (V3) and Filament (V3)"
	DefaultMaxClassesPerStep    = 10
)

// Config holds configuration for dependency discovery.
type Config struct {
	// Depth is the maximum number of discovery rounds below the root class.
	// Zero disables discovery.
	// Default: 2
	Depth int

	// Model is the model identifier used for discovery prompts.
	// Default: gpt-4o-mini
	Model string

	// JSONMode asks the provider for a JSON-only response. The prompt still
	// expects <final_output> tags, so this is normally left off.
	JSONMode bool

	// RootNamespace restricts discovered classes to one namespace prefix.
	// Always ends with a backslash after Validate.
	// Default: App\
	RootNamespace string

	// FrameworkDescription describes the project in the prompt.
	FrameworkDescription string

	// MaxClassesPerStep caps the classes accepted from one response.
	// Default: 10
	MaxClassesPerStep int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Depth:                DefaultDepth,
		Model:                DefaultModel,
		RootNamespace:        DefaultRootNamespace,
		FrameworkDescription: DefaultFrameworkDescription,
		MaxClassesPerStep:    DefaultMaxClassesPerStep,
	}
}

// Validate clamps out-of-range values to usable ones.
//
// Outputs:
//
//	error - Always nil; invalid fields are replaced with defaults
func (c *Config) Validate() error {
	if c.Depth < 0 {
		c.Depth = 0
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = DefaultModel
	}
	c.RootNamespace = strings.Trim(strings.TrimSpace(c.RootNamespace), `\`)
	if c.RootNamespace == "" {
		c.RootNamespace = DefaultRootNamespace
	} else {
		c.RootNamespace += `\`
	}
	if strings.TrimSpace(c.FrameworkDescription) == "" {
		c.FrameworkDescription = DefaultFrameworkDescription
	}
	if c.MaxClassesPerStep < 1 {
		c.MaxClassesPerStep = DefaultMaxClassesPerStep
	}
	return nil
}

// Option is a function that modifies Config.
type Option func(*Config)

// WithDepth sets the discovery depth.
func WithDepth(depth int) Option {
	return func(c *Config) {
		c.Depth = depth
	}
}

// WithModel sets the discovery model.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithJSONMode enables or disables provider JSON mode.
func WithJSONMode(enabled bool) Option {
	return func(c *Config) {
		c.JSONMode = enabled
	}
}

// WithRootNamespace sets the namespace prefix, e.g. `Acme\`.
func WithRootNamespace(ns string) Option {
	return func(c *Config) {
		c.RootNamespace = ns
	}
}

// WithFrameworkDescription sets the project description used in prompts.
func WithFrameworkDescription(desc string) Option {
	return func(c *Config) {
		c.FrameworkDescription = desc
	}
}

// WithMaxClassesPerStep sets the per-step breadth cap.
func WithMaxClassesPerStep(n int) Option {
	return func(c *Config) {
		c.MaxClassesPerStep = n
	}
}

// NewConfig creates a Config with the given options applied.
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	_ = cfg.Validate()
	return cfg
}
