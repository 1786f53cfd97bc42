// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generator

import "strings"

// Default values for Config.
const (
	DefaultModel            = "claude-3-5-sonnet-20240620"
	DefaultOutputDir        = "generated_tests"
	DefaultExtension        = "php"
	DefaultDisk             = "local"
	DefaultFrameworkVersion = "Laravel (V11)"
	DefaultTestRunner       = "PEST"
)

// Config holds configuration for test generation.
type Config struct {
	// Model is the model identifier for the final generation call.
	// Default: claude-3-5-sonnet-20240620
	Model string

	// OutputDir is the directory on the disk that receives test files.
	// Default: generated_tests
	OutputDir string

	// Extension is the test file extension without the dot.
	// Default: php
	Extension string

	// Disk names the storage disk that receives test files.
	// Default: local
	Disk string

	// FrameworkVersion names the framework in the prompt.
	// Default: Laravel (V11)
	FrameworkVersion string

	// TestRunner names the test runner whose idiom the prompt asks for.
	// Default: PEST
	TestRunner string

	// MaxTokens caps the generated response. Zero leaves the provider default.
	MaxTokens int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Model:            DefaultModel,
		OutputDir:        DefaultOutputDir,
		Extension:        DefaultExtension,
		Disk:             DefaultDisk,
		FrameworkVersion: DefaultFrameworkVersion,
		TestRunner:       DefaultTestRunner,
	}
}

// Validate fills empty fields with defaults.
//
// Outputs:
//
//	error - Always nil; invalid fields are replaced with defaults
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		c.Model = DefaultModel
	}
	c.OutputDir = strings.Trim(strings.TrimSpace(c.OutputDir), "/")
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	c.Extension = strings.TrimPrefix(strings.TrimSpace(c.Extension), ".")
	if c.Extension == "" {
		c.Extension = DefaultExtension
	}
	if strings.TrimSpace(c.Disk) == "" {
		c.Disk = DefaultDisk
	}
	if strings.TrimSpace(c.FrameworkVersion) == "" {
		c.FrameworkVersion = DefaultFrameworkVersion
	}
	if strings.TrimSpace(c.TestRunner) == "" {
		c.TestRunner = DefaultTestRunner
	}
	if c.MaxTokens < 0 {
		c.MaxTokens = 0
	}
	return nil
}

// Option is a function that modifies Config.
type Option func(*Config)

// WithModel sets the generation model.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithOutputDir sets the output directory on the disk.
func WithOutputDir(dir string) Option {
	return func(c *Config) {
		c.OutputDir = dir
	}
}

// WithExtension sets the test file extension.
func WithExtension(ext string) Option {
	return func(c *Config) {
		c.Extension = ext
	}
}

// WithDisk sets the storage disk name.
func WithDisk(name string) Option {
	return func(c *Config) {
		c.Disk = name
	}
}

// WithFrameworkVersion sets the framework named in the prompt.
func WithFrameworkVersion(v string) Option {
	return func(c *Config) {
		c.FrameworkVersion = v
	}
}

// WithTestRunner sets the test runner named in the prompt.
func WithTestRunner(runner string) Option {
	return func(c *Config) {
		c.TestRunner = runner
	}
}

// WithMaxTokens caps the generated response length.
func WithMaxTokens(n int) Option {
	return func(c *Config) {
		c.MaxTokens = n
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
