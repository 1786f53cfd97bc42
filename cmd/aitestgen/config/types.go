// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the aitestgen YAML configuration.
package config

import (
	"time"

	"github.com/AleutianAI/aitestgen/services/telemetry"
	"github.com/AleutianAI/aitestgen/services/testgen/discovery"
	"github.com/AleutianAI/aitestgen/services/testgen/generator"
	"github.com/AleutianAI/aitestgen/services/testgen/storage"
)

// CurrentConfigVersion is written into new config files.
const CurrentConfigVersion = "1"

type AitestgenConfig struct {
	Meta MetaConfig `yaml:"meta"`

	// Project: the PHP project being tested
	Project ProjectConfig `yaml:"project"`

	// Discovery: the dependency walk
	Discovery DiscoveryConfig `yaml:"discovery"`

	// Generation: the final test-writing call
	Generation GenerationConfig `yaml:"generation"`

	// LLM: provider endpoints and call limits
	LLM LLMConfig `yaml:"llm"`

	Storage StorageConfig `yaml:"storage"`

	History HistoryConfig `yaml:"history"`

	Telemetry telemetry.Config `yaml:"telemetry"`

	Logging LoggingConfig `yaml:"logging"`
}

type MetaConfig struct {
	Version string `yaml:"version"`
}

type ProjectConfig struct {
	Root string `yaml:"root" validate:"required"`

	// SourceRoots are indexed when composer.json does not resolve a class.
	SourceRoots []string `yaml:"source_roots"`

	// IncludeVendor indexes vendor/ as well.
	IncludeVendor bool `yaml:"include_vendor"`

	// RootNamespace limits discovery to project classes, e.g. App\.
	RootNamespace string `yaml:"root_namespace"`

	// FrameworkDescription is inserted into the discovery prompt.
	FrameworkDescription string `yaml:"framework_description"`
}

type DiscoveryConfig struct {
	Model             string `yaml:"model" validate:"required"`
	Depth             int    `yaml:"depth" validate:"gte=0,lte=10"`
	MaxClassesPerStep int    `yaml:"max_classes_per_step" validate:"gte=0"`
	JSONMode          bool   `yaml:"json_mode"`
}

type GenerationConfig struct {
	Model            string `yaml:"model" validate:"required"`
	OutputDir        string `yaml:"output_dir" validate:"required"`
	Extension        string `yaml:"extension" validate:"required,alphanum"`
	Disk             string `yaml:"disk" validate:"required,oneof=local base_path gcs"`
	FrameworkVersion string `yaml:"framework_version"`
	TestRunner       string `yaml:"test_runner"`
	MaxTokens        int    `yaml:"max_tokens" validate:"gte=0"`
}

type LLMConfig struct {
	OpenAIBaseURL     string        `yaml:"openai_base_url,omitempty" validate:"omitempty,url"`
	AnthropicBaseURL  string        `yaml:"anthropic_base_url,omitempty" validate:"omitempty,url"`
	OllamaURL         string        `yaml:"ollama_url,omitempty" validate:"omitempty,url"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int           `yaml:"burst" validate:"gte=0"`
	Retries           uint          `yaml:"retries" validate:"lte=10"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Timeout           time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	// LocalRoot is the "local" disk root, relative to the project root.
	LocalRoot string    `yaml:"local_root" validate:"required"`
	GCS       GCSConfig `yaml:"gcs"`
}

type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file,omitempty" validate:"omitempty,filepath"`
	Endpoint        string `yaml:"endpoint,omitempty" validate:"omitempty,url"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir,omitempty"`
}

// Enabled reports whether the GCS disk should be registered.
func (g GCSConfig) Enabled() bool {
	return g.Bucket != ""
}

func DefaultConfig() AitestgenConfig {
	return AitestgenConfig{
		Meta: MetaConfig{Version: CurrentConfigVersion},
		Project: ProjectConfig{
			Root:                 ".",
			SourceRoots:          []string{"."},
			RootNamespace:        discovery.DefaultRootNamespace,
			FrameworkDescription: discovery.DefaultFrameworkDescription,
		},
		Discovery: DiscoveryConfig{
			Model:             discovery.DefaultModel,
			Depth:             discovery.DefaultDepth,
			MaxClassesPerStep: discovery.DefaultMaxClassesPerStep,
		},
		Generation: GenerationConfig{
			Model:            generator.DefaultModel,
			OutputDir:        generator.DefaultOutputDir,
			Extension:        generator.DefaultExtension,
			Disk:             storage.DiskLocal,
			FrameworkVersion: generator.DefaultFrameworkVersion,
			TestRunner:       generator.DefaultTestRunner,
		},
		LLM: LLMConfig{
			RequestsPerSecond: 2,
			Burst:             1,
			RetryInterval:     2 * time.Second,
			Timeout:           5 * time.Minute,
		},
		Storage: StorageConfig{
			LocalRoot: "storage/app",
		},
		History: HistoryConfig{
			Enabled: true,
			Dir:     "~/.aitestgen/history",
		},
		Telemetry: telemetry.DefaultConfig(),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DiscoveryOptions converts the discovery and project sections.
func (c *AitestgenConfig) DiscoveryOptions() []discovery.Option {
	return []discovery.Option{
		discovery.WithModel(c.Discovery.Model),
		discovery.WithDepth(c.Discovery.Depth),
		discovery.WithMaxClassesPerStep(c.Discovery.MaxClassesPerStep),
		discovery.WithJSONMode(c.Discovery.JSONMode),
		discovery.WithRootNamespace(c.Project.RootNamespace),
		discovery.WithFrameworkDescription(c.Project.FrameworkDescription),
	}
}

// GeneratorConfig converts the generation section.
func (c *AitestgenConfig) GeneratorConfig() *generator.Config {
	return generator.NewConfig(
		generator.WithModel(c.Generation.Model),
		generator.WithOutputDir(c.Generation.OutputDir),
		generator.WithExtension(c.Generation.Extension),
		generator.WithDisk(c.Generation.Disk),
		generator.WithFrameworkVersion(c.Generation.FrameworkVersion),
		generator.WithTestRunner(c.Generation.TestRunner),
		generator.WithMaxTokens(c.Generation.MaxTokens),
	)
}
