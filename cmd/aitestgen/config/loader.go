// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AITESTGEN_"

var (
	// ErrConfigExists is returned by Save when the file exists and
	// overwrite was not requested.
	ErrConfigExists = errors.New("config file already exists")

	// ErrInvalidConfig wraps validation failures.
	ErrInvalidConfig = errors.New("invalid config")
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// DefaultPath returns ~/.aitestgen/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".aitestgen", "config.yaml"), nil
}

// Load reads the config at path, or DefaultPath when path is empty.
//
// A missing file is not an error: the defaults are used. Values from the
// file are layered over the defaults, AITESTGEN_* environment variables
// are layered over the file and the result is validated.
func Load(path string) (*AitestgenConfig, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse the config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read the config file %w", err)
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags of cfg.
func Validate(cfg *AitestgenConfig) error {
	if err := configValidator().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg *AitestgenConfig, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

type envBinding struct {
	name string
	set  func(cfg *AitestgenConfig, v string) error
}

var envBindings = []envBinding{
	{"PROJECT_ROOT", func(c *AitestgenConfig, v string) error { c.Project.Root = v; return nil }},
	{"ROOT_NAMESPACE", func(c *AitestgenConfig, v string) error { c.Project.RootNamespace = v; return nil }},
	{"DISCOVERY_MODEL", func(c *AitestgenConfig, v string) error { c.Discovery.Model = v; return nil }},
	{"DISCOVERY_DEPTH", func(c *AitestgenConfig, v string) error { return setInt(&c.Discovery.Depth, v) }},
	{"MAX_CLASSES_PER_STEP", func(c *AitestgenConfig, v string) error { return setInt(&c.Discovery.MaxClassesPerStep, v) }},
	{"GENERATION_MODEL", func(c *AitestgenConfig, v string) error { c.Generation.Model = v; return nil }},
	{"OUTPUT_DIR", func(c *AitestgenConfig, v string) error { c.Generation.OutputDir = v; return nil }},
	{"DISK", func(c *AitestgenConfig, v string) error { c.Generation.Disk = v; return nil }},
	{"OLLAMA_URL", func(c *AitestgenConfig, v string) error { c.LLM.OllamaURL = v; return nil }},
	{"LLM_RETRIES", func(c *AitestgenConfig, v string) error {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return err
		}
		c.LLM.Retries = uint(n)
		return nil
	}},
	{"LLM_TIMEOUT", func(c *AitestgenConfig, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.LLM.Timeout = d
		return nil
	}},
	{"GCS_BUCKET", func(c *AitestgenConfig, v string) error { c.Storage.GCS.Bucket = v; return nil }},
	{"HISTORY_DIR", func(c *AitestgenConfig, v string) error { c.History.Dir = v; return nil }},
	{"LOG_LEVEL", func(c *AitestgenConfig, v string) error { c.Logging.Level = strings.ToLower(v); return nil }},
}

// ApplyEnv layers AITESTGEN_* variables over cfg. lookup is usually
// os.LookupEnv.
func ApplyEnv(cfg *AitestgenConfig, lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		v, ok := lookup(EnvPrefix + b.name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := b.set(cfg, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%w: %s%s=%q: %v", ErrInvalidConfig, EnvPrefix, b.name, v, err)
		}
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

// ExpandPath resolves a leading ~ to the home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
