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
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/aitestgen/cmd/aitestgen/config"
	"github.com/AleutianAI/aitestgen/services/llm"
	"github.com/AleutianAI/aitestgen/services/testgen/history"
)

const userSource = `<?php

namespace App\Models;

use App\Services\Greeter;

class User
{
    public function getFullName(): string
    {
        return (new Greeter())->greet($this->name);
    }

    public function isAdmin(): bool
    {
        return false;
    }
}
`

const greeterSource = `<?php

namespace App\Services;

class Greeter
{
    public function greet(string $name): string
    {
        return "Hello {$name}";
    }
}
`

const coverageXML = `<?xml version="1.0"?>
<phpunit xmlns="https://schema.phpunit.de/coverage/1.0">
  <file name="User.php" path="/Models">
    <totals>
      <lines total="14" comments="0" code="14" executable="4" executed="3" percent="75.00"/>
    </totals>
    <class name="App\Models\User" start="7" executable="4" executed="3" crap="1">
      <namespace name="App\Models"/>
      <method name="getFullName" signature="getFullName()" start="9" end="12" crap="1" executable="1" executed="1" coverage="100"/>
      <method name="isAdmin" signature="isAdmin()" start="14" end="17" crap="1" executable="1" executed="0" coverage="0"/>
    </class>
    <coverage>
      <line nr="11">
        <covered by="P\Tests\Unit\UserTest::__pest_evaluable_it_builds_the_full_name"/>
      </line>
    </coverage>
  </file>
</phpunit>
`

const generatedTest = "<?php\n\nit('builds the full name', function () {\n    expect(true)->toBeTrue();\n});\n"

// scriptedModel answers discovery prompts by the class in the stub and
// generation prompts with a fixed test file.
type scriptedModel struct {
	mu      sync.Mutex
	prompts []string
	models  []string
}

func (m *scriptedModel) Generate(_ context.Context, prompt string, params llm.GenerationParams) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.models = append(m.models, params.Model)
	m.mu.Unlock()

	switch {
	case params.Model == "claude-3-5-sonnet-20240620":
		return generatedTest, nil
	case strings.Contains(prompt, "class Greeter"):
		return "<final_output>{}</final_output>", nil
	case strings.Contains(prompt, "class User"):
		return `<scratchpad>uses Greeter</scratchpad><final_output>{"App\\Services\\Greeter": ["greet"]}</final_output>`, nil
	default:
		return "no tags", nil
	}
}

type harness struct {
	t          *testing.T
	projectDir string
	configPath string
	model      *scriptedModel
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	base := t.TempDir()
	projectDir := filepath.Join(base, "project")

	files := map[string]string{
		"composer.json":            `{"autoload": {"psr-4": {"App\\": "app/"}}}`,
		"app/Models/User.php":      userSource,
		"app/Services/Greeter.php": greeterSource,
		"coverage.xml":             coverageXML,
	}
	for rel, content := range files {
		path := filepath.Join(projectDir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := config.DefaultConfig()
	cfg.Project.Root = projectDir
	cfg.History.Dir = filepath.Join(base, "history")
	cfg.Telemetry.TraceExporter = "none"
	cfg.Telemetry.MetricExporter = "none"
	cfg.Logging.Level = "error"
	cfg.LLM.RequestsPerSecond = 0

	configPath := filepath.Join(base, "config.yaml")
	require.NoError(t, config.Save(configPath, &cfg, false))

	for _, k := range []string{"PROJECT_ROOT", "ROOT_NAMESPACE", "DISCOVERY_MODEL", "GENERATION_MODEL", "DISCOVERY_DEPTH", "OUTPUT_DIR", "DISK", "HISTORY_DIR", "LOG_LEVEL"} {
		t.Setenv(config.EnvPrefix+k, "")
	}

	return &harness{t: t, projectDir: projectDir, configPath: configPath, model: &scriptedModel{}}
}

// run executes the command line and returns stdout, stderr and the error.
func (h *harness) run(args ...string) (string, string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	env := &environment{
		out:    &out,
		errOut: &errOut,
		newLLM: func(*config.AitestgenConfig, *slog.Logger) (llm.LLMClient, error) {
			return h.model, nil
		},
	}
	cmd := newRootCmd(env)
	cmd.SetArgs(append([]string{"--config", h.configPath, "--plain"}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestGenerate_WritesTestFile(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("generate", `App\Models\User`, "getFullName")
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(h.projectDir, "storage", "app", "generated_tests", "User*Test.php"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Regexp(t, `User\d{14}Test\.php$`, matches[0])

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, generatedTest, string(data))

	assert.Contains(t, out, "OK: Test written to "+matches[0])
	assert.Contains(t, out, `App\Services\Greeter → greet`)

	require.Len(t, h.model.prompts, 3)
	assert.Equal(t, []string{"gpt-4o-mini", "gpt-4o-mini", "claude-3-5-sonnet-20240620"}, h.model.models)
	final := h.model.prompts[2]
	assert.Contains(t, final, "// Original Class\n")
	assert.Contains(t, final, "// Additional Classes\n")
	assert.Contains(t, final, "public function greet(string $name): string")
}

func TestGenerate_FlagsOverrideConfig(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("generate", `App\Models\User`, "isAdmin", "--depth", "0", "--output-dir", "tests/ai", "--print")
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(h.projectDir, "storage", "app", "tests", "ai", "User*Test.php"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	require.Len(t, h.model.prompts, 1, "depth 0 skips discovery calls")
	assert.Contains(t, out, "it('builds the full name'")
}

func TestGenerate_NoMethodsWithoutTerminal(t *testing.T) {
	h := newHarness(t)

	_, errOut, err := h.run("generate", `App\Models\User`)
	assert.ErrorIs(t, err, errNoMethods)
	assert.Contains(t, errOut, "ERROR: no methods given")
	assert.Empty(t, h.model.prompts)
}

func TestGenerate_RecordsHistory(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("generate", `App\Models\User`, "getFullName")
	require.NoError(t, err)

	out, _, err := h.run("history", "list", "--format", "json")
	require.NoError(t, err)

	var runs []history.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, `App\Models\User`, runs[0].ClassName)
	assert.Equal(t, []string{"getFullName"}, runs[0].Methods)
	assert.Equal(t, "gpt-4o-mini", runs[0].DiscoveryModel)
	assert.Equal(t, []string{"greet"}, runs[0].Dependencies[`App\Services\Greeter`])

	out, _, err = h.run("history", "show", runs[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "ID: "+runs[0].ID)
	assert.Contains(t, out, "Generation model: claude-3-5-sonnet-20240620")

	_, _, err = h.run("history", "show", "missing-id")
	assert.ErrorIs(t, err, history.ErrRunNotFound)
}

func TestDiscover_JSON(t *testing.T) {
	h := newHarness(t)

	out, errOut, err := h.run("discover", `App\Models\User`, "getFullName", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, errOut, "OK: Discovering dependencies of App\\Models\\User")

	var report struct {
		Class        string              `json:"class"`
		Dependencies map[string][]string `json:"dependencies"`
		Bundle       string              `json:"bundle"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, `App\Models\User`, report.Class)
	assert.Equal(t, map[string][]string{`App\Services\Greeter`: {"greet"}}, report.Dependencies)
	assert.True(t, strings.HasPrefix(report.Bundle, "// Original Class\n"))
	assert.Len(t, h.model.prompts, 2)
}

func TestDiscover_YAML(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("discover", `App\Models\User`, "getFullName", "--format", "yaml")
	require.NoError(t, err)
	assert.NotContains(t, out, "OK:")

	var report struct {
		Class        string              `yaml:"class"`
		Dependencies map[string][]string `yaml:"dependencies"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, `App\Models\User`, report.Class)
	assert.Equal(t, map[string][]string{`App\Services\Greeter`: {"greet"}}, report.Dependencies)
}

func TestDiscover_RootNamespace(t *testing.T) {
	h := newHarness(t)
	t.Setenv(config.EnvPrefix+"ROOT_NAMESPACE", `Acme\`)

	_, _, err := h.run("discover", `App\Models\User`, "getFullName", "--format", "json")
	require.NoError(t, err)

	require.Len(t, h.model.prompts, 1, "App\\Services\\Greeter is outside the root namespace")
	assert.Contains(t, h.model.prompts[0], `namespace starting with Acme\.`)
}

func TestDiscover_Text(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("discover", `App\Models\User`, "getFullName")
	require.NoError(t, err)
	assert.Contains(t, out, "App\\Services\\Greeter:\n  - greet\n")
	assert.Contains(t, out, "// Additional Classes")
}

func TestLocate(t *testing.T) {
	h := newHarness(t)

	t.Run("text", func(t *testing.T) {
		out, errOut, err := h.run("locate", `App\Models\User`, "isAdmin", "nope")
		require.NoError(t, err)
		assert.Contains(t, out, "Declared at line: 7")
		assert.Contains(t, out, "  - isAdmin (lines 14-17)")
		assert.Contains(t, errOut, "WARN: not found: nope")
	})

	t.Run("json with stub", func(t *testing.T) {
		out, _, err := h.run("locate", `App\Models\User`, "getFullName", "--format", "json")
		require.NoError(t, err)

		var loc struct {
			ClassName string `json:"class_name"`
			Methods   []struct {
				Name      string `json:"name"`
				StartLine int    `json:"start_line"`
			} `json:"methods"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &loc))
		assert.Equal(t, `App\Models\User`, loc.ClassName)
		require.Len(t, loc.Methods, 1)
		assert.Equal(t, 9, loc.Methods[0].StartLine)
	})

	t.Run("unknown class", func(t *testing.T) {
		_, errOut, err := h.run("locate", `App\Models\Ghost`, "x")
		assert.Error(t, err)
		assert.Contains(t, errOut, `Class "App\Models\Ghost" does not exist`)
	})

	assert.Empty(t, h.model.prompts)
}

func TestCoverage(t *testing.T) {
	h := newHarness(t)

	t.Run("text", func(t *testing.T) {
		out, _, err := h.run("coverage", "coverage.xml")
		require.NoError(t, err)
		assert.Contains(t, out, "Coverage: 75.00%")
		assert.Contains(t, out, `Class: App\Models\User`)
		assert.Contains(t, out, "Test suites:\n  - Tests\\Unit\\UserTest\n")
		assert.Contains(t, out, "Methods without full coverage:\n  - isAdmin\n")
	})

	t.Run("json", func(t *testing.T) {
		out, _, err := h.run("coverage", "coverage.xml", "--format", "json")
		require.NoError(t, err)

		var info map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &info))
		assert.Equal(t, 75.0, info["coverage_percentage"])
		assert.Equal(t, `App\Models`, info["namespace"])
	})

	t.Run("missing report", func(t *testing.T) {
		_, _, err := h.run("coverage", "nope.xml")
		assert.Error(t, err)
	})

	t.Run("bad format", func(t *testing.T) {
		_, _, err := h.run("coverage", "coverage.xml", "--format", "xml")
		assert.ErrorIs(t, err, errUnknownFormat)
	})
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	run := func(args ...string) error {
		var out bytes.Buffer
		cmd := newRootCmd(&environment{out: &out, errOut: &out, newLLM: buildLLM})
		cmd.SetArgs(append([]string{"--config", path, "--plain"}, args...))
		return cmd.Execute()
	}

	require.NoError(t, run("--project", "/srv/app", "init"))
	assert.ErrorIs(t, run("init"), config.ErrConfigExists)
	require.NoError(t, run("init", "--force"))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Project.Root)
}

func TestBuildLLM(t *testing.T) {
	prevSecrets := llm.SecretsDir
	llm.SecretsDir = t.TempDir()
	t.Cleanup(func() { llm.SecretsDir = prevSecrets })
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_API_KEY", "")

	t.Run("registers both providers", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "ak-test")
		cfg := config.DefaultConfig()
		cfg.LLM.Retries = 2

		client, err := buildLLM(&cfg, slog.Default())
		require.NoError(t, err)
		router, ok := client.(*llm.Router)
		require.True(t, ok)
		assert.True(t, router.Has(llm.ProviderOpenAI))
		assert.True(t, router.Has(llm.ProviderAnthropic))
		assert.False(t, router.Has(llm.ProviderOllama))
	})

	t.Run("missing key", func(t *testing.T) {
		cfg := config.DefaultConfig()
		_, err := buildLLM(&cfg, slog.Default())
		assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
	})

	t.Run("ollama needs no key", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Discovery.Model = "llama3.1"
		cfg.Generation.Model = "qwen2.5-coder"

		client, err := buildLLM(&cfg, slog.Default())
		require.NoError(t, err)
		assert.True(t, client.(*llm.Router).Has(llm.ProviderOllama))
	})
}

func TestWithoutVendor(t *testing.T) {
	got := withoutVendor([]string{"vendor/**", "node_modules/**"})
	assert.Equal(t, []string{"node_modules/**"}, got)
}
