// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package locator

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// psr4Entry maps a namespace prefix to the directories that hold it.
type psr4Entry struct {
	prefix string
	dirs   []string
}

type composerManifest struct {
	Autoload    composerAutoload `json:"autoload"`
	AutoloadDev composerAutoload `json:"autoload-dev"`
}

type composerAutoload struct {
	PSR4 map[string]json.RawMessage `json:"psr-4"`
}

// loadPSR4 reads the PSR-4 autoload map from composer.json in root.
// A missing manifest yields no entries and no error.
func loadPSR4(fs afero.Fs, root string) ([]psr4Entry, error) {
	manifestPath := filepath.Join(root, "composer.json")

	exists, err := afero.Exists(fs, manifestPath)
	if err != nil || !exists {
		return nil, err
	}

	data, err := afero.ReadFile(fs, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", manifestPath, err)
	}

	var manifest composerManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", manifestPath, err)
	}

	var entries []psr4Entry
	for _, section := range []composerAutoload{manifest.Autoload, manifest.AutoloadDev} {
		for prefix, raw := range section.PSR4 {
			dirs, err := decodeDirs(raw)
			if err != nil {
				return nil, fmt.Errorf("psr-4 entry %q: %w", prefix, err)
			}
			entries = append(entries, psr4Entry{prefix: prefix, dirs: dirs})
		}
	}

	// Longest prefix first so App\Models\ wins over App\.
	sort.SliceStable(entries, func(i, j int) bool {
		if len(entries[i].prefix) != len(entries[j].prefix) {
			return len(entries[i].prefix) > len(entries[j].prefix)
		}
		return entries[i].prefix < entries[j].prefix
	})
	return entries, nil
}

func decodeDirs(raw json.RawMessage) ([]string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, err
	}
	return many, nil
}

// candidates returns the file paths PSR-4 would load fqcn from, in order.
func candidates(entries []psr4Entry, root, fqcn string) []string {
	var out []string
	for _, e := range entries {
		if e.prefix != "" && !strings.HasPrefix(fqcn, e.prefix) {
			continue
		}
		rel := strings.ReplaceAll(strings.TrimPrefix(fqcn, e.prefix), `\`, "/") + ".php"
		for _, dir := range e.dirs {
			out = append(out, filepath.Join(root, filepath.FromSlash(dir), filepath.FromSlash(rel)))
		}
	}
	return out
}
