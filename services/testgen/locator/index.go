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
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// lookupIndex returns the file declaring fqcn according to the project
// index, building the index on first use. An unknown class yields "".
func (l *Locator) lookupIndex(ctx context.Context, fqcn string) (string, error) {
	l.indexMu.Lock()
	defer l.indexMu.Unlock()

	if l.index == nil {
		index, err := l.buildIndex(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrIndexFailed, err)
		}
		l.index = index
	}
	return l.index[strings.ToLower(fqcn)], nil
}

// Invalidate drops the project index so the next miss rebuilds it.
func (l *Locator) Invalidate() {
	l.indexMu.Lock()
	l.index = nil
	l.indexMu.Unlock()
}

// buildIndex parses every PHP file under the source roots in parallel and
// maps each declared type (lowercased) to its file. When two files declare
// the same type the lexically smaller path wins, so the result does not
// depend on scheduling.
func (l *Locator) buildIndex(ctx context.Context) (map[string]string, error) {
	start := time.Now()

	paths, err := l.sourceFiles()
	if err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		index = make(map[string]string)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for _, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			file, err := l.loadFile(gctx, p)
			if err != nil {
				l.logger.Debug("skipping unparsable file",
					slog.String("file", p),
					slog.String("error", err.Error()))
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			for _, t := range file.Types {
				key := strings.ToLower(t.FQCN)
				if existing, ok := index[key]; !ok || p < existing {
					index[key] = p
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.Info("built project index",
		slog.String("root", l.root),
		slog.Int("files", len(paths)),
		slog.Int("types", len(index)),
		slog.Duration("duration", time.Since(start)))

	return index, nil
}

// sourceFiles globs **/*.php under every source root, minus excludes.
func (l *Locator) sourceFiles() ([]string, error) {
	fsys := afero.NewIOFS(afero.NewBasePathFs(l.fs, l.root))

	seen := make(map[string]bool)
	var out []string

	for _, root := range l.sourceRoots {
		pattern := path.Join(filepath.ToSlash(root), "**", "*.php")
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("globbing %s: %w", pattern, err)
		}

		for _, rel := range matches {
			if l.excluded(rel) || seen[rel] {
				continue
			}
			seen[rel] = true
			out = append(out, filepath.Join(l.root, filepath.FromSlash(rel)))
		}
	}

	sort.Strings(out)
	return out, nil
}

func (l *Locator) excluded(rel string) bool {
	for _, pattern := range l.excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
