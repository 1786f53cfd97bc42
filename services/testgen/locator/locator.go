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
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/AleutianAI/aitestgen/services/testgen/phpast"
)

// maxAncestorDepth bounds the parent chain walk.
const maxAncestorDepth = 32

// DefaultExcludes are glob patterns skipped when indexing a project.
var DefaultExcludes = []string{"vendor/**", "node_modules/**", "storage/**", "bootstrap/cache/**"}

// Option configures a Locator.
type Option func(*Locator)

// WithFS sets the filesystem sources are read from. Defaults to the OS.
func WithFS(fs afero.Fs) Option {
	return func(l *Locator) {
		if fs != nil {
			l.fs = fs
		}
	}
}

// WithSourceRoots sets the directories, relative to the project root, that
// the fallback index scans. Defaults to the whole project.
func WithSourceRoots(roots ...string) Option {
	return func(l *Locator) {
		if len(roots) > 0 {
			l.sourceRoots = roots
		}
	}
}

// WithExcludes replaces the glob patterns the fallback index skips.
func WithExcludes(patterns ...string) Option {
	return func(l *Locator) {
		l.excludes = patterns
	}
}

// WithConcurrency sets how many files the index parses at once.
func WithConcurrency(n int) Option {
	return func(l *Locator) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locator) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Locator resolves classes in one PHP project.
//
// Description:
//
//	Classes are resolved through the composer.json PSR-4 map first and, when
//	that misses, through an index of every PHP file under the configured
//	source roots. The index is built lazily on the first miss. Parsed files
//	are cached and re-parsed when their modification time or size changes,
//	so repeated lookups always reflect what is on disk.
//
// Thread Safety:
//
//	Locator is safe for concurrent use.
type Locator struct {
	root        string
	fs          afero.Fs
	parser      *phpast.Parser
	logger      *slog.Logger
	sourceRoots []string
	excludes    []string
	concurrency int

	psr4Once sync.Once
	psr4     []psr4Entry

	mu    sync.Mutex
	files map[string]cachedFile

	indexMu sync.Mutex
	index   map[string]string
}

type cachedFile struct {
	modTime time.Time
	size    int64
	file    *phpast.File
}

// New creates a Locator for the project rooted at root.
func New(root string, opts ...Option) *Locator {
	l := &Locator{
		root:        root,
		fs:          afero.NewOsFs(),
		logger:      slog.Default(),
		sourceRoots: []string{"."},
		excludes:    DefaultExcludes,
		concurrency: 8,
		files:       make(map[string]cachedFile),
	}
	for _, opt := range opts {
		opt(l)
	}
	if abs, err := filepath.Abs(root); err == nil {
		l.root = abs
	}
	l.parser = phpast.NewParser(phpast.WithLogger(l.logger))
	return l
}

// Root returns the project root.
func (l *Locator) Root() string {
	return l.root
}

// LocateMethods resolves a class and the subset of methods that exist on it.
//
// Description:
//
//	Each requested method is attributed, in request order, to exactly one
//	place: the class itself when the class declares it, otherwise the first
//	used trait (searched depth-first through nested traits) that declares
//	it, otherwise the nearest ancestor class or ancestor trait. Methods
//	found on traits or ancestors are grouped per declaring type together
//	with that type's own file path. Methods that exist nowhere are skipped.
//
// Inputs:
//   - ctx: Cancels file parsing and index building.
//   - className: Fully qualified class name. A leading backslash is allowed.
//   - methods: Method names to locate.
//
// Outputs:
//   - *MethodLocation: Location metadata. Never nil when err is nil.
//   - error: ErrEmptyClassName, ErrClassNotFound, ErrIndexFailed or a
//     context error.
func (l *Locator) LocateMethods(ctx context.Context, className string, methods []string) (*MethodLocation, error) {
	className = phpast.NormalizeName(className)
	if className == "" {
		return nil, ErrEmptyClassName
	}

	decl, path, err := l.resolve(ctx, className)
	if err != nil {
		return nil, err
	}

	loc := &MethodLocation{
		ClassName:      decl.FQCN,
		FilePath:       path,
		ClassStartLine: decl.StartLine,
		Methods:        []MethodInfo{},
		Traits:         []TraitMethods{},
	}

	for _, name := range methods {
		if m, ok := decl.Method(name); ok {
			loc.Methods = append(loc.Methods, toInfo(m))
			continue
		}

		if owner, ownerPath, m, ok := l.findInTraits(ctx, decl.Traits, name, map[string]bool{}); ok {
			g := loc.group(owner, OwnerTrait, ownerPath)
			g.Methods = append(g.Methods, toInfo(m))
			continue
		}

		if owner, kind, ownerPath, m, ok := l.findInAncestors(ctx, decl, name); ok {
			g := loc.group(owner, kind, ownerPath)
			g.Methods = append(g.Methods, toInfo(m))
			continue
		}

		l.logger.Debug("method not found on class",
			slog.String("class", className),
			slog.String("method", name))
	}

	return loc, nil
}

// ClassMethods lists every method callable on the class from its own body,
// its traits and its ancestors, without duplicates.
func (l *Locator) ClassMethods(ctx context.Context, className string) ([]string, error) {
	decl, _, err := l.resolve(ctx, phpast.NormalizeName(className))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var names []string
	add := func(t *phpast.TypeDecl) {
		for _, m := range t.Methods {
			key := strings.ToLower(m.Name)
			if !seen[key] {
				seen[key] = true
				names = append(names, m.Name)
			}
		}
	}

	current := decl
	for depth := 0; current != nil && depth < maxAncestorDepth; depth++ {
		add(current)
		l.walkTraits(ctx, current.Traits, map[string]bool{}, add)
		if current.Parent == "" {
			break
		}
		current, _, err = l.resolve(ctx, current.Parent)
		if err != nil {
			break
		}
	}
	return names, nil
}

// findInTraits searches traits depth-first for the type that declares name.
func (l *Locator) findInTraits(ctx context.Context, traits []string, name string, visited map[string]bool) (string, string, phpast.MethodDecl, bool) {
	for _, traitName := range traits {
		key := strings.ToLower(traitName)
		if visited[key] {
			continue
		}
		visited[key] = true

		trait, path, err := l.resolve(ctx, traitName)
		if err != nil {
			l.logger.Debug("trait not resolvable",
				slog.String("trait", traitName),
				slog.String("error", err.Error()))
			continue
		}
		if m, ok := trait.Method(name); ok {
			return trait.FQCN, path, m, true
		}
		if owner, ownerPath, m, ok := l.findInTraits(ctx, trait.Traits, name, visited); ok {
			return owner, ownerPath, m, true
		}
	}
	return "", "", phpast.MethodDecl{}, false
}

// findInAncestors walks the parent chain. A method declared by the ancestor
// itself is reported as OwnerParent; one declared by a trait the ancestor
// uses is reported as OwnerTrait.
func (l *Locator) findInAncestors(ctx context.Context, decl *phpast.TypeDecl, name string) (string, OwnerKind, string, phpast.MethodDecl, bool) {
	parentName := decl.Parent
	for depth := 0; parentName != "" && depth < maxAncestorDepth; depth++ {
		parent, path, err := l.resolve(ctx, parentName)
		if err != nil {
			l.logger.Debug("ancestor not resolvable",
				slog.String("class", parentName),
				slog.String("error", err.Error()))
			break
		}
		if m, ok := parent.Method(name); ok {
			return parent.FQCN, OwnerParent, path, m, true
		}
		if owner, ownerPath, m, ok := l.findInTraits(ctx, parent.Traits, name, map[string]bool{}); ok {
			return owner, OwnerTrait, ownerPath, m, true
		}
		parentName = parent.Parent
	}
	return "", "", "", phpast.MethodDecl{}, false
}

func (l *Locator) walkTraits(ctx context.Context, traits []string, visited map[string]bool, fn func(*phpast.TypeDecl)) {
	for _, traitName := range traits {
		key := strings.ToLower(traitName)
		if visited[key] {
			continue
		}
		visited[key] = true
		trait, _, err := l.resolve(ctx, traitName)
		if err != nil {
			continue
		}
		fn(trait)
		l.walkTraits(ctx, trait.Traits, visited, fn)
	}
}

// resolve finds the declaration of fqcn and the file it lives in.
func (l *Locator) resolve(ctx context.Context, fqcn string) (*phpast.TypeDecl, string, error) {
	fqcn = phpast.NormalizeName(fqcn)

	l.psr4Once.Do(func() {
		entries, err := loadPSR4(l.fs, l.root)
		if err != nil {
			l.logger.Warn("ignoring composer autoload map",
				slog.String("root", l.root),
				slog.String("error", err.Error()))
		}
		l.psr4 = entries
	})

	for _, candidate := range candidates(l.psr4, l.root, fqcn) {
		file, err := l.loadFile(ctx, candidate)
		if err != nil {
			continue
		}
		if decl, ok := file.Type(fqcn); ok {
			return decl, candidate, nil
		}
	}

	path, err := l.lookupIndex(ctx, fqcn)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		file, err := l.loadFile(ctx, path)
		if err == nil {
			if decl, ok := file.Type(fqcn); ok {
				return decl, path, nil
			}
		}
	}

	return nil, "", fmt.Errorf("%w: Class \"%s\" does not exist", ErrClassNotFound, fqcn)
}

// loadFile parses path, reusing the cached result while the file is unchanged.
func (l *Locator) loadFile(ctx context.Context, path string) (*phpast.File, error) {
	info, err := l.fs.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w", path, os.ErrInvalid)
	}

	l.mu.Lock()
	cached, ok := l.files[path]
	l.mu.Unlock()
	if ok && cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
		return cached.file, nil
	}

	content, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, err
	}

	file, err := l.parser.Parse(ctx, path, content)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.files[path] = cachedFile{modTime: info.ModTime(), size: info.Size(), file: file}
	l.mu.Unlock()

	return file, nil
}

func toInfo(m phpast.MethodDecl) MethodInfo {
	return MethodInfo{Name: m.Name, StartLine: m.StartLine, EndLine: m.EndLine}
}
