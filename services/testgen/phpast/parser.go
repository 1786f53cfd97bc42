// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package phpast

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"
)

// Tree-sitter node types used by the walker.
const (
	nodeNamespaceDefinition = "namespace_definition"
	nodeNamespaceUse        = "namespace_use_declaration"
	nodeClassDeclaration    = "class_declaration"
	nodeTraitDeclaration    = "trait_declaration"
	nodeInterfaceDecl       = "interface_declaration"
	nodeEnumDeclaration     = "enum_declaration"
	nodeMethodDeclaration   = "method_declaration"
	nodeUseDeclaration      = "use_declaration"
	nodeBaseClause          = "base_clause"
	nodeAttributeList       = "attribute_list"
	nodeComment             = "comment"
	nodeName                = "name"
	nodeFunctionDefinition  = "function_definition"
)

// DefaultMaxFileSize is the largest source file Parse accepts.
const DefaultMaxFileSize = 5 * 1024 * 1024

// maxWalkDepth bounds recursion into nested statements.
const maxWalkDepth = 256

// Option configures a Parser.
type Option func(*Parser)

// WithMaxFileSize sets the maximum accepted source size in bytes.
func WithMaxFileSize(bytes int64) Option {
	return func(p *Parser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// WithLogger sets the logger used for parse diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Parser extracts type declarations from PHP source.
//
// Thread Safety:
//
//	Parser is safe for concurrent use. Each Parse call creates its own
//	tree-sitter parser, since a tree-sitter parser cannot be shared.
type Parser struct {
	maxFileSize int64
	logger      *slog.Logger
}

// NewParser creates a Parser with the given options.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts every class, trait, interface and enum declared in content.
//
// Description:
//
//	Walks the tree-sitter syntax tree while tracking the active namespace and
//	its use imports. Both the statement form (`namespace App;`) and the braced
//	form (`namespace App { ... }`) are supported. Parsing is error tolerant:
//	declarations that tree-sitter could recover are still returned and
//	File.HasErrors is set.
//
// Inputs:
//   - ctx: Checked before and after parsing. Parsing itself is not interruptible.
//   - path: File path recorded on the result and in errors.
//   - content: Raw PHP source. Must be valid UTF-8.
//
// Outputs:
//   - *File: Parsed declarations. Never nil on success.
//   - error: A *ParseError wrapping ErrEmptyContent, ErrInvalidContent,
//     ErrFileTooLarge, ErrParseFailed or the context error.
func (p *Parser) Parse(ctx context.Context, path string, content []byte) (*File, error) {
	ctx, span := startParseSpan(ctx, path, len(content))
	defer span.End()
	start := time.Now()

	file, err := p.parse(ctx, path, content)
	if err != nil {
		span.RecordError(err)
		recordParseMetrics(ctx, time.Since(start), 0, false)
		return nil, &ParseError{FilePath: path, Err: err}
	}

	recordParseMetrics(ctx, time.Since(start), len(file.Types), true)
	return file, nil
}

func (p *Parser) parse(ctx context.Context, path string, content []byte) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, ErrEmptyContent
	}
	if int64(len(content)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: not valid UTF-8", ErrInvalidContent)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(php.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root := tree.RootNode()
	file := &File{
		Path:      path,
		Imports:   make(map[string]string),
		HasErrors: root.HasError(),
	}
	if file.HasErrors {
		p.logger.Debug("php source has syntax errors",
			slog.String("file", path))
	}

	w := &walker{src: content, file: file, scope: &scope{imports: file.Imports}}
	w.walk(root, 0)

	return file, nil
}

// scope is the active namespace and its imports.
type scope struct {
	namespace string
	imports   map[string]string
}

// resolve turns a name as written in source into a fully qualified name.
func (s *scope) resolve(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, `\`) {
		return name[1:]
	}
	if strings.HasPrefix(strings.ToLower(name), `namespace\`) {
		return joinName(s.namespace, name[len(`namespace\`):])
	}

	first, rest, nested := strings.Cut(name, `\`)
	if fq, ok := s.imports[strings.ToLower(first)]; ok {
		if !nested {
			return fq
		}
		return fq + `\` + rest
	}
	return joinName(s.namespace, name)
}

func joinName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + `\` + name
}

type walker struct {
	src   []byte
	file  *File
	scope *scope
}

func (w *walker) walk(node *sitter.Node, depth int) {
	if node == nil || depth > maxWalkDepth {
		return
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)

		switch child.Type() {
		case nodeNamespaceDefinition:
			w.enterNamespace(child, depth)
		case nodeNamespaceUse:
			for alias, fq := range parseImports(child.Content(w.src)) {
				w.scope.imports[alias] = fq
			}
		case nodeClassDeclaration:
			w.addType(child, KindClass)
		case nodeTraitDeclaration:
			w.addType(child, KindTrait)
		case nodeInterfaceDecl:
			w.addType(child, KindInterface)
		case nodeEnumDeclaration:
			w.addType(child, KindEnum)
		case nodeFunctionDefinition, nodeComment:
			// Function bodies cannot declare named types worth indexing.
		default:
			w.walk(child, depth+1)
		}
	}
}

// enterNamespace handles both namespace forms. A statement namespace applies
// to the siblings that follow; a braced namespace applies to its body only.
func (w *walker) enterNamespace(node *sitter.Node, depth int) {
	name := ""
	if n := node.ChildByFieldName("name"); n != nil {
		name = NormalizeName(n.Content(w.src))
	}

	next := &scope{namespace: name, imports: make(map[string]string)}
	if w.file.Namespace == "" {
		w.file.Namespace = name
		w.file.Imports = next.imports
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		w.scope = next
		return
	}

	outer := w.scope
	w.scope = next
	w.walk(body, depth+1)
	w.scope = outer
}

func (w *walker) addType(node *sitter.Node, kind Kind) {
	name := ""
	if n := node.ChildByFieldName("name"); n != nil {
		name = n.Content(w.src)
	}
	if name == "" {
		return
	}

	decl := &TypeDecl{
		Kind:      kind,
		Name:      name,
		FQCN:      joinName(w.scope.namespace, name),
		StartLine: declarationStartLine(node),
		EndLine:   int(node.EndPoint().Row) + 1,
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == nodeBaseClause && kind == KindClass {
			decl.Parent = w.scope.resolve(firstListedName(child.Content(w.src), "extends"))
		}
	}

	if body := node.ChildByFieldName("body"); body != nil {
		w.collectMembers(body, decl)
	}

	w.file.Types = append(w.file.Types, decl)
}

func (w *walker) collectMembers(body *sitter.Node, decl *TypeDecl) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)

		switch member.Type() {
		case nodeMethodDeclaration:
			n := member.ChildByFieldName("name")
			if n == nil {
				continue
			}
			decl.Methods = append(decl.Methods, MethodDecl{
				Name:      n.Content(w.src),
				StartLine: methodStartLine(member),
				EndLine:   int(member.EndPoint().Row) + 1,
			})
		case nodeUseDeclaration:
			for _, t := range parseTraitUse(member.Content(w.src)) {
				decl.Traits = append(decl.Traits, w.scope.resolve(t))
			}
		}
	}
}

// declarationStartLine returns the 1-based line of the first child that is
// not an attribute group, which is where reflection reports a declaration
// to start.
func declarationStartLine(node *sitter.Node) int {
	return firstChildLine(node, nodeAttributeList, nodeComment)
}

// methodStartLine returns the 1-based line where a method's span begins.
// Leading attribute groups belong to the span so stubs keep them.
func methodStartLine(node *sitter.Node) int {
	return firstChildLine(node, nodeComment)
}

func firstChildLine(node *sitter.Node, skip ...string) int {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if slices.Contains(skip, child.Type()) {
			continue
		}
		return int(child.StartPoint().Row) + 1
	}
	return int(node.StartPoint().Row) + 1
}
