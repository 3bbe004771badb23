package worker

import (
	"context"
	"log/slog"
	"strings"

	groovy "github.com/alexaandru/go-sitter-forest/groovy"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/groovy-tools/gls/internal/parse"
)

// SitterBackend parses scripts in-process with a tree-sitter grammar. It is
// much cheaper than the JVM worker but produces structure only — no type
// resolution — so it serves lightweight indexing parses and acts as the
// fallback worker when no JVM worker is configured.
type SitterBackend struct {
	lang   *tree_sitter.Language
	logger *slog.Logger
}

// NewSitterBackend creates a tree-sitter backed parse worker.
func NewSitterBackend(logger *slog.Logger) *SitterBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &SitterBackend{
		lang:   tree_sitter.NewLanguage(groovy.GetLanguage()),
		logger: logger,
	}
}

// typeKinds and methodKinds match declaration nodes across grammar
// revisions; the grammar has renamed these nodes before.
var (
	typeKinds   = map[string]bool{"class_declaration": true, "class_definition": true}
	methodKinds = map[string]bool{"method_declaration": true, "function_definition": true, "function_declaration": true}
	fieldKinds  = map[string]bool{"field_declaration": true, "variable_definition": true, "property_declaration": true}
)

func (b *SitterBackend) Parse(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(b.lang); err != nil {
		return nil, parse.NewBackendError(parse.KindInvalidState, "set grammar", err)
	}

	src := []byte(req.Content)
	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, parse.NewBackendError(parse.KindUnexpected, "parser produced no tree", nil)
	}
	defer tree.Close()

	root := tree.RootNode()
	module := &parse.Module{}
	collectTypes(root, src, module)

	diagnostics := collectErrors(root)

	return &parse.Outcome{
		AST:         module,
		Diagnostics: diagnostics,
		Model:       module,
		Successful:  len(diagnostics) == 0,
	}, nil
}

// collectTypes gathers top-level type declarations and their members into
// the module model. Depth is bounded so local classes inside method bodies
// never count as top-level.
func collectTypes(root *tree_sitter.Node, src []byte, module *parse.Module) {
	var walk func(n *tree_sitter.Node, depth int)
	walk = func(n *tree_sitter.Node, depth int) {
		if depth > 1 {
			return
		}

		for i := uint(0); i < uint(n.ChildCount()); i++ {
			child := n.Child(i)

			if typeKinds[child.Kind()] {
				module.Types = append(module.Types, typeDecl(child, src))
				continue
			}

			// Declarations can hide one level down (e.g. inside a
			// package-level grouping node).
			walk(child, depth+1)
		}
	}
	walk(root, 0)
}

func typeDecl(n *tree_sitter.Node, src []byte) parse.TypeDecl {
	decl := parse.TypeDecl{
		Name:       declName(n, src),
		Superclass: superclassName(n, src),
		Range:      nodeRange(n),
	}

	if body := childByKind(n, "class_body"); body != nil {
		for i := uint(0); i < uint(body.ChildCount()); i++ {
			member := body.Child(i)
			kind := member.Kind()

			switch {
			case methodKinds[kind]:
				decl.Declarations = append(decl.Declarations, parse.Declaration{
					Name:      declName(member, src),
					Kind:      parse.DeclMethod,
					Range:     nodeRange(member),
					Container: decl.Name,
				})
			case fieldKinds[kind]:
				decl.Declarations = append(decl.Declarations, parse.Declaration{
					Name:      declName(member, src),
					Kind:      parse.DeclField,
					Range:     nodeRange(member),
					Container: decl.Name,
				})
			}
		}
	}

	return decl
}

// superclassName returns the extended type's simple name, or "".
func superclassName(n *tree_sitter.Node, src []byte) string {
	super := childByKind(n, "superclass")
	if super == nil {
		super = childByKind(n, "superclasses")
	}
	if super == nil {
		return ""
	}

	// The superclass node wraps "extends <type>"; the last identifier-ish
	// child is the type name.
	var name string
	for i := uint(0); i < uint(super.ChildCount()); i++ {
		c := super.Child(i)
		switch c.Kind() {
		case "identifier", "type_identifier", "scoped_type_identifier", "scoped_identifier":
			name = nodeText(c, src)
		}
	}

	if name == "" {
		name = strings.TrimSpace(strings.TrimPrefix(nodeText(super, src), "extends"))
	}

	return name
}

// declName finds the identifier naming a declaration node.
func declName(n *tree_sitter.Node, src []byte) string {
	for _, kind := range []string{"identifier", "type_identifier", "name"} {
		if c := childByKind(n, kind); c != nil {
			return nodeText(c, src)
		}
	}

	return ""
}

// collectErrors turns tree-sitter ERROR nodes into syntax diagnostics.
func collectErrors(root *tree_sitter.Node) []parse.Diagnostic {
	if !root.HasError() {
		return nil
	}

	var diagnostics []parse.Diagnostic
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n.IsError() || n.IsMissing() {
			diagnostics = append(diagnostics, parse.Diagnostic{
				Message:  "syntax error near " + n.Kind(),
				Severity: parse.SeverityError,
				Range:    nodeRange(n),
			})
			return
		}

		if !n.HasError() {
			return
		}

		for i := uint(0); i < uint(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	return diagnostics
}

func nodeRange(n *tree_sitter.Node) parse.Range {
	start := n.StartPosition()
	end := n.EndPosition()

	return parse.Range{
		Start: parse.Position{Line: int(start.Row), Column: int(start.Column)},
		End:   parse.Position{Line: int(end.Row), Column: int(end.Column)},
	}
}

func nodeText(n *tree_sitter.Node, src []byte) string {
	return string(src[n.StartByte():n.EndByte()])
}

func childByKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Kind() == kind {
			return c
		}
	}

	return nil
}
