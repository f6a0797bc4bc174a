//go:build !cgo

package docs

import (
	"go/ast"
	"go/parser"
	"go/token"
)

// FenceParser extracts qualified identifiers from Go code. Without cgo
// there is no tree-sitter; go/parser is used instead and snippets that do
// not parse as a file or a function body yield nothing.
type FenceParser struct{}

// NewFenceParser creates a parser.
func NewFenceParser() *FenceParser {
	return &FenceParser{}
}

// ExtractIdentifiers returns selector expressions such as pkg.Func, in
// source order and deduplicated.
func (fp *FenceParser) ExtractIdentifiers(fence Fence) []FenceIdentifier {
	if fp == nil || !isGoFence(fence.Language) || fence.Content == "" {
		return nil
	}

	fset := token.NewFileSet()
	src, offset := wrapSnippet(fence.Content)
	file, err := parser.ParseFile(fset, "fence.go", src, parser.SkipObjectResolution)
	if err != nil && file == nil {
		return nil
	}

	var out []FenceIdentifier
	seen := map[string]bool{}
	ast.Inspect(file, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		start, end := fset.Position(sel.Pos()).Offset, fset.Position(sel.End()).Offset
		name := src[start:end]
		if isQualifiedName(name) && !seen[name] {
			seen[name] = true
			out = append(out, FenceIdentifier{Name: name, Line: fset.Position(sel.Pos()).Line - offset})
		}
		return true
	})
	return out
}
