//go:build cgo

package docs

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// FenceParser extracts qualified identifiers from Go code with tree-sitter,
// which tolerates the incomplete programs examples often are.
type FenceParser struct {
	parser *sitter.Parser
}

// NewFenceParser creates a parser. It is not safe for concurrent use.
func NewFenceParser() *FenceParser {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &FenceParser{parser: p}
}

// ExtractIdentifiers returns selector expressions and qualified types such
// as pkg.Func or pkg.Type, in source order and deduplicated.
func (fp *FenceParser) ExtractIdentifiers(fence Fence) []FenceIdentifier {
	if fp == nil || !isGoFence(fence.Language) || fence.Content == "" {
		return nil
	}
	wrapped, offset := wrapSnippet(fence.Content)
	source := []byte(wrapped)
	tree, err := fp.parser.ParseCtx(context.Background(), nil, source)
	if err != nil || tree == nil {
		return nil
	}
	defer tree.Close()

	var out []FenceIdentifier
	seen := map[string]bool{}
	walk(tree.RootNode(), source, offset, &out, seen)
	return out
}

func walk(node *sitter.Node, source []byte, offset int, out *[]FenceIdentifier, seen map[string]bool) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "selector_expression", "qualified_type":
		name := string(source[node.StartByte():node.EndByte()])
		if isQualifiedName(name) && !seen[name] {
			seen[name] = true
			*out = append(*out, FenceIdentifier{Name: name, Line: int(node.StartPoint().Row) + 1 - offset})
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), source, offset, out, seen)
	}
}
