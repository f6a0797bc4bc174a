package extract

import (
	"bytes"
	"go/ast"
	"go/doc"
	"go/format"
	"go/printer"
	"go/token"
	"strings"

	"doccov/internal/doctags"
	"doccov/internal/openpkg"
)

// attachExamples adds testable Example functions to the exports they name.
// ExampleCalc_Add attaches to Calc; package-level examples are dropped.
func attachExamples(spec *openpkg.Spec, fset *token.FileSet, tests []*ast.File) {
	if len(tests) == 0 {
		return
	}
	byID := spec.ExportMap()
	for _, ex := range doc.Examples(tests...) {
		target, member := ex.Name, ""
		if i := strings.Index(target, "_"); i >= 0 {
			target, member = target[:i], target[i+1:]
		}
		exp, ok := byID[target]
		if !ok {
			continue
		}
		code, err := renderExample(fset, ex)
		if err != nil {
			continue
		}
		title := ex.Suffix
		if member != "" {
			title = strings.TrimSpace(member + " " + title)
		}
		exp.Examples = append(exp.Examples, openpkg.Example{
			Title:     title,
			Code:      code,
			Output:    strings.TrimRight(ex.Output, "\n"),
			Unordered: ex.Unordered,
			Source:    openpkg.ExampleFromTest,
		})
	}
}

// renderExample prints the runnable program when go/doc could build one,
// otherwise the dedented function body.
func renderExample(fset *token.FileSet, ex *doc.Example) (string, error) {
	var buf bytes.Buffer
	if ex.Play != nil {
		if err := format.Node(&buf, fset, ex.Play); err != nil {
			return "", err
		}
		return dropOutputComment(buf.String()), nil
	}

	node := &printer.CommentedNode{Node: ex.Code, Comments: ex.Comments}
	if err := format.Node(&buf, fset, node); err != nil {
		return "", err
	}
	body := strings.TrimSpace(buf.String())
	if _, ok := ex.Code.(*ast.BlockStmt); ok {
		body = strings.TrimSuffix(strings.TrimPrefix(body, "{"), "}")
	}
	return strings.Trim(doctags.Dedent(dropOutputComment(body)), "\n"), nil
}

// dropOutputComment removes an output comment block wherever it appears.
func dropOutputComment(code string) string {
	lines := strings.Split(code, "\n")
	out := lines[:0]
	inOutput := false
	for _, l := range lines {
		t := strings.TrimSpace(l)
		lower := strings.ToLower(t)
		if strings.HasPrefix(lower, "// output:") || strings.HasPrefix(lower, "// unordered output:") {
			inOutput = true
			continue
		}
		if inOutput && strings.HasPrefix(t, "//") {
			continue
		}
		inOutput = false
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}
