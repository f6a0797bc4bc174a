package docs

import "strings"

func isQualifiedName(name string) bool {
	return strings.Contains(name, ".") && !strings.ContainsAny(name, " \t\n(")
}

// isGoFence accepts untagged fences too; doc-comment examples carry none.
func isGoFence(lang string) bool {
	switch strings.ToLower(lang) {
	case "", "go", "golang":
		return true
	}
	return false
}

// wrapSnippet turns a statement list into a parseable file. The returned
// offset is the number of lines added before the snippet.
func wrapSnippet(code string) (string, int) {
	if strings.HasPrefix(strings.TrimSpace(code), "package ") {
		return code, 0
	}
	return "package p\nfunc _() {\n" + code + "\n}\n", 2
}
