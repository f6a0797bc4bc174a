package sandbox

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/tools/imports"

	"doccov/internal/doctags"
)

var (
	packageClause = regexp.MustCompile(`(?m)^\s*package\s+\w+`)
	majorVersion  = regexp.MustCompile(`^v[0-9]+$`)
	importLine    = regexp.MustCompile(`(?m)^\s*import\s`)
)

// Synthesize turns example code into a main.go. A complete program is kept
// as is apart from fixing imports. A statement list is wrapped in func main
// and gets an import of the target package when it refers to it. Missing
// standard library imports are added and unused ones dropped; when the code
// does not parse the wrapped source is returned unchanged so the compiler
// reports the error.
func Synthesize(req Request) []byte {
	code := doctags.StripFences(req.Code)

	var b strings.Builder
	if packageClause.MatchString(code) {
		b.WriteString(code)
		b.WriteByte('\n')
	} else {
		b.WriteString("package main\n\n")
		if ident := PackageIdent(req.PackageName); ident != "" && refersTo(code, ident) {
			b.WriteString("import " + strconv.Quote(req.PackageName) + "\n\n")
		}
		header, body := splitImports(code)
		if header != "" {
			b.WriteString(header + "\n\n")
		}
		b.WriteString("func main() {\n")
		for _, line := range strings.Split(body, "\n") {
			if line == "" {
				b.WriteByte('\n')
				continue
			}
			b.WriteString("\t" + line + "\n")
		}
		b.WriteString("}\n")
	}

	src := []byte(b.String())
	fixed, err := imports.Process("main.go", src, &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return src
	}
	return fixed
}

// PackageIdent guesses the identifier a package is imported under: the last
// import path element, skipping a major version suffix.
func PackageIdent(importPath string) string {
	importPath = strings.TrimSuffix(importPath, "/")
	if importPath == "" {
		return ""
	}
	last := path.Base(importPath)
	if majorVersion.MatchString(last) {
		last = path.Base(path.Dir(importPath))
	}
	last = strings.TrimPrefix(last, "go-")
	last = strings.TrimSuffix(last, ".go")
	return strings.ReplaceAll(last, "-", "")
}

// IsStdlib reports whether an import path belongs to the standard library,
// whose first element never contains a dot.
func IsStdlib(importPath string) bool {
	first, _, _ := strings.Cut(importPath, "/")
	return first != "" && !strings.Contains(first, ".")
}

func refersTo(code, ident string) bool {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(ident) + `\.`).MatchString(code)
}

// splitImports moves leading import declarations of a snippet out of the
// main body.
func splitImports(code string) (header, body string) {
	lines := strings.Split(code, "\n")
	i := 0
	for i < len(lines) {
		t := strings.TrimSpace(lines[i])
		switch {
		case t == "" || strings.HasPrefix(t, "//"):
			i++
			continue
		case !importLine.MatchString(lines[i]):
			return strings.TrimSpace(strings.Join(lines[:i], "\n")), strings.Join(lines[i:], "\n")
		}
		if strings.HasSuffix(t, "(") {
			for i < len(lines) && strings.TrimSpace(lines[i]) != ")" {
				i++
			}
		}
		i++
	}
	return strings.TrimSpace(code), ""
}
