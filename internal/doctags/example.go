package doctags

import (
	"strings"
)

// StripFences removes Markdown code fences and the common indentation from
// an example snippet.
func StripFences(code string) string {
	lines := strings.Split(code, "\n")
	var kept []string
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "```") || strings.HasPrefix(t, "~~~") {
			continue
		}
		kept = append(kept, strings.TrimRight(l, " \t\r"))
	}
	return strings.Trim(Dedent(strings.Join(kept, "\n")), "\n")
}

// Dedent removes the longest whitespace prefix shared by all non-blank lines.
func Dedent(s string) string {
	lines := strings.Split(s, "\n")
	prefix := ""
	first := true
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		indent := l[:len(l)-len(strings.TrimLeft(l, " \t"))]
		if first {
			prefix, first = indent, false
			continue
		}
		for !strings.HasPrefix(l, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	if prefix == "" {
		return s
	}
	for i, l := range lines {
		lines[i] = strings.TrimPrefix(l, prefix)
	}
	return strings.Join(lines, "\n")
}

// SplitOutput separates a trailing "// Output:" or "// Unordered output:"
// comment block from example code.
func SplitOutput(code string) (body, output string, unordered bool) {
	lines := strings.Split(code, "\n")
	for i, l := range lines {
		t := strings.TrimSpace(l)
		var rest string
		switch {
		case hasPrefixFold(t, "// Output:"):
			rest = strings.TrimSpace(t[len("// Output:"):])
		case hasPrefixFold(t, "// Unordered output:"):
			rest = strings.TrimSpace(t[len("// Unordered output:"):])
			unordered = true
		default:
			continue
		}
		var out []string
		if rest != "" {
			out = append(out, rest)
		}
		for _, ol := range lines[i+1:] {
			ot := strings.TrimSpace(ol)
			if !strings.HasPrefix(ot, "//") {
				break
			}
			out = append(out, strings.TrimPrefix(strings.TrimPrefix(ot, "//"), " "))
		}
		return strings.TrimRight(strings.Join(lines[:i], "\n"), "\n "), strings.Join(out, "\n"), unordered
	}
	return code, "", false
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
