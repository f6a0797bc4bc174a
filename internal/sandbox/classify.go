package sandbox

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"doccov/internal/doctags"
	"doccov/internal/openpkg"
)

// syntaxError matches go/parser and compiler syntax diagnostics such as
// "./main.go:4:2: syntax error: unexpected }" or
// "main.go:1:1: expected 'package', found x".
var syntaxError = regexp.MustCompile(`(?m)\.go:\d+(:\d+)?: (syntax error|expected |illegal character|non-declaration statement)`)

// Classify maps an execution result to an example drift finding, or nil
// when the example passed. index is zero-based; target names the export.
func Classify(target string, index int, ex openpkg.Example, res openpkg.ExampleExecutionResult) *openpkg.Drift {
	label := fmt.Sprintf("example %d of %s", index+1, target)

	if !res.Success || res.ExitCode != 0 {
		detail := firstLine(res.Stderr)
		if syntaxError.MatchString(res.Stderr) {
			d := openpkg.NewDrift(openpkg.DriftExampleSyntaxError, target,
				fmt.Sprintf("%s does not compile: %s", label, detail), "fix the syntax of the example", true)
			return &d
		}
		d := openpkg.NewDrift(openpkg.DriftExampleRuntimeError, target,
			fmt.Sprintf("%s failed with exit code %d: %s", label, res.ExitCode, detail), "", false)
		return &d
	}

	want, unordered := expectedOutput(ex)
	if want == nil {
		return nil
	}
	if !outputMatches(res.Stdout, *want, unordered) {
		d := openpkg.NewDrift(openpkg.DriftExampleAssertionFailed, target,
			fmt.Sprintf("%s printed %q, want %q", label, strings.TrimSpace(res.Stdout), strings.TrimSpace(*want)),
			"update the Output comment of the example", true)
		return &d
	}
	return nil
}

// expectedOutput returns the declared output of an example, from the
// extracted Output field or an Output comment still inside the code.
func expectedOutput(ex openpkg.Example) (*string, bool) {
	if ex.Output != "" {
		return &ex.Output, ex.Unordered
	}
	_, out, unordered := doctags.SplitOutput(ex.Code)
	if out == "" && !hasOutputComment(ex.Code) {
		return nil, false
	}
	return &out, unordered
}

func hasOutputComment(code string) bool {
	for _, l := range strings.Split(code, "\n") {
		t := strings.ToLower(strings.TrimSpace(l))
		if strings.HasPrefix(t, "// output:") || strings.HasPrefix(t, "// unordered output:") {
			return true
		}
	}
	return false
}

// outputMatches compares like go test does for examples: surrounding
// whitespace is ignored, and unordered output compares sorted lines.
func outputMatches(got, want string, unordered bool) bool {
	got = strings.TrimSpace(strings.ReplaceAll(got, "\r\n", "\n"))
	want = strings.TrimSpace(strings.ReplaceAll(want, "\r\n", "\n"))
	if !unordered {
		return got == want
	}
	return sortedLines(got) == sortedLines(want)
}

func sortedLines(s string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

func firstLine(s string) string {
	for _, l := range strings.Split(s, "\n") {
		l = strings.TrimSpace(l)
		if l != "" && !strings.HasPrefix(l, "#") {
			return l
		}
	}
	return strings.TrimSpace(s)
}
