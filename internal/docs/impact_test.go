package docs

import (
	"testing"
)

func TestImpactChecker_Check(t *testing.T) {
	base := NewIndex("calc.Add", "calc.Div", "calc.Node", "calc.Node.Len")
	head := NewIndex("calc.Add", "calc.Divide", "calc.Node", "calc.Node.Len", "calc.Sum")
	changes := map[string]ChangeKind{
		"calc.Add": ChangeChanged,
		"calc.Div": ChangeRemoved,
	}

	scanner := NewScanner("/repo")
	results := []ScanResult{
		scanner.ScanContent("README.md", "Use `calc.Add` and `calc.Div`.\n"),
		scanner.ScanContent("docs/list.md", "Call `Node.Len`.\n"),
		scanner.ScanContent("docs/example.md", "```go\nq := calc.Div(1, 2)\n```\n"),
	}

	report := NewImpactChecker(base, head, changes).Check(results, []string{"calc.Divide", "calc.Sum"})

	if len(report.Files) != 2 {
		t.Fatalf("expected 2 impacted files, got %d: %+v", len(report.Files), report.Files)
	}

	readme := report.Files[0]
	if readme.Path != "README.md" || len(readme.References) != 2 {
		t.Fatalf("unexpected README impact: %+v", readme)
	}
	if readme.References[0].Name != "calc.Add" || readme.References[0].Change != ChangeChanged {
		t.Errorf("unexpected first reference: %+v", readme.References[0])
	}
	if readme.References[1].Change != ChangeRemoved {
		t.Errorf("expected calc.Div to be removed: %+v", readme.References[1])
	}

	example := report.Files[1]
	if example.Path != "docs/example.md" || example.References[0].Method != DetectFence {
		t.Errorf("fence identifiers should be impacted: %+v", example)
	}
	if example.References[0].Line != 2 {
		t.Errorf("fence line should map to the document, got %d", example.References[0].Line)
	}

	if len(report.UnmentionedNewExports) != 2 {
		t.Errorf("expected both new exports unmentioned, got %v", report.UnmentionedNewExports)
	}
	if report.TotalMentions != 4 {
		t.Errorf("expected 4 mentions, got %d", report.TotalMentions)
	}
}

func TestImpactChecker_MentionedNewExport(t *testing.T) {
	base := NewIndex("calc.Add")
	head := NewIndex("calc.Add", "calc.Sum")

	results := []ScanResult{NewScanner("/repo").ScanContent("a.md", "New: `calc.Sum`.\n")}
	report := NewImpactChecker(base, head, nil).Check(results, []string{"calc.Sum"})

	if len(report.UnmentionedNewExports) != 0 {
		t.Errorf("calc.Sum is mentioned, got %v", report.UnmentionedNewExports)
	}
	if len(report.Files) != 0 {
		t.Errorf("no change, no impact: %+v", report.Files)
	}
}
