package main

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"doccov/internal/diff"
	"doccov/internal/docs"
	"doccov/internal/drift"
	"doccov/internal/errors"
	"doccov/internal/openpkg"
	"doccov/internal/report"
	"doccov/internal/schema"
	"doccov/internal/testutil"
)

// execute runs the root command with args and captures stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCheckGate(t *testing.T) {
	tests := []struct {
		name     string
		report   *report.Report
		min      int
		wantFail string
	}{
		{
			name:   "meets coverage",
			report: &report.Report{Summary: drift.Summary{CoverageScore: 80}},
			min:    80,
		},
		{
			name:     "below coverage",
			report:   &report.Report{Summary: drift.Summary{CoverageScore: 79}},
			min:      80,
			wantFail: "coverage 79% is below the required 80%",
		},
		{
			name: "failed example",
			report: &report.Report{
				Summary: drift.Summary{CoverageScore: 100},
				Examples: []report.ExampleRun{
					{ExportID: "Add", Result: openpkg.ExampleExecutionResult{Success: true}},
					{ExportID: "Sub", Result: openpkg.ExampleExecutionResult{Success: false, ExitCode: 1}},
				},
			},
			wantFail: "1 of 2 examples failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkGate(tt.report, tt.min)
			if tt.wantFail == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var gate *gateError
			if !stderrors.As(err, &gate) {
				t.Fatalf("expected a gate error, got %v", err)
			}
			if gate.msg != tt.wantFail {
				t.Errorf("message = %q, want %q", gate.msg, tt.wantFail)
			}
		})
	}
}

func TestReportErrorExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"gate", &gateError{msg: "coverage too low"}, 1},
		{"wrapped gate", fmt.Errorf("check: %w", &gateError{}), 1},
		{"coded", errors.Newf(errors.EntryNotFound, "entry ./nope not found"), 2},
		{"plain", stderrors.New("boom"), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reportError(tt.err); got != tt.want {
				t.Errorf("reportError() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDocumentKind(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		explicit string
		want     schema.Kind
		wantCode errors.ErrorCode
	}{
		{"openpkg", `{"openpkg":"0.4.0"}`, "", schema.KindOpenPkg, ""},
		{"doccov", `{"doccov":"1.0.0","package":{}}`, "", schema.KindDoccov, ""},
		{"explicit wins", `{"openpkg":"0.4.0"}`, "doccov", schema.KindDoccov, ""},
		{"unknown explicit", `{}`, "swagger", "", errors.InvalidRequest},
		{"no marker", `{"name":"x"}`, "", "", errors.SpecInvalid},
		{"not an object", `[1,2]`, "", "", errors.SpecInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := documentKind([]byte(tt.data), tt.explicit)
			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("err = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("kind = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadExampleCode(t *testing.T) {
	code, err := readExampleCode("-", strings.NewReader("fmt.Println(1)\n"))
	if err != nil || code != "fmt.Println(1)\n" {
		t.Errorf("stdin: code=%q err=%v", code, err)
	}

	path := filepath.Join(t.TempDir(), "ex.go")
	if err := os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	code, err = readExampleCode(path, nil)
	if err != nil || !strings.HasPrefix(code, "package main") {
		t.Errorf("file: code=%q err=%v", code, err)
	}

	if _, err := readExampleCode("-", strings.NewReader("  \n")); !errors.Is(err, errors.InvalidRequest) {
		t.Errorf("empty code: err = %v, want INVALID_REQUEST", err)
	}
	if _, err := readExampleCode(filepath.Join(t.TempDir(), "missing.go"), nil); err == nil {
		t.Error("missing file: expected an error")
	}
}

func TestWriteResultHuman(t *testing.T) {
	var b bytes.Buffer
	err := writeResultHuman(&b, openpkg.ExampleExecutionResult{
		Success: false, ExitCode: 2, Duration: 41, Stderr: "./main.go:3:1: syntax error",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "FAIL exit 2 (41ms)\n--- stderr\n./main.go:3:1: syntax error\n"
	if b.String() != want {
		t.Errorf("output = %q, want %q", b.String(), want)
	}
}

func TestWriteDiffHuman(t *testing.T) {
	d := &diff.SpecDiffWithDocs{
		Breaking:     []string{"Div"},
		NonBreaking:  []string{"Mul"},
		OldCoverage:  50,
		NewCoverage:  75,
		SemverAdvice: "major",
		CategorizedBreaking: []diff.CategorizedBreaking{
			{ID: "Div", Name: "Div", Kind: openpkg.KindFunction, Severity: diff.BreakingHigh, Reason: "function Div was removed"},
		},
		Changes: []diff.Change{
			{ExportID: "Div", Severity: diff.SeverityBreaking, Description: "function Div was removed"},
			{ExportID: "Mul", Severity: diff.SeverityNonBreaking, Description: "function Mul was added"},
		},
		DocsImpact: &docs.ImpactReport{
			TotalMentions: 1,
			Files: []docs.FileImpact{{
				Path:       "README.md",
				References: []docs.ImpactedReference{{RawText: "calc.Div", Line: 3, Name: "calc.Div", Change: docs.ChangeRemoved}},
			}},
		},
	}
	d.CoverageDelta = d.NewCoverage - d.OldCoverage

	var b bytes.Buffer
	if err := writeDiffHuman(&b, d); err != nil {
		t.Fatal(err)
	}
	testutil.CompareGolden(t, "diff_human", b.Bytes())
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 << 20, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()

	spec := openpkg.New("example.com/calc", "1.0.0")
	valid := filepath.Join(dir, "calc.json")
	if err := openpkg.Save(valid, spec); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "validate", valid)
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "valid openpkg document") {
		t.Errorf("output = %q", out)
	}

	compressed := filepath.Join(dir, "calc.json.zst")
	if err := openpkg.Save(compressed, spec); err != nil {
		t.Fatal(err)
	}
	if out, err := execute(t, "validate", compressed); err != nil {
		t.Fatalf("validate .zst: %v\n%s", err, out)
	}

	invalid := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(invalid, []byte(`{"openpkg":"0.4.0","meta":{}}`), 0644); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "validate", invalid)
	var gate *gateError
	if !stderrors.As(err, &gate) {
		t.Fatalf("expected a gate error, got %v", err)
	}
	if !strings.Contains(out, "bad.json: invalid") {
		t.Errorf("output = %q", out)
	}
}

func TestConfigInitCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "config", "init", dir, "--format", "toml")
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".doccov", "config.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "maxDepth = 4") {
		t.Errorf("config.toml missing defaults:\n%s", data)
	}

	_, err = execute(t, "config", "init", dir)
	if !errors.Is(err, errors.ConfigInvalid) {
		t.Errorf("second init: err = %v, want CONFIG_INVALID", err)
	}

	if out, err := execute(t, "config", "init", dir, "--force", "--format", "json"); err != nil {
		t.Fatalf("forced init: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(dir, ".doccov", "config.json")); err != nil {
		t.Errorf("config.json not written: %v", err)
	}
	configInitForce = false
}
