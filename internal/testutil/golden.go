package testutil

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// updateGolden controls whether golden files should be rewritten.
// Use: go test ./... -run TestGolden -update
var updateGolden = flag.Bool("update", false, "update golden files")

// CompareGolden compares got against testdata/<name>.golden, failing with a
// line diff on mismatch. With -update the file is rewritten instead.
func CompareGolden(t *testing.T, name string, got []byte) {
	t.Helper()

	goldenPath := filepath.Join("testdata", name+".golden")

	if *updateGolden {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			t.Fatalf("Failed to create testdata directory: %v", err)
		}
		if err := os.WriteFile(goldenPath, got, 0o644); err != nil {
			t.Fatalf("Failed to write golden file: %v", err)
		}
		t.Logf("Updated golden: %s", goldenPath)
		return
	}

	expected, err := os.ReadFile(goldenPath)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Golden file missing: %s\n\nGot:\n%s\n\nRun with -update to create:\n  go test ./... -run %s -update",
				goldenPath, got, t.Name())
		}
		t.Fatalf("Failed to read golden file: %v", err)
	}

	if !bytes.Equal(got, expected) {
		t.Fatalf("Golden mismatch for %s:\n%s\n\nRun with -update to refresh:\n  go test ./... -run %s -update",
			name, LineDiff(string(expected), string(got)), t.Name())
	}
}

// LineDiff renders a minimal line-by-line diff of two texts, marking lines
// that differ with -/+ and keeping up to three lines of context.
func LineDiff(expected, got string) string {
	var buf bytes.Buffer

	want := strings.Split(expected, "\n")
	have := strings.Split(got, "\n")
	n := max(len(want), len(have))

	lastPrinted := -1
	for i := 0; i < n; i++ {
		var w, h string
		if i < len(want) {
			w = want[i]
		}
		if i < len(have) {
			h = have[i]
		}
		if w == h {
			continue
		}
		for j := max(lastPrinted+1, i-3); j < i; j++ {
			if j < len(want) {
				fmt.Fprintf(&buf, " %s\n", want[j])
			}
		}
		if i < len(want) {
			fmt.Fprintf(&buf, "-%s\n", w)
		}
		if i < len(have) {
			fmt.Fprintf(&buf, "+%s\n", h)
		}
		lastPrinted = i
	}
	return buf.String()
}
