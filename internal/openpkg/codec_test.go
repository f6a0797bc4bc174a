package openpkg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doccov/internal/errors"
)

func sampleSpec() *Spec {
	s := New("example.com/calc", "1.2.0")
	s.Exports = []Export{
		{
			ID:          "Sub",
			Name:        "Sub",
			Kind:        KindFunction,
			Description: "Sub subtracts b from a.",
			Signatures: []Signature{{
				Parameters: []Parameter{
					{Name: "a", Schema: intSchema("int"), Required: true},
					{Name: "b", Schema: intSchema("int"), Required: true},
				},
				Returns: &Returns{Schema: intSchema("int")},
			}},
			Source: Source{File: "calc.go", Line: 10},
			Docs: &Docs{
				CoverageScore: 67,
				Missing:       []MissingDocRule{RuleParams},
				Drift:         []Drift{NewDrift(DriftReturnTypeMismatch, "returns", "documented string, actual int", "int", true)},
			},
		},
		{
			ID:     "Add",
			Name:   "Add",
			Kind:   KindFunction,
			Source: Source{File: "calc.go", Line: 3},
		},
	}
	Normalize(s)
	return s
}

func TestNormalize(t *testing.T) {
	s := sampleSpec()
	require.Len(t, s.Exports, 2)
	assert.Equal(t, "Add", s.Exports[0].ID)
	assert.NotNil(t, s.Exports[0].Tags)
	assert.NotNil(t, s.Types)
}

func TestEncodeDecode(t *testing.T) {
	s := sampleSpec()
	data, err := Encode(s)
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)

	again, err := Encode(back)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestDecode_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"openpkg":`},
		{"bad kind", `{"openpkg":"0.4.0","meta":{"name":"x","version":"1","ecosystem":"go"},
			"exports":[{"id":"A","name":"A","kind":"macro","tags":[],"source":{"file":"a.go","line":1}}],"types":[]}`},
		{"wrong category", `{"openpkg":"0.4.0","meta":{"name":"x","version":"1","ecosystem":"go"},
			"exports":[{"id":"A","name":"A","kind":"function","tags":[],"source":{"file":"a.go","line":1},
			"docs":{"coverageScore":50,"missing":[],"drift":[{"type":"broken-link","category":"structural","issue":"x","fixable":false}]}}],"types":[]}`},
		{"score out of range", `{"openpkg":"0.4.0","meta":{"name":"x","version":"1","ecosystem":"go"},
			"exports":[{"id":"A","name":"A","kind":"function","tags":[],"source":{"file":"a.go","line":1},
			"docs":{"coverageScore":101,"missing":[],"drift":[]}}],"types":[]}`},
		{"wrong ecosystem", `{"openpkg":"0.4.0","meta":{"name":"x","version":"1","ecosystem":"npm"},"exports":[],"types":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.SpecInvalid), "got %v", err)
		})
	}
}

func TestSaveLoad_Compressed(t *testing.T) {
	dir := t.TempDir()
	s := sampleSpec()

	for _, name := range []string{"spec.json", "spec.json.zst"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Save(path, s))

		loaded, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, s.Exports[1].Docs.Drift, loaded.Exports[1].Docs.Drift)
	}

	plain, err := os.ReadFile(filepath.Join(dir, "spec.json"))
	require.NoError(t, err)
	packed, err := os.ReadFile(filepath.Join(dir, "spec.json.zst"))
	require.NoError(t, err)
	assert.Less(t, len(packed), len(plain))
}

func TestSpec_Lookups(t *testing.T) {
	s := sampleSpec()

	e, ok := s.Export("Sub")
	require.True(t, ok)
	assert.True(t, e.IsCallable())
	assert.True(t, e.IsMissing(RuleParams))
	assert.Equal(t, 67, e.CoverageScore())

	_, ok = s.Export("Mul")
	assert.False(t, ok)
	assert.Len(t, s.ExportMap(), 2)

	clone := s.WithExports(s.CloneExports())
	clone.Exports[0].Name = "changed"
	assert.Equal(t, "Add", s.Exports[0].Name)
}
