package openpkg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"doccov/internal/schema"
	"doccov/internal/version"
)

// CompressedExt marks zstd-compressed snapshots.
const CompressedExt = ".zst"

// New returns an empty spec for the named package.
func New(name, pkgVersion string) *Spec {
	if pkgVersion == "" {
		pkgVersion = "0.0.0"
	}
	return &Spec{
		OpenPkg: version.OpenPkgFormat,
		Meta:    Meta{Name: name, Version: pkgVersion, Ecosystem: Ecosystem},
		Exports: []Export{},
		Types:   []Type{},
	}
}

// Normalize sorts exports, types and members by id and replaces nil
// required slices with empty ones, so equal specs encode identically.
func Normalize(s *Spec) {
	if s.Exports == nil {
		s.Exports = []Export{}
	}
	if s.Types == nil {
		s.Types = []Type{}
	}
	sort.SliceStable(s.Exports, func(i, j int) bool { return s.Exports[i].ID < s.Exports[j].ID })
	sort.SliceStable(s.Types, func(i, j int) bool { return s.Types[i].ID < s.Types[j].ID })
	for i := range s.Exports {
		e := &s.Exports[i]
		if e.Tags == nil {
			e.Tags = []Tag{}
		}
		sort.SliceStable(e.Members, func(a, b int) bool { return e.Members[a].ID < e.Members[b].ID })
		for j := range e.Signatures {
			if e.Signatures[j].Parameters == nil {
				e.Signatures[j].Parameters = []Parameter{}
			}
		}
	}
}

// Encode renders the spec as indented JSON with a trailing newline.
func Encode(s *Spec) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode validates data against the openpkg schema and decodes it.
// Documents that fail validation are rejected without partial decoding.
func Decode(data []byte) (*Spec, error) {
	if err := schema.Validate(schema.KindOpenPkg, data); err != nil {
		return nil, err
	}
	var s Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode spec: %w", err)
	}
	return &s, nil
}

// Load reads and decodes a spec file; *.zst files are decompressed first.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, CompressedExt) {
		if data, err = decompress(data); err != nil {
			return nil, fmt.Errorf("decompress %s: %w", path, err)
		}
	}
	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Save writes the spec to path, compressing when it ends in .zst.
func Save(path string, s *Spec) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, CompressedExt) {
		if data, err = compress(data); err != nil {
			return err
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}
