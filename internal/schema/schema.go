// Package schema validates doccov artifacts against their embedded CUE
// definitions before any consumer trusts them.
package schema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"doccov/internal/errors"
)

//go:embed openpkg.cue
var openpkgSchema []byte

//go:embed doccov.cue
var doccovSchema []byte

// Kind selects the artifact definition to validate against.
type Kind string

const (
	KindOpenPkg Kind = "openpkg"
	KindDoccov  Kind = "doccov"
)

var roots = map[Kind]string{
	KindOpenPkg: "#Spec",
	KindDoccov:  "#Report",
}

// Issue is one validation failure.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// Validator holds the compiled schema. A cue.Context is not safe for
// concurrent use, so validation is serialized.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator compiles the embedded schemas.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	src := make([]byte, 0, len(openpkgSchema)+len(doccovSchema)+1)
	src = append(src, openpkgSchema...)
	src = append(src, '\n')
	src = append(src, doccovSchema...)

	v := ctx.CompileBytes(src, cue.Filename("schema.cue"))
	if v.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", v.Err())
	}
	return &Validator{ctx: ctx, schema: v}, nil
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
	defaultErr       error
)

// Default returns a process-wide validator compiled on first use.
func Default() (*Validator, error) {
	defaultOnce.Do(func() {
		defaultValidator, defaultErr = NewValidator()
	})
	return defaultValidator, defaultErr
}

// Validate checks data (JSON) against the definition for kind. A rejection
// is returned as a SPEC_INVALID error whose details list every issue.
func (v *Validator) Validate(kind Kind, data []byte) error {
	rootPath, ok := roots[kind]
	if !ok {
		return errors.Newf(errors.InvalidRequest, "unknown artifact kind %q", kind)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	root := v.schema.LookupPath(cue.ParsePath(rootPath))
	if root.Err() != nil {
		return fmt.Errorf("internal error: schema definition %s not found: %w", rootPath, root.Err())
	}

	doc := v.ctx.CompileBytes(data, cue.Filename(string(kind)+".json"))
	if doc.Err() != nil {
		return invalid(kind, doc.Err())
	}

	unified := root.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return invalid(kind, err)
	}
	return nil
}

// Validate checks data with the default validator.
func Validate(kind Kind, data []byte) error {
	v, err := Default()
	if err != nil {
		return err
	}
	return v.Validate(kind, data)
}

func invalid(kind Kind, err error) error {
	issues := Issues(err)
	lines := make([]string, len(issues))
	for i, is := range issues {
		if is.Path != "" {
			lines[i] = is.Path + ": " + is.Message
		} else {
			lines[i] = is.Message
		}
	}
	msg := fmt.Sprintf("%s document failed schema validation", kind)
	if len(lines) > 0 {
		msg += ": " + strings.Join(lines, "; ")
	}
	return errors.New(errors.SpecInvalid, msg, nil).WithDetails(issues)
}

// Issues flattens a CUE error into path-qualified issues.
func Issues(err error) []Issue {
	if err == nil {
		return nil
	}
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return []Issue{{Message: err.Error()}}
	}

	seen := make(map[string]bool)
	var out []Issue
	for _, e := range list {
		path := formatPath(cueerrors.Path(e))
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		key := path + "\x00" + msg
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Issue{Path: path, Message: msg})
	}
	return out
}

// formatPath renders ["exports", "0", "kind"] as exports[0].kind.
func formatPath(path []string) string {
	var b strings.Builder
	for i, part := range path {
		if isIndex(part) && i > 0 {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
