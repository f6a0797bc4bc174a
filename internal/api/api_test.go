package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"doccov/internal/config"
	"doccov/internal/diff"
	"doccov/internal/engine"
	"doccov/internal/errors"
	"doccov/internal/openpkg"
	"doccov/internal/sandbox"
	"doccov/internal/slogutil"
)

// echoBackend answers every "go run" with a fixed stdout.
type echoBackend struct{ stdout string }

func (b echoBackend) Name() string { return "echo" }

func (b echoBackend) Provision(context.Context) (sandbox.Workspace, error) {
	return echoWorkspace{stdout: b.stdout}, nil
}

type echoWorkspace struct{ stdout string }

func (echoWorkspace) WriteFile(context.Context, string, []byte) error { return nil }
func (echoWorkspace) Close() error                                     { return nil }

func (w echoWorkspace) Exec(_ context.Context, args ...string) (sandbox.ExecResult, error) {
	if len(args) > 0 && args[0] == "run" {
		return sandbox.ExecResult{Stdout: w.stdout}, nil
	}
	return sandbox.ExecResult{}, nil
}

// newTestServer creates a server for testing
func newTestServer(t *testing.T, cfg config.ServerConfig) *Server {
	t.Helper()
	logger := slogutil.NewDiscardLogger()
	eng := engine.New(nil, logger, engine.WithBackend(echoBackend{stdout: "3\n"}))
	return NewServer(eng, cfg, logger)
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v\n%s", err, w.Body.String())
	}
	return resp
}

func specJSON(t *testing.T, names ...string) json.RawMessage {
	t.Helper()
	return encodeSpec(t, calcSpec(names...))
}

func calcSpec(names ...string) *openpkg.Spec {
	s := openpkg.New("example.com/calc", "1.0.0")
	for _, n := range names {
		s.Exports = append(s.Exports, openpkg.Export{
			ID: n, Name: n, Kind: openpkg.KindFunction, Tags: []openpkg.Tag{},
			Description: n + " does arithmetic.",
			Signatures: []openpkg.Signature{{
				Parameters: []openpkg.Parameter{{Name: "a", Schema: openpkg.Primitive(openpkg.TypeInteger), Required: true}},
				Returns:    &openpkg.Returns{Schema: openpkg.Primitive(openpkg.TypeInteger)},
			}},
		})
	}
	openpkg.Normalize(s)
	return s
}

func encodeSpec(t *testing.T, s *openpkg.Spec) json.RawMessage {
	t.Helper()
	data, err := openpkg.Encode(s)
	if err != nil {
		t.Fatalf("encode spec: %v", err)
	}
	return data
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{})

	w := do(t, s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" || resp.Formats["doccov"] != "1.0.0" {
		t.Errorf("unexpected health response: %+v", resp)
	}

	w = do(t, s, http.MethodPost, "/health", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /health status = %d, want 405", w.Code)
	}
	if got := w.Header().Get("Allow"); got != http.MethodGet {
		t.Errorf("Allow = %q", got)
	}
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{})

	w := do(t, s, http.MethodGet, "/health", nil)
	if id := w.Header().Get("X-Request-ID"); len(id) != 36 {
		t.Errorf("generated request id = %q, want a UUID", id)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("request id = %q, want the caller's", got)
	}
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{})
	w := do(t, s, http.MethodGet, "/symbols", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != string(errors.EntryNotFound) {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestDiff(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{})

	// Mul takes two operands so it is not mistaken for a renamed Div.
	head := calcSpec("Add", "Mul")
	mul := &head.Exports[1].Signatures[0]
	mul.Parameters = append(mul.Parameters, openpkg.Parameter{Name: "b", Schema: openpkg.Primitive(openpkg.TypeInteger), Required: true})

	w := do(t, s, http.MethodPost, "/diff", DiffRequest{
		Base: specJSON(t, "Add", "Div"),
		Head: encodeSpec(t, head),
		Docs: []DocFile{{Path: "README.md", Content: "Use `calc.Div` for division.\n"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var d diff.SpecDiffWithDocs
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatal(err)
	}
	if len(d.Breaking) != 1 || d.Breaking[0] != "Div" {
		t.Errorf("breaking = %v, want [Div]", d.Breaking)
	}
	if len(d.NonBreaking) != 1 || d.NonBreaking[0] != "Mul" {
		t.Errorf("nonBreaking = %v, want [Mul]", d.NonBreaking)
	}
	if d.SemverAdvice != "major" {
		t.Errorf("semverAdvice = %q", d.SemverAdvice)
	}
	if d.DocsImpact == nil {
		t.Error("docsImpact missing although docs were sent")
	}
}

func TestDiff_Errors(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{})

	tests := []struct {
		name     string
		body     any
		status   int
		code     errors.ErrorCode
		contains string
	}{
		{"malformed json", `{"base":`, http.StatusBadRequest, errors.InvalidRequest, "invalid JSON"},
		{"missing head", DiffRequest{Base: specJSON(t, "Add")}, http.StatusBadRequest, errors.InvalidRequest, "required"},
		{"invalid head", DiffRequest{Base: specJSON(t, "Add"), Head: json.RawMessage(`{"openpkg":"1.0.0"}`)}, http.StatusUnprocessableEntity, errors.SpecInvalid, "head:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/diff", tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			resp := decodeError(t, w)
			if resp.Code != string(tt.code) {
				t.Errorf("code = %s, want %s", resp.Code, tt.code)
			}
			if !strings.Contains(resp.Error, tt.contains) {
				t.Errorf("error %q does not contain %q", resp.Error, tt.contains)
			}
		})
	}
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{MaxBodyBytes: 64})
	w := do(t, s, http.MethodPost, "/diff", DiffRequest{Base: specJSON(t, "Add"), Head: specJSON(t, "Add")})
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
}

func TestRunExample(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{})

	w := do(t, s, http.MethodPost, "/examples/run", sandbox.Request{
		PackageName: "example.com/calc",
		Code:        "fmt.Println(calc.Add(1, 2))",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var res openpkg.ExampleExecutionResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Stdout != "3\n" {
		t.Errorf("result = %+v", res)
	}

	w = do(t, s, http.MethodPost, "/examples/run", sandbox.Request{PackageName: "example.com/calc"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing code: status = %d, want 400", w.Code)
	}

	w = do(t, s, http.MethodGet, "/examples/run", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: status = %d, want 405", w.Code)
	}
}

func TestRunExample_LocalBackendNeedsOptIn(t *testing.T) {
	req := sandbox.Request{PackageName: "example.com/calc", Code: "fmt.Println(calc.Add(1, 2))"}

	s := newTestServer(t, config.ServerConfig{ExampleBackend: sandbox.BackendLocal})
	w := do(t, s, http.MethodPost, "/examples/run", req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503: %s", w.Code, w.Body.String())
	}
	if got := decodeError(t, w); got.Code != string(errors.SandboxUnavailable) {
		t.Errorf("code = %q, want SANDBOX_UNAVAILABLE", got.Code)
	}

	s = newTestServer(t, config.ServerConfig{ExampleBackend: sandbox.BackendLocal, AllowLocalExamples: true})
	if w := do(t, s, http.MethodPost, "/examples/run", req); w.Code != http.StatusOK {
		t.Errorf("opted in: status = %d, want 200", w.Code)
	}
}

func TestRunExample_InvalidVersionIsAResult(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{})
	w := do(t, s, http.MethodPost, "/examples/run", sandbox.Request{
		PackageName:    "example.com/calc",
		PackageVersion: "one",
		Code:           "calc.Add(1, 2)",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res openpkg.ExampleExecutionResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Success || !strings.Contains(res.Stderr, "invalid package version") {
		t.Errorf("result = %+v", res)
	}
}

func TestValidate(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{})

	tests := []struct {
		name   string
		req    ValidateRequest
		status int
		valid  bool
	}{
		{"valid openpkg", ValidateRequest{Kind: "openpkg", Document: specJSON(t, "Add")}, http.StatusOK, true},
		{"invalid openpkg", ValidateRequest{Kind: "openpkg", Document: json.RawMessage(`{"openpkg":"x"}`)}, http.StatusOK, false},
		{"openpkg as doccov", ValidateRequest{Kind: "doccov", Document: specJSON(t, "Add")}, http.StatusOK, false},
		{"unknown kind", ValidateRequest{Kind: "swagger", Document: specJSON(t)}, http.StatusBadRequest, false},
		{"empty document", ValidateRequest{Kind: "openpkg"}, http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/validate", tt.req)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var resp ValidateResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Valid != tt.valid {
				t.Errorf("valid = %v, want %v", resp.Valid, tt.valid)
			}
			if !tt.valid && len(resp.Issues) == 0 {
				t.Error("rejected document reported no issues")
			}
		})
	}
}
