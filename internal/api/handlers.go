package api

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"doccov/internal/docs"
	"doccov/internal/errors"
	"doccov/internal/openpkg"
	"doccov/internal/sandbox"
	"doccov/internal/schema"
)

// DiffRequest carries two openpkg documents and, optionally, Markdown
// files to check for references to changed exports.
type DiffRequest struct {
	Base json.RawMessage `json:"base"`
	Head json.RawMessage `json:"head"`
	Docs []DocFile       `json:"docs,omitempty"`
}

// DocFile is an in-memory Markdown file.
type DocFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ValidateRequest names an artifact kind and the document to check.
type ValidateRequest struct {
	Kind     schema.Kind     `json:"kind"`
	Document json.RawMessage `json:"document"`
}

// ValidateResponse reports the validation outcome. Rejected documents are
// a 200 with valid=false; only malformed requests are errors.
type ValidateResponse struct {
	Valid  bool           `json:"valid"`
	Kind   schema.Kind    `json:"kind"`
	Issues []schema.Issue `json:"issues,omitempty"`
}

// handleDiff compares two specs: POST /diff
func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, http.MethodPost)
		return
	}

	var req DiffRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if missing(req.Base) || missing(req.Head) {
		BadRequest(w, "both base and head are required")
		return
	}

	base, err := openpkg.Decode(req.Base)
	if err != nil {
		WriteDoccovError(w, prefix("base", err))
		return
	}
	head, err := openpkg.Decode(req.Head)
	if err != nil {
		WriteDoccovError(w, prefix("head", err))
		return
	}

	var results []docs.ScanResult
	if req.Docs != nil {
		scanner := docs.NewScanner("")
		results = make([]docs.ScanResult, 0, len(req.Docs))
		for _, f := range req.Docs {
			results = append(results, scanner.ScanContent(f.Path, f.Content))
		}
	}

	WriteJSON(w, s.engine.DiffSpecs(r.Context(), base, head, results), http.StatusOK)
}

// handleRunExample executes one example: POST /examples/run
func (s *Server) handleRunExample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, http.MethodPost)
		return
	}

	var req sandbox.Request
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		BadRequest(w, "code is required")
		return
	}
	if strings.TrimSpace(req.PackageName) == "" {
		BadRequest(w, "packageName is required")
		return
	}

	backend := s.cfg.ExampleBackend
	if backend == "" {
		backend = sandbox.BackendContainer
	}
	if backend == sandbox.BackendLocal && !s.cfg.AllowLocalExamples {
		WriteDoccovError(w, errors.New(errors.SandboxUnavailable,
			"local example execution is disabled on this server (set server.allowLocalExamples)", nil))
		return
	}

	res, err := s.engine.RunExample(r.Context(), req, backend)
	if err != nil {
		WriteDoccovError(w, err)
		return
	}
	s.logger.Debug("example run over HTTP",
		"package", req.PackageName,
		"success", res.Success,
		"requestID", GetRequestID(r.Context()),
	)
	WriteJSON(w, res, http.StatusOK)
}

// handleValidate checks a document against its schema: POST /validate
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, http.MethodPost)
		return
	}

	var req ValidateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Kind != schema.KindOpenPkg && req.Kind != schema.KindDoccov {
		BadRequest(w, `kind must be "openpkg" or "doccov"`)
		return
	}
	if missing(req.Document) {
		BadRequest(w, "document is required")
		return
	}

	err := schema.Validate(req.Kind, req.Document)
	var de *errors.DoccovError
	switch {
	case err == nil:
		WriteJSON(w, ValidateResponse{Valid: true, Kind: req.Kind}, http.StatusOK)
	case stderrors.As(err, &de) && de.Code == errors.SpecInvalid:
		issues, _ := de.Details.([]schema.Issue)
		WriteJSON(w, ValidateResponse{Kind: req.Kind, Issues: issues}, http.StatusOK)
	default:
		WriteDoccovError(w, err)
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, errors.Newf(errors.EntryNotFound, "no route for %s %s", r.Method, r.URL.Path), http.StatusNotFound)
}

// decodeBody decodes a JSON request body into v, writing the error
// response itself when it fails.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			WriteError(w, errors.Newf(errors.InvalidRequest, "request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return false
		}
		BadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// missing reports whether a raw JSON field was absent or null.
func missing(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// prefix names which document of a request an error belongs to.
func prefix(field string, err error) error {
	var de *errors.DoccovError
	if stderrors.As(err, &de) {
		return errors.New(de.Code, field+": "+de.Message, err).WithDetails(de.Details)
	}
	return errors.New(errors.SpecInvalid, field+": "+err.Error(), err)
}
