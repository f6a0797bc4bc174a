package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"doccov/internal/errors"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error          string             `json:"error"`
	Code           string             `json:"code"`
	Details        any                `json:"details,omitempty"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty"`
}

// WriteError writes an error response with the given status.
func WriteError(w http.ResponseWriter, err error, status int) {
	resp := ErrorResponse{
		Error: err.Error(),
		Code:  string(errors.InternalError),
	}

	var de *errors.DoccovError
	if stderrors.As(err, &de) {
		resp.Error = de.Message
		resp.Code = string(de.Code)
		resp.Details = de.Details
		resp.SuggestedFixes = de.SuggestedFixes
	}

	WriteJSON(w, resp, status)
}

// WriteDoccovError writes err with the status its code maps to.
func WriteDoccovError(w http.ResponseWriter, err error) {
	WriteError(w, err, MapErrorToStatus(errors.CodeOf(err)))
}

// MapErrorToStatus maps error codes to HTTP status codes
func MapErrorToStatus(code errors.ErrorCode) int {
	switch code {
	case errors.SpecInvalid:
		return http.StatusUnprocessableEntity // 422
	case errors.InvalidRequest:
		return http.StatusBadRequest // 400
	case errors.EntryNotFound:
		return http.StatusNotFound // 404
	case errors.PackageLoadFailed:
		return http.StatusUnprocessableEntity // 422
	case errors.SandboxUnavailable:
		return http.StatusServiceUnavailable // 503
	case errors.CacheIO, errors.ConfigInvalid, errors.InternalError:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

// BadRequest writes a 400 Bad Request error
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, errors.Newf(errors.InvalidRequest, "%s", message), http.StatusBadRequest)
}

// MethodNotAllowed writes a 405 with the allowed method.
func MethodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	WriteError(w, errors.Newf(errors.InvalidRequest, "method not allowed, use %s", allowed), http.StatusMethodNotAllowed)
}

// InternalError writes a 500 Internal Server Error
func InternalError(w http.ResponseWriter, message string, err error) {
	WriteError(w, errors.New(errors.InternalError, message, err), http.StatusInternalServerError)
}
