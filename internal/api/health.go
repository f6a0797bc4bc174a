package api

import (
	"net/http"
	"time"

	"doccov/internal/version"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Formats   map[string]string `json:"formats"`
}

// handleHealth responds to health check requests (simple liveness check)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}

	WriteJSON(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Formats: map[string]string{
			"openpkg": version.OpenPkgFormat,
			"doccov":  version.DoccovFormat,
		},
	}, http.StatusOK)
}
