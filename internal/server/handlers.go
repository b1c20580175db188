package server

import (
	"encoding/json"
	"net/http"

	"github.com/lottokit/drawgen/internal/version"
)

// handleHealth handles health check requests. It pings every database
// so a wedged sqlite file flips the status to unhealthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK

	for name, db := range s.container.Databases() {
		if err := db.QuickCheck(r.Context()); err != nil {
			s.log.Error().Err(err).Str("database", name).Msg("Database ping failed")
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	response := map[string]interface{}{
		"status":  status,
		"version": version.Version,
		"service": "drawgen",
	}

	s.writeJSON(w, code, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
