// File: backend/internal/api/ping_handler.go
package api

import (
	"net/http"
	"time"
)

// PingHandler responds to ping requests to check server health.
func (h *APIHandler) PingHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message":   "pong",
		"service":   "phishscan-api",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
