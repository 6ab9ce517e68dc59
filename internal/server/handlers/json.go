package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/offsync/offsync/pkg/api"
)

// contextKey is a private type for request context keys.
type contextKey string

// RoleKey carries the authenticated role set by the auth middleware.
const RoleKey contextKey = "role"

// sendJSON writes a JSON response
func sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// sendError writes a JSON error response
func sendError(w http.ResponseWriter, message string, statusCode int) {
	sendJSON(w, api.ErrorResponse{Error: message}, statusCode)
}
