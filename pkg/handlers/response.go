// Package handlers is the HTTP surface consumed by the UI client.
package handlers

import (
	"encoding/json"
	"net/http"
)

// errorBody is the uniform error payload every handler returns.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON encodes data as the JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	return json.NewEncoder(w).Encode(data)
}

// ErrorResponse writes the uniform error payload with a machine-readable code
// and a user-facing message.
func ErrorResponse(w http.ResponseWriter, status int, code, message string) error {
	return WriteJSON(w, status, errorBody{Error: code, Message: message})
}
