package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; the response can't be changed now.
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	resp := ErrorResponse{
		Error:   code,
		Message: message,
		Details: details,
	}
	WriteJSON(w, status, resp)
}

// WriteHTML writes an already-rendered HTML body with the given status code.
// Used by the HTMX fragment responses.
func WriteHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write HTML response", "error", err)
	}
}

// Redirect writes a 302 redirect to location. The body is left empty;
// clients only need the Location header.
func Redirect(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusFound)
}
