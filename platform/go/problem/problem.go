package problem

import (
	"encoding/json"
	"net/http"
)

// Problem type URIs surfaced to API consumers.
const (
	TypeValidation = "https://nimbusdesk.io/problems/validation-error"
	TypeNotFound   = "https://nimbusdesk.io/problems/not-found"
	TypeConflict   = "https://nimbusdesk.io/problems/conflict"
	TypeInternal   = "https://nimbusdesk.io/problems/internal-error"
)

// Details is an RFC 7807 style error payload.
type Details struct {
	Type   string              `json:"type"`
	Title  string              `json:"title"`
	Detail string              `json:"detail,omitempty"`
	Status int                 `json:"status"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// Render writes the problem as application/problem+json with its status code.
func Render(w http.ResponseWriter, p Details) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteJSON writes an arbitrary payload as application/json.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
