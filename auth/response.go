package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Response messages.
const (
	msgAuthRequired      = "authentication required"
	msgEitherRequired    = "authentication required: provide a bearer token or an API key"
	msgForbidden         = "forbidden"
	msgInvalidRefresh    = "invalid refresh token"
	msgInvalidBody       = "invalid request body"
	msgRefreshTokenEmpty = "refreshToken is required"
)

// ErrorResponse is the 401 (and generic error) body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ForbiddenResponse is the 403 body.
type ForbiddenResponse struct {
	Error    string `json:"error"`
	Required string `json:"required"`
	Current  string `json:"current,omitempty"`
	Message  string `json:"message"`
}

// WriteUnauthorized writes a 401 with a generic message.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="authcore"`)
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: message})
}

// WriteForbidden writes a 403 naming what was required.
func WriteForbidden(w http.ResponseWriter, err error) {
	body := ForbiddenResponse{Error: msgForbidden, Message: "access denied"}
	var fe *ForbiddenError
	if errors.As(err, &fe) {
		body.Required = fe.Required
		body.Current = fe.Current
		body.Message = fe.Reason
	}
	writeJSON(w, http.StatusForbidden, body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
