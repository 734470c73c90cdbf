package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jonwraymond/authcore/observe"
)

const maxRefreshBody = 16 << 10

// RefreshRequest is the body accepted by RefreshHandler.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse is the body returned by RefreshHandler.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// RefreshHandler exchanges a refresh token for a new access token. It never
// issues a new refresh token.
type RefreshHandler struct {
	tokens *TokenService
	logger observe.Logger
}

// NewRefreshHandler creates the refresh endpoint. logger may be nil.
func NewRefreshHandler(tokens *TokenService, logger observe.Logger) *RefreshHandler {
	if logger == nil {
		logger = observe.NewNoopLogger()
	}
	return &RefreshHandler{tokens: tokens, logger: logger}
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
		return
	}

	var req RefreshRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRefreshBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, msgRefreshTokenEmpty)
		return
	}

	token, expiresAt, err := h.tokens.RefreshWithExpiry(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrCredentialStore) {
			h.logger.Warn(r.Context(), "refresh failed", observe.F("error", err))
		} else {
			h.logger.Debug(r.Context(), "refresh rejected", observe.F("reason", err))
		}
		writeError(w, http.StatusUnauthorized, msgInvalidRefresh)
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(expiresAt.Sub(h.tokens.now()).Round(time.Second) / time.Second),
	})
}
