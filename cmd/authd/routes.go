package main

import (
	"encoding/json"
	"net/http"

	"github.com/jonwraymond/authcore/auth"
	"github.com/jonwraymond/authcore/health"
)

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/auth/refresh", auth.NewRefreshHandler(a.tokens, a.logger))

	mux.Handle("GET /v1/flows",
		a.chain.RequireEither(auth.RequirePermission("flows", "read")(http.HandlerFunc(listFlows))))
	mux.Handle("POST /v1/flows/delete",
		a.chain.RequireToken(auth.RequirePermission("flows", "delete")(http.HandlerFunc(deleteFlow))))
	mux.Handle("GET /v1/admin",
		a.chain.RequireToken(auth.RequireRole("admin")(http.HandlerFunc(whoami))))
	mux.Handle("GET /v1/public", a.chain.Optional(http.HandlerFunc(whoami)))

	mux.Handle("GET /healthz", health.LivenessHandler())
	mux.Handle("GET /readyz", health.ReadinessHandler(a.health))
	return mux
}

type identityView struct {
	PrincipalID string   `json:"principalId,omitempty"`
	Role        string   `json:"role,omitempty"`
	Method      string   `json:"method"`
	Permissions []string `json:"permissions,omitempty"`
}

func viewOf(r *http.Request) identityView {
	id := auth.IdentityFromContext(r.Context())
	if id == nil {
		return identityView{Method: string(auth.AuthMethodNone)}
	}
	return identityView{
		PrincipalID: id.Principal.ID,
		Role:        string(id.Principal.Role),
		Method:      string(id.Method),
		Permissions: id.Permissions,
	}
}

func whoami(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(r))
}

func listFlows(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"flows":    []string{},
		"identity": viewOf(r),
	})
}

func deleteFlow(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
