package auth

import (
	"net/http"
	"strings"
)

const bearerScheme = "bearer"

// RequestFromHTTP builds an AuthRequest from an incoming HTTP request.
func RequestFromHTTP(r *http.Request) *AuthRequest {
	return &AuthRequest{
		Headers: r.Header,
		Query:   r.URL.Query(),
	}
}

// ExtractBearerToken returns the token from an Authorization header value.
// The scheme is matched case-insensitively; anything else yields "".
func ExtractBearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}
