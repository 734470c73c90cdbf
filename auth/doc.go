// Package auth provides the authentication and authorization core: signed
// access and refresh tokens, hash-at-rest API keys, a wildcard-capable
// permission model backed by a read-only role registry, and composable
// net/http strategies that attach an authenticated principal to the request
// context.
//
// Typical wiring:
//
//	roles, _ := auth.NewRoleRegistry(map[auth.RoleID][]string{
//	    "admin":   {"*:*"},
//	    "analyst": {"flows:read", "flows:write"},
//	    "viewer":  {"flows:read"},
//	}, "viewer")
//	tokens, _ := auth.NewTokenService(auth.TokenConfig{...}, roles)
//	chain, _ := auth.NewChain(auth.ChainConfig{APIKeysEnabled: true}, tokens, keys)
//
//	mux.Handle("/v1/flows", chain.RequireEither(
//	    auth.RequirePermission("flows", "read")(flowsHandler)))
//
// Tokens are stateless: there is no server-side revocation list, so logout is
// a client-side discard and an issued token stays valid until it expires
// unless a PrincipalRepository is configured for deactivation checks.
package auth
