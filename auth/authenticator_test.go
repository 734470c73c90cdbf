package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
)

func bearerRequest(token string) *AuthRequest {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return &AuthRequest{Headers: h}
}

func TestBearerAuthenticator(t *testing.T) {
	clock := newFakeClock()
	tokens := testTokenService(t, clock)
	a := NewBearerAuthenticator(tokens)
	ctx := context.Background()

	if a.Name() != "bearer" {
		t.Errorf("Name() = %q", a.Name())
	}

	token, _ := tokens.Issue(ctx, analyst)
	req := bearerRequest(token)
	if !a.Supports(ctx, req) {
		t.Fatal("Supports() = false for bearer header")
	}
	if a.Supports(ctx, &AuthRequest{}) {
		t.Error("Supports() = true without header")
	}

	result, err := a.Authenticate(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Authenticated || result.Method != AuthMethodBearer {
		t.Fatalf("result = %+v", result)
	}
	id := result.Identity
	if id.Principal.ID != "u1" || id.TokenID == "" || !id.Can("flows", "write") {
		t.Errorf("identity = %+v", id)
	}

	result, err = a.Authenticate(ctx, bearerRequest("garbage"))
	if err != nil {
		t.Fatal(err)
	}
	if result.Authenticated || !errors.Is(result.Error, ErrInvalidToken) {
		t.Errorf("garbage result = %+v", result)
	}

	result, _ = a.Authenticate(ctx, &AuthRequest{})
	if !errors.Is(result.Error, ErrMissingCredential) {
		t.Errorf("missing result = %+v", result)
	}
}

func TestBearerAuthenticator_StoreFailureIsInternal(t *testing.T) {
	tokens := testTokenService(t, newFakeClock(), WithPrincipalRepository(failingRepo{}))
	token, _ := tokens.Issue(context.Background(), analyst)

	result, err := NewBearerAuthenticator(tokens).Authenticate(context.Background(), bearerRequest(token))
	if result != nil || !errors.Is(err, ErrCredentialStore) {
		t.Fatalf("Authenticate() = %+v, %v; want internal ErrCredentialStore", result, err)
	}
}

func TestAPIKeyAuthenticator(t *testing.T) {
	clock := newFakeClock()
	keys := testKeyService(t, NewMemoryStore(), clock)
	ctx := context.Background()
	plaintext, rec, _ := keys.Generate(ctx, "u1", "ci", []string{"flows:read"}, 0)

	a := NewAPIKeyAuthenticator(keys, "", "")
	if a.Name() != "api_key" {
		t.Errorf("Name() = %q", a.Name())
	}

	tests := []struct {
		name     string
		req      *AuthRequest
		supports bool
		wantOK   bool
	}{
		{
			name:     "header",
			req:      &AuthRequest{Headers: http.Header{"X-Api-Key": {plaintext}}},
			supports: true,
			wantOK:   true,
		},
		{
			name:     "query",
			req:      &AuthRequest{Query: url.Values{"api_key": {plaintext}}},
			supports: true,
			wantOK:   true,
		},
		{
			name: "header wins over query",
			req: &AuthRequest{
				Headers: http.Header{"X-Api-Key": {"ak_wrong"}},
				Query:   url.Values{"api_key": {plaintext}},
			},
			supports: true,
			wantOK:   false,
		},
		{
			name:     "absent",
			req:      &AuthRequest{},
			supports: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Supports(ctx, tt.req); got != tt.supports {
				t.Fatalf("Supports() = %v, want %v", got, tt.supports)
			}
			result, err := a.Authenticate(ctx, tt.req)
			if err != nil {
				t.Fatal(err)
			}
			if result.Authenticated != tt.wantOK {
				t.Fatalf("Authenticated = %v, want %v (err %v)", result.Authenticated, tt.wantOK, result.Error)
			}
			if tt.wantOK {
				id := result.Identity
				if id.Method != AuthMethodAPIKey || id.KeyID != rec.ID || !id.HasPermission("flows:read") {
					t.Errorf("identity = %+v", id)
				}
			}
		})
	}
}

func TestAPIKeyAuthenticator_CustomLocations(t *testing.T) {
	keys := testKeyService(t, NewMemoryStore(), newFakeClock())
	plaintext, _, _ := keys.Generate(context.Background(), "u1", "ci", nil, 0)

	a := NewAPIKeyAuthenticator(keys, "X-Flow-Key", "key")
	req := &AuthRequest{Headers: http.Header{"X-Flow-Key": {plaintext}}}
	result, err := a.Authenticate(context.Background(), req)
	if err != nil || !result.Authenticated {
		t.Fatalf("Authenticate() = %+v, %v", result, err)
	}
	if a.Supports(context.Background(), &AuthRequest{Headers: http.Header{"X-Api-Key": {plaintext}}}) {
		t.Error("default header should not be read when a custom one is set")
	}
}

func TestAPIKeyAuthenticator_StoreFailureIsInternal(t *testing.T) {
	store := newCountingStore()
	keys := testKeyService(t, store, newFakeClock())
	plaintext, _, _ := keys.Generate(context.Background(), "u1", "ci", nil, 0)
	store.fail = errors.New("timeout")

	a := NewAPIKeyAuthenticator(keys, "", "")
	req := &AuthRequest{Headers: http.Header{"X-Api-Key": {plaintext}}}
	result, err := a.Authenticate(context.Background(), req)
	if result != nil || !errors.Is(err, ErrCredentialStore) {
		t.Fatalf("Authenticate() = %+v, %v", result, err)
	}
}

func TestAuthenticatorFunc(t *testing.T) {
	f := NewAuthenticatorFunc("static",
		func(context.Context, *AuthRequest) bool { return true },
		func(context.Context, *AuthRequest) (*AuthResult, error) {
			return AuthSuccess(&Identity{Principal: Principal{ID: "svc"}, Method: AuthMethodAPIKey}), nil
		},
	)
	if f.Name() != "static" || !f.Supports(context.Background(), nil) {
		t.Fatal("unexpected Name/Supports")
	}
	result, _ := f.Authenticate(context.Background(), nil)
	if !result.Authenticated || result.Method != AuthMethodAPIKey {
		t.Errorf("result = %+v", result)
	}
}
