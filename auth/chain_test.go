package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/authcore/observe"
)

type chainFixture struct {
	clock  *fakeClock
	tokens *TokenService
	keys   *APIKeyService
	store  *countingStore
	chain  *Chain
	token  string
	apiKey string
}

func newChainFixture(t *testing.T, config ChainConfig, opts ...ChainOption) *chainFixture {
	t.Helper()
	f := &chainFixture{clock: newFakeClock(), store: newCountingStore()}
	f.tokens = testTokenService(t, f.clock)
	f.keys = testKeyService(t, f.store, f.clock)

	var err error
	f.token, err = f.tokens.Issue(context.Background(), analyst)
	if err != nil {
		t.Fatal(err)
	}
	f.apiKey, _, err = f.keys.Generate(context.Background(), "svc-1", "ci", []string{"flows:read"}, 0)
	if err != nil {
		t.Fatal(err)
	}

	f.chain, err = NewChain(config, f.tokens, f.keys, opts...)
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}
	return f
}

type credentials struct {
	bearer string
	header string
	query  string
}

func (c credentials) request() *http.Request {
	target := "/v1/flows"
	if c.query != "" {
		target += "?api_key=" + c.query
	}
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if c.bearer != "" {
		r.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	if c.header != "" {
		r.Header.Set("X-API-Key", c.header)
	}
	return r
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestNewChain_Validation(t *testing.T) {
	tokens := testTokenService(t, newFakeClock())
	if _, err := NewChain(ChainConfig{}, nil, nil); err == nil {
		t.Error("nil tokens: expected error")
	}
	if _, err := NewChain(ChainConfig{APIKeysEnabled: true}, tokens, nil); err == nil {
		t.Error("api keys enabled without service: expected error")
	}
	if _, err := NewChain(ChainConfig{}, tokens, nil); err != nil {
		t.Errorf("api keys disabled: error = %v", err)
	}
}

func TestChain_Strategies(t *testing.T) {
	f := newChainFixture(t, ChainConfig{APIKeysEnabled: true})
	expiredIssuer := testTokenService(t, &fakeClock{now: testEpoch.Add(-time.Hour)})
	expired, _ := expiredIssuer.Issue(context.Background(), analyst)

	tests := []struct {
		name       string
		middleware func(http.Handler) http.Handler
		creds      credentials
		wantStatus int
		wantBody   string
	}{
		{"token ok", f.chain.RequireToken, credentials{bearer: f.token}, 200, "u1"},
		{"token missing", f.chain.RequireToken, credentials{}, 401, ""},
		{"token invalid", f.chain.RequireToken, credentials{bearer: "x.y.z"}, 401, ""},
		{"token expired", f.chain.RequireToken, credentials{bearer: expired}, 401, ""},
		{"token ignores api key", f.chain.RequireToken, credentials{header: f.apiKey}, 401, ""},

		{"api key header", f.chain.RequireAPIKey, credentials{header: f.apiKey}, 200, "svc-1"},
		{"api key query", f.chain.RequireAPIKey, credentials{query: f.apiKey}, 200, "svc-1"},
		{"api key ignores token", f.chain.RequireAPIKey, credentials{bearer: f.token}, 401, ""},
		{"api key wrong", f.chain.RequireAPIKey, credentials{header: "ak_nope"}, 401, ""},

		{"either token", f.chain.RequireEither, credentials{bearer: f.token}, 200, "u1"},
		{"either api key", f.chain.RequireEither, credentials{header: f.apiKey}, 200, "svc-1"},
		{"either prefers token", f.chain.RequireEither, credentials{bearer: f.token, header: f.apiKey}, 200, "u1"},
		{"either falls back", f.chain.RequireEither, credentials{bearer: "x.y.z", header: f.apiKey}, 200, "svc-1"},
		{"either falls back from expired", f.chain.RequireEither, credentials{bearer: expired, query: f.apiKey}, 200, "svc-1"},
		{"either both bad", f.chain.RequireEither, credentials{bearer: "x.y.z", header: "ak_nope"}, 401, ""},
		{"either none", f.chain.RequireEither, credentials{}, 401, ""},

		{"optional token", f.chain.Optional, credentials{bearer: f.token}, 200, "u1"},
		{"optional api key", f.chain.Optional, credentials{header: f.apiKey}, 200, "svc-1"},
		{"optional none", f.chain.Optional, credentials{}, 200, "anonymous"},
		{"optional invalid", f.chain.Optional, credentials{bearer: "x.y.z"}, 200, "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(tt.middleware(identityEcho()), tt.creds.request())
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				if rec.Body.String() != tt.wantBody {
					t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
				}
				return
			}
			if decodeError(t, rec).Error == "" {
				t.Error("401 body missing error")
			}
			if rec.Header().Get("Content-Type") != "application/json" {
				t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestChain_UniformUnauthorizedBody(t *testing.T) {
	f := newChainFixture(t, ChainConfig{APIKeysEnabled: true})
	svc := testTokenService(t, &fakeClock{now: testEpoch.Add(-time.Hour)})
	expired, _ := svc.Issue(context.Background(), analyst)

	bodies := make(map[string]bool)
	for _, creds := range []credentials{{}, {bearer: "x.y.z"}, {bearer: expired}, {bearer: tamperPayload(t, f.token, `"analyst"`, `"admin"`)}} {
		rec := serve(f.chain.RequireToken(identityEcho()), creds.request())
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", rec.Code)
		}
		bodies[rec.Body.String()] = true
	}
	if len(bodies) != 1 {
		t.Errorf("token strategy leaked distinct bodies: %v", bodies)
	}

	rec := serve(f.chain.RequireEither(identityEcho()), credentials{}.request())
	msg := decodeError(t, rec).Error
	if !strings.Contains(msg, "bearer token") || !strings.Contains(msg, "API key") {
		t.Errorf("either message %q should name both credential types", msg)
	}
}

func TestChain_APIKeysDisabled(t *testing.T) {
	f := newChainFixture(t, ChainConfig{APIKeysEnabled: false})

	rec := serve(f.chain.RequireAPIKey(identityEcho()), credentials{header: f.apiKey}.request())
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("RequireAPIKey status = %d, want 401", rec.Code)
	}

	rec = serve(f.chain.RequireEither(identityEcho()), credentials{header: f.apiKey}.request())
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("RequireEither with key status = %d, want 401", rec.Code)
	}
	if msg := decodeError(t, rec).Error; msg != msgAuthRequired {
		t.Errorf("RequireEither message = %q, want %q without API key support", msg, msgAuthRequired)
	}

	rec = serve(f.chain.RequireEither(identityEcho()), credentials{bearer: f.token}.request())
	if rec.Code != http.StatusOK {
		t.Errorf("RequireEither with token status = %d, want 200", rec.Code)
	}

	if n := f.store.lookups.Load(); n != 0 {
		t.Errorf("store lookups = %d with api keys disabled", n)
	}

	_, err := f.chain.Authenticate(credentials{header: f.apiKey}.request(), StrategyAPIKey)
	if !errors.Is(err, ErrAPIKeysDisabled) {
		t.Errorf("Authenticate() error = %v, want ErrAPIKeysDisabled", err)
	}
}

func TestChain_StoreFailureRecoveredAs401(t *testing.T) {
	f := newChainFixture(t, ChainConfig{APIKeysEnabled: true})
	f.store.fail = errors.New("redis: i/o timeout")

	rec := serve(f.chain.RequireAPIKey(identityEcho()), credentials{header: f.apiKey}.request())
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "redis") {
		t.Errorf("body leaked internal error: %s", rec.Body.String())
	}

	rec = serve(f.chain.RequireEither(identityEcho()), credentials{bearer: f.token, header: f.apiKey}.request())
	if rec.Code != http.StatusOK {
		t.Errorf("either with valid token status = %d, want 200", rec.Code)
	}
}

func TestChain_MiddlewareByName(t *testing.T) {
	f := newChainFixture(t, ChainConfig{APIKeysEnabled: true})

	for _, name := range []string{"token", "api_key", "either", "optional"} {
		s, err := ParseStrategy(name)
		if err != nil {
			t.Fatalf("ParseStrategy(%q) error = %v", name, err)
		}
		mw, err := f.chain.Middleware(s)
		if err != nil || mw == nil {
			t.Fatalf("Middleware(%q) nil = %t, error = %v", s, mw == nil, err)
		}
	}
	if _, err := ParseStrategy("session"); err == nil {
		t.Error("ParseStrategy(session): expected error")
	}
	if _, err := f.chain.Middleware("session"); err == nil {
		t.Error("Middleware(session): expected error")
	}
}

func TestChain_Authenticate(t *testing.T) {
	f := newChainFixture(t, ChainConfig{APIKeysEnabled: true})

	id, err := f.chain.Authenticate(credentials{bearer: f.token}.request(), StrategyEither)
	if err != nil || id.Method != AuthMethodBearer {
		t.Fatalf("Authenticate() = %+v, %v", id, err)
	}

	id, err = f.chain.Authenticate(credentials{}.request(), StrategyOptional)
	if err != nil || id != nil {
		t.Errorf("optional without credential = %+v, %v", id, err)
	}

	if _, err := f.chain.Authenticate(credentials{}.request(), StrategyToken); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("token without credential error = %v", err)
	}
}

func TestChain_LogsWithoutCredentials(t *testing.T) {
	var buf bytes.Buffer
	mw := observe.NewMiddleware(nil, nil, observe.NewLoggerWithWriter("debug", &buf))
	f := newChainFixture(t, ChainConfig{APIKeysEnabled: true}, WithObservability(mw))

	serve(f.chain.RequireEither(identityEcho()), credentials{bearer: f.token}.request())
	serve(f.chain.RequireEither(identityEcho()), credentials{header: f.apiKey}.request())
	serve(f.chain.RequireToken(identityEcho()), credentials{bearer: "x.y.z"}.request())

	out := buf.String()
	if strings.Contains(out, f.token) || strings.Contains(out, f.apiKey) {
		t.Fatalf("credential material logged: %s", out)
	}
	for _, want := range []string{`"strategy":"either"`, `"outcome":"authenticated"`, `"outcome":"rejected"`, `"principal_id":"u1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %s: %s", want, out)
		}
	}
}

// A principal with role "analyst" may read flows but not delete them, and the
// 403 names the missing permission.
func TestChain_AnalystScenario(t *testing.T) {
	f := newChainFixture(t, ChainConfig{APIKeysEnabled: true})
	token, err := f.tokens.Issue(context.Background(), Principal{ID: "u1", Email: "a@b.com", Role: "analyst", Active: true})
	if err != nil {
		t.Fatal(err)
	}

	read := f.chain.RequireToken(RequirePermission("flows", "read")(identityEcho()))
	rec := serve(read, credentials{bearer: token}.request())
	if rec.Code != http.StatusOK {
		t.Fatalf("flows:read status = %d, want 200", rec.Code)
	}

	del := f.chain.RequireToken(RequirePermission("flows", "delete")(identityEcho()))
	rec = serve(del, credentials{bearer: token}.request())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("flows:delete status = %d, want 403", rec.Code)
	}
	var body ForbiddenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error == "" || body.Required != "flows:delete" || body.Message == "" {
		t.Errorf("403 body = %+v", body)
	}
}
