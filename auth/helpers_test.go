package auth

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	testAccessSecret  = []byte("access-secret-0123456789abcdef0123")
	testRefreshSecret = []byte("refresh-secret-0123456789abcdef012")
	testEpoch         = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

// fakeClock is a settable clock shared between services under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: testEpoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testRoles(t testing.TB) *RoleRegistry {
	t.Helper()
	reg, err := NewRoleRegistry(map[RoleID][]string{
		"admin":   {"*:*"},
		"analyst": {"flows:read", "flows:write"},
		"viewer":  {"flows:read"},
		"auditor": {"*:read"},
	}, "viewer")
	if err != nil {
		t.Fatalf("NewRoleRegistry() error = %v", err)
	}
	return reg
}

func testTokenService(t testing.TB, clock *fakeClock, opts ...TokenOption) *TokenService {
	t.Helper()
	svc, err := NewTokenService(TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		Issuer:        "authcore-test",
		Audience:      "authcore-test",
		AccessTTL:     15 * time.Minute,
		Now:           clock.Now,
	}, testRoles(t), opts...)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	return svc
}

func testHasher(t testing.TB) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(HasherConfig{Cost: bcrypt.MinCost, MaxConcurrent: 4})
	if err != nil {
		t.Fatalf("NewPasswordHasher() error = %v", err)
	}
	return h
}

func testKeyService(t testing.TB, store APIKeyStore, clock *fakeClock, opts ...APIKeyOption) *APIKeyService {
	t.Helper()
	svc, err := NewAPIKeyService(APIKeyConfig{Now: clock.Now}, store, testHasher(t), opts...)
	if err != nil {
		t.Fatalf("NewAPIKeyService() error = %v", err)
	}
	return svc
}

var analyst = Principal{ID: "u1", Email: "a@b.com", Role: "analyst", Active: true}

// identityEcho writes the authenticated principal id, or "anonymous".
func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if id == nil {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = w.Write([]byte(id.Principal.ID))
	})
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}
