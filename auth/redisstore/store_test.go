package redisstore

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/authcore/auth"
)

// testClient connects to REDIS_ADDR on a scratch prefix. Tests are skipped
// when Redis is not reachable.
func testClient(t *testing.T) (*redis.Client, string) {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", addr, err)
	}

	prefix := "authcore-test:" + uuid.NewString() + ":"
	t.Cleanup(func() {
		ctx := context.Background()
		iter := client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	})
	return client, prefix
}

func sampleKey(now time.Time) *auth.APIKey {
	exp := now.Add(time.Hour)
	return &auth.APIKey{
		ID:          uuid.NewString(),
		LookupID:    "abcDEF123456",
		Name:        "ci",
		Hash:        "$2a$04$hash",
		OwnerID:     "u1",
		Permissions: []string{"flows:read"},
		Active:      true,
		ExpiresAt:   &exp,
		CreatedAt:   now,
	}
}

func TestRecordConversion(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	key := sampleKey(now)
	used := now.Add(time.Minute)
	key.LastUsedAt = &used

	if got := toRecord(key).apiKey(); !reflect.DeepEqual(got, key) {
		t.Errorf("round trip = %+v, want %+v", got, key)
	}
}

func TestKeyLayout(t *testing.T) {
	s := NewWithPrefix(nil, "p:")
	if got := s.keyKey("L"); got != "p:apikey:L" {
		t.Errorf("keyKey = %q", got)
	}
	if got := s.idKey("I"); got != "p:apikey-id:I" {
		t.Errorf("idKey = %q", got)
	}
	if got := s.principalKey("U"); got != "p:principal:U" {
		t.Errorf("principalKey = %q", got)
	}
	if New(nil).prefix != DefaultPrefix {
		t.Error("New does not use DefaultPrefix")
	}
}

func TestStore_UnreachableIsStoreFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	s := New(client)
	ctx := context.Background()

	_, err := s.LookupAPIKey(ctx, "abcDEF123456")
	if err == nil || errors.Is(err, auth.ErrAPIKeyNotFound) {
		t.Fatalf("LookupAPIKey() error = %v, want connection error", err)
	}
	if !auth.IsStoreFailure(err) {
		t.Errorf("IsStoreFailure(%v) = false", err)
	}

	if _, err := s.FindPrincipal(ctx, "u1"); err == nil || errors.Is(err, auth.ErrPrincipalNotFound) {
		t.Fatalf("FindPrincipal() error = %v, want connection error", err)
	}
}

func TestStore_SaveRejectsIncompleteKey(t *testing.T) {
	s := New(nil)
	if err := s.SaveAPIKey(context.Background(), &auth.APIKey{ID: "x"}); err == nil {
		t.Fatal("expected error for missing lookup id")
	}
}

func TestStore_APIKeyLifecycle(t *testing.T) {
	client, prefix := testClient(t)
	s := NewWithPrefix(client, prefix)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	key := sampleKey(now)

	if err := s.SaveAPIKey(ctx, key); err != nil {
		t.Fatalf("SaveAPIKey() error = %v", err)
	}

	got, err := s.LookupAPIKey(ctx, key.LookupID)
	if err != nil {
		t.Fatalf("LookupAPIKey() error = %v", err)
	}
	if got.ID != key.ID || got.Hash != key.Hash || !got.Active || !got.ExpiresAt.Equal(*key.ExpiresAt) {
		t.Errorf("LookupAPIKey() = %+v", got)
	}

	used := now.Add(5 * time.Minute)
	if err := s.TouchAPIKey(ctx, key.ID, used); err != nil {
		t.Fatalf("TouchAPIKey() error = %v", err)
	}
	if err := s.RevokeAPIKey(ctx, key.ID); err != nil {
		t.Fatalf("RevokeAPIKey() error = %v", err)
	}

	got, err = s.LookupAPIKey(ctx, key.LookupID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Active {
		t.Error("key still active after revoke")
	}
	if got.LastUsedAt == nil || !got.LastUsedAt.Equal(used) {
		t.Errorf("LastUsedAt = %v, want %v", got.LastUsedAt, used)
	}
}

func TestStore_Misses(t *testing.T) {
	client, prefix := testClient(t)
	s := NewWithPrefix(client, prefix)
	ctx := context.Background()

	if _, err := s.LookupAPIKey(ctx, "nope"); !errors.Is(err, auth.ErrAPIKeyNotFound) {
		t.Errorf("LookupAPIKey() error = %v", err)
	}
	if err := s.TouchAPIKey(ctx, "nope", time.Now()); !errors.Is(err, auth.ErrAPIKeyNotFound) {
		t.Errorf("TouchAPIKey() error = %v", err)
	}
	if err := s.RevokeAPIKey(ctx, "nope"); !errors.Is(err, auth.ErrAPIKeyNotFound) {
		t.Errorf("RevokeAPIKey() error = %v", err)
	}
	if _, err := s.FindPrincipal(ctx, "nope"); !errors.Is(err, auth.ErrPrincipalNotFound) {
		t.Errorf("FindPrincipal() error = %v", err)
	}
}

func TestStore_Principals(t *testing.T) {
	client, prefix := testClient(t)
	s := NewWithPrefix(client, prefix)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	p := auth.Principal{ID: "u1", Email: "a@b.com", Role: "analyst", Active: true, CreatedAt: now, UpdatedAt: now}
	if err := s.PutPrincipal(ctx, p); err != nil {
		t.Fatalf("PutPrincipal() error = %v", err)
	}
	got, err := s.FindPrincipal(ctx, "u1")
	if err != nil {
		t.Fatalf("FindPrincipal() error = %v", err)
	}
	if !reflect.DeepEqual(*got, p) {
		t.Errorf("FindPrincipal() = %+v, want %+v", *got, p)
	}
}

// The store plugs into APIKeyService end to end.
func TestStore_WithAPIKeyService(t *testing.T) {
	client, prefix := testClient(t)
	s := NewWithPrefix(client, prefix)
	ctx := context.Background()

	if err := s.PutPrincipal(ctx, auth.Principal{ID: "u1", Role: "analyst", Active: true}); err != nil {
		t.Fatal(err)
	}
	hasher, err := auth.NewPasswordHasher(auth.HasherConfig{Cost: 4})
	if err != nil {
		t.Fatal(err)
	}
	keys, err := auth.NewAPIKeyService(auth.APIKeyConfig{}, s, hasher, auth.WithKeyOwners(s))
	if err != nil {
		t.Fatal(err)
	}

	plaintext, _, err := keys.Generate(ctx, "u1", "ci", []string{"flows:read"}, 0)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	principal, perms, err := keys.Verify(ctx, plaintext)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if principal.ID != "u1" || !reflect.DeepEqual(perms, []string{"flows:read"}) {
		t.Errorf("Verify() = %+v, %v", principal, perms)
	}
}
