package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/authcore/resilience"
)

// API key layout: <prefix>_<lookup id><secret>, all alphanumeric after the
// separator. The lookup id lets the store find the record without the
// plaintext; the whole key is what gets hashed.
const (
	DefaultAPIKeyPrefix = "ak"
	apiKeyLookupLen     = 12
	apiKeySecretLen     = 32
	apiKeyAlphabet      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// MaxAPIKeyPrefixLen keeps a whole key within bcrypt's 72-byte input.
	MaxAPIKeyPrefixLen = 72 - 1 - apiKeyLookupLen - apiKeySecretLen

	// sharedVerifyTimeout bounds a coalesced verification, which runs
	// detached from any single caller's context.
	sharedVerifyTimeout = 30 * time.Second
)

// APIKeyStore persists API key records. Plaintext keys never reach it.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: LookupAPIKey returns ErrAPIKeyNotFound for unknown lookup ids;
//   any other error is treated as a store failure.
type APIKeyStore interface {
	SaveAPIKey(ctx context.Context, key *APIKey) error
	LookupAPIKey(ctx context.Context, lookupID string) (*APIKey, error)
	TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error
	RevokeAPIKey(ctx context.Context, id string) error
}

// APIKeyConfig configures the API key service.
type APIKeyConfig struct {
	// Prefix tags every key so it can be told apart from bearer tokens.
	// Default: "ak"
	Prefix string

	// Now overrides the clock. Default: time.Now
	Now func() time.Time
}

// APIKeyService generates and verifies API keys.
type APIKeyService struct {
	config     APIKeyConfig
	store      APIKeyStore
	hasher     *PasswordHasher
	principals PrincipalRepository
	guard      *resilience.Executor
	inflight   singleflight.Group
}

// APIKeyOption configures an APIKeyService.
type APIKeyOption func(*APIKeyService)

// WithKeyOwners resolves key owners through repo. Without it the owner is
// represented by a stub principal carrying only its id.
func WithKeyOwners(repo PrincipalRepository) APIKeyOption {
	return func(s *APIKeyService) {
		s.principals = repo
	}
}

// WithStoreGuard runs every store call through guard (circuit breaker,
// timeout).
func WithStoreGuard(guard *resilience.Executor) APIKeyOption {
	return func(s *APIKeyService) {
		s.guard = guard
	}
}

// NewAPIKeyService creates an API key service.
func NewAPIKeyService(config APIKeyConfig, store APIKeyStore, hasher *PasswordHasher, opts ...APIKeyOption) (*APIKeyService, error) {
	if store == nil {
		return nil, errors.New("api key service: store is required")
	}
	if hasher == nil {
		return nil, errors.New("api key service: hasher is required")
	}
	if config.Prefix == "" {
		config.Prefix = DefaultAPIKeyPrefix
	}
	if !isAlphanumeric(config.Prefix) {
		return nil, fmt.Errorf("api key service: prefix %q must be alphanumeric", config.Prefix)
	}
	if len(config.Prefix) > MaxAPIKeyPrefixLen {
		return nil, fmt.Errorf("api key service: prefix %q exceeds %d characters", config.Prefix, MaxAPIKeyPrefixLen)
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	s := &APIKeyService{config: config, store: store, hasher: hasher}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Prefix returns the configured key prefix.
func (s *APIKeyService) Prefix() string {
	return s.config.Prefix
}

// Generate creates a key for ownerID and stores its hash. The returned
// plaintext is the only copy; it cannot be recovered later. ttl <= 0 means
// the key never expires.
func (s *APIKeyService) Generate(ctx context.Context, ownerID, name string, permissions []string, ttl time.Duration) (string, *APIKey, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", nil, errors.New("generate api key: owner id is required")
	}
	if _, err := ParsePermissions(permissions); err != nil {
		return "", nil, fmt.Errorf("generate api key: %w", err)
	}

	lookupID, err := randomAlphanumeric(apiKeyLookupLen)
	if err != nil {
		return "", nil, fmt.Errorf("generate api key: %w", err)
	}
	secretPart, err := randomAlphanumeric(apiKeySecretLen)
	if err != nil {
		return "", nil, fmt.Errorf("generate api key: %w", err)
	}
	plaintext := s.config.Prefix + "_" + lookupID + secretPart

	hash, err := s.hasher.Hash(ctx, plaintext)
	if err != nil {
		return "", nil, fmt.Errorf("generate api key: %w", err)
	}

	now := s.config.Now()
	key := &APIKey{
		ID:          uuid.NewString(),
		LookupID:    lookupID,
		Name:        name,
		Hash:        hash,
		OwnerID:     ownerID,
		Permissions: append([]string(nil), permissions...),
		Active:      true,
		CreatedAt:   now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		key.ExpiresAt = &expiresAt
	}

	if err := s.guarded(ctx, func(ctx context.Context) error {
		return s.store.SaveAPIKey(ctx, key)
	}); err != nil {
		return "", nil, fmt.Errorf("generate api key: %w", err)
	}
	return plaintext, key, nil
}

// HasPrefix reports whether candidate carries this service's key prefix.
// It is a cheap test that involves no hashing.
func (s *APIKeyService) HasPrefix(candidate string) bool {
	return strings.HasPrefix(candidate, s.config.Prefix+"_")
}

// ParseLookupID extracts the lookup id from a well-formed key.
func (s *APIKeyService) ParseLookupID(candidate string) (string, bool) {
	body, ok := strings.CutPrefix(candidate, s.config.Prefix+"_")
	if !ok || len(body) != apiKeyLookupLen+apiKeySecretLen || !isAlphanumeric(body) {
		return "", false
	}
	return body[:apiKeyLookupLen], true
}

type verifiedKey struct {
	principal   Principal
	permissions []string
	keyID       string
	expiresAt   time.Time
}

// Verify checks candidate and returns the owner with the key's permissions.
// Malformed keys are rejected before any store call or hash comparison.
func (s *APIKeyService) Verify(ctx context.Context, candidate string) (*Principal, []string, error) {
	v, err := s.verify(ctx, candidate)
	if err != nil {
		return nil, nil, err
	}
	p := v.principal
	return &p, append([]string(nil), v.permissions...), nil
}

func (s *APIKeyService) verify(ctx context.Context, candidate string) (*verifiedKey, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil, ErrMissingCredential
	}
	lookupID, ok := s.ParseLookupID(candidate)
	if !ok {
		return nil, fmt.Errorf("%w: malformed key", ErrInvalidAPIKey)
	}

	// Identical candidates arriving together share one bcrypt comparison.
	// The shared call must outlive whichever caller started it, so it runs
	// on a detached context and each caller waits on its own.
	sum := sha256.Sum256([]byte(candidate))
	ch := s.inflight.DoChan(hex.EncodeToString(sum[:]), func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedVerifyTimeout)
		defer cancel()
		return s.verifyLookup(sctx, lookupID, candidate)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*verifiedKey), nil
	}
}

func (s *APIKeyService) verifyLookup(ctx context.Context, lookupID, candidate string) (*verifiedKey, error) {
	var key *APIKey
	err := s.guarded(ctx, func(ctx context.Context) error {
		var err error
		key, err = s.store.LookupAPIKey(ctx, lookupID)
		return err
	})
	switch {
	case errors.Is(err, ErrAPIKeyNotFound):
		return nil, fmt.Errorf("%w: unknown key", ErrInvalidAPIKey)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrCredentialStore, err)
	case key == nil:
		return nil, fmt.Errorf("%w: unknown key", ErrInvalidAPIKey)
	}

	now := s.config.Now()
	if !key.Active {
		return nil, fmt.Errorf("%w: key revoked", ErrInvalidAPIKey)
	}
	if key.IsExpired(now) {
		return nil, fmt.Errorf("%w: key expired", ErrInvalidAPIKey)
	}

	match, err := s.hasher.Verify(ctx, candidate, key.Hash)
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, fmt.Errorf("%w: hash mismatch", ErrInvalidAPIKey)
	}

	owner, err := s.owner(ctx, key.OwnerID)
	if err != nil {
		return nil, err
	}

	// Usage tracking never fails the request.
	_ = s.guarded(ctx, func(ctx context.Context) error {
		return s.store.TouchAPIKey(ctx, key.ID, now)
	})

	v := &verifiedKey{
		principal:   *owner,
		permissions: key.Permissions,
		keyID:       key.ID,
	}
	if key.ExpiresAt != nil {
		v.expiresAt = *key.ExpiresAt
	}
	return v, nil
}

func (s *APIKeyService) owner(ctx context.Context, ownerID string) (*Principal, error) {
	if s.principals == nil {
		return &Principal{ID: ownerID, Active: true}, nil
	}

	var p *Principal
	err := s.guarded(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.principals.FindPrincipal(ctx, ownerID)
		return err
	})
	switch {
	case errors.Is(err, ErrPrincipalNotFound), err == nil && p == nil:
		return nil, fmt.Errorf("%w: owner not found", ErrInvalidAPIKey)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrCredentialStore, err)
	case !p.Active:
		return nil, fmt.Errorf("%w: owner inactive", ErrInvalidAPIKey)
	}
	return p, nil
}

// Revoke deactivates the key with the given record id.
func (s *APIKeyService) Revoke(ctx context.Context, id string) error {
	return s.guarded(ctx, func(ctx context.Context) error {
		return s.store.RevokeAPIKey(ctx, id)
	})
}

func (s *APIKeyService) guarded(ctx context.Context, op func(context.Context) error) error {
	return s.guard.Execute(ctx, op)
}

// IsStoreFailure classifies store errors for a circuit breaker: misses are
// normal traffic, everything else counts.
func IsStoreFailure(err error) bool {
	return err != nil &&
		!errors.Is(err, ErrAPIKeyNotFound) &&
		!errors.Is(err, ErrPrincipalNotFound)
}

func randomAlphanumeric(n int) (string, error) {
	limit := big.NewInt(int64(len(apiKeyAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(apiKeyAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
