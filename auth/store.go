package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory APIKeyStore and PrincipalRepository, for tests
// and single-process deployments.
type MemoryStore struct {
	mu         sync.RWMutex
	keys       map[string]*APIKey // keyed by lookup id
	byID       map[string]string  // record id -> lookup id
	principals map[string]*Principal
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys:       make(map[string]*APIKey),
		byID:       make(map[string]string),
		principals: make(map[string]*Principal),
	}
}

// SaveAPIKey stores a copy of key.
func (s *MemoryStore) SaveAPIKey(_ context.Context, key *APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *key
	s.keys[key.LookupID] = &cp
	s.byID[key.ID] = key.LookupID
	return nil
}

// LookupAPIKey returns a copy of the key with the given lookup id.
func (s *MemoryStore) LookupAPIKey(_ context.Context, lookupID string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[lookupID]
	if !ok {
		return nil, ErrAPIKeyNotFound
	}
	cp := *key
	return &cp, nil
}

// TouchAPIKey records the last use of a key.
func (s *MemoryStore) TouchAPIKey(_ context.Context, id string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[s.byID[id]]
	if !ok {
		return ErrAPIKeyNotFound
	}
	t := usedAt
	key.LastUsedAt = &t
	return nil
}

// RevokeAPIKey marks a key inactive.
func (s *MemoryStore) RevokeAPIKey(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[s.byID[id]]
	if !ok {
		return ErrAPIKeyNotFound
	}
	key.Active = false
	return nil
}

// PutPrincipal adds or replaces a principal.
func (s *MemoryStore) PutPrincipal(p Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principals[p.ID] = &p
}

// FindPrincipal returns a copy of the principal.
func (s *MemoryStore) FindPrincipal(_ context.Context, id string) (*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.principals[id]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	cp := *p
	return &cp, nil
}

// Ensure MemoryStore implements APIKeyStore
var _ APIKeyStore = (*MemoryStore)(nil)

// Ensure MemoryStore implements PrincipalRepository
var _ PrincipalRepository = (*MemoryStore)(nil)
