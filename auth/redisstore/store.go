// Package redisstore keeps API key records and principals in Redis.
//
// Layout, relative to the configured prefix:
//
//	apikey:<lookup id>   JSON key record
//	apikey-id:<id>       lookup id for a record id
//	principal:<id>       JSON principal
//
// Only bcrypt hashes are stored. Misses map to auth.ErrAPIKeyNotFound and
// auth.ErrPrincipalNotFound; every other failure is returned wrapped so a
// circuit breaker can count it.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/authcore/auth"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "authcore:"

// Store is a Redis-backed auth.APIKeyStore and auth.PrincipalRepository.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// New creates a store using DefaultPrefix.
func New(client redis.UniversalClient) *Store {
	return NewWithPrefix(client, DefaultPrefix)
}

// NewWithPrefix creates a store with a custom key prefix.
func NewWithPrefix(client redis.UniversalClient, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

type keyRecord struct {
	ID          string     `json:"id"`
	LookupID    string     `json:"lookupId"`
	Name        string     `json:"name"`
	Hash        string     `json:"hash"`
	OwnerID     string     `json:"ownerId"`
	Permissions []string   `json:"permissions"`
	Active      bool       `json:"active"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
}

func toRecord(k *auth.APIKey) keyRecord {
	return keyRecord{
		ID:          k.ID,
		LookupID:    k.LookupID,
		Name:        k.Name,
		Hash:        k.Hash,
		OwnerID:     k.OwnerID,
		Permissions: k.Permissions,
		Active:      k.Active,
		ExpiresAt:   k.ExpiresAt,
		CreatedAt:   k.CreatedAt,
		LastUsedAt:  k.LastUsedAt,
	}
}

func (r keyRecord) apiKey() *auth.APIKey {
	return &auth.APIKey{
		ID:          r.ID,
		LookupID:    r.LookupID,
		Name:        r.Name,
		Hash:        r.Hash,
		OwnerID:     r.OwnerID,
		Permissions: r.Permissions,
		Active:      r.Active,
		ExpiresAt:   r.ExpiresAt,
		CreatedAt:   r.CreatedAt,
		LastUsedAt:  r.LastUsedAt,
	}
}

type principalRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Store) keyKey(lookupID string) string { return s.prefix + "apikey:" + lookupID }
func (s *Store) idKey(id string) string        { return s.prefix + "apikey-id:" + id }
func (s *Store) principalKey(id string) string { return s.prefix + "principal:" + id }

// SaveAPIKey writes the record and its id index in one transaction.
func (s *Store) SaveAPIKey(ctx context.Context, key *auth.APIKey) error {
	if key == nil || key.ID == "" || key.LookupID == "" {
		return errors.New("redisstore: api key id and lookup id are required")
	}

	data, err := json.Marshal(toRecord(key))
	if err != nil {
		return fmt.Errorf("marshal api key: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keyKey(key.LookupID), data, 0)
		pipe.Set(ctx, s.idKey(key.ID), key.LookupID, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save api key: %w", err)
	}
	return nil
}

// LookupAPIKey returns the record for lookupID.
func (s *Store) LookupAPIKey(ctx context.Context, lookupID string) (*auth.APIKey, error) {
	rec, err := s.loadKey(ctx, s.keyKey(lookupID))
	if err != nil {
		return nil, err
	}
	return rec.apiKey(), nil
}

// TouchAPIKey records the last use of the key with record id id.
func (s *Store) TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error {
	return s.updateKey(ctx, id, func(rec *keyRecord) {
		t := usedAt
		rec.LastUsedAt = &t
	})
}

// RevokeAPIKey marks the key with record id id inactive.
func (s *Store) RevokeAPIKey(ctx context.Context, id string) error {
	return s.updateKey(ctx, id, func(rec *keyRecord) {
		rec.Active = false
	})
}

// updateKey applies fn to a record under WATCH, retrying once when another
// writer gets there first.
func (s *Store) updateKey(ctx context.Context, id string, fn func(*keyRecord)) error {
	lookupID, err := s.client.Get(ctx, s.idKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return auth.ErrAPIKeyNotFound
		}
		return fmt.Errorf("redis get api key index: %w", err)
	}
	key := s.keyKey(lookupID)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return auth.ErrAPIKeyNotFound
			}
			return err
		}
		var rec keyRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("unmarshal api key: %w", err)
		}
		fn(&rec)
		updated, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal api key: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		return err
	}

	for range 2 {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil && !errors.Is(err, auth.ErrAPIKeyNotFound) {
		return fmt.Errorf("redis update api key: %w", err)
	}
	return err
}

func (s *Store) loadKey(ctx context.Context, key string) (*keyRecord, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, auth.ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("redis get api key: %w", err)
	}

	var rec keyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal api key: %w", err)
	}
	return &rec, nil
}

// PutPrincipal adds or replaces a principal.
func (s *Store) PutPrincipal(ctx context.Context, p auth.Principal) error {
	if p.ID == "" {
		return errors.New("redisstore: principal id is required")
	}
	data, err := json.Marshal(principalRecord{
		ID:        p.ID,
		Email:     p.Email,
		Role:      string(p.Role),
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal principal: %w", err)
	}
	if err := s.client.Set(ctx, s.principalKey(p.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set principal: %w", err)
	}
	return nil
}

// FindPrincipal returns the principal with the given id.
func (s *Store) FindPrincipal(ctx context.Context, id string) (*auth.Principal, error) {
	if id == "" {
		return nil, auth.ErrPrincipalNotFound
	}
	data, err := s.client.Get(ctx, s.principalKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, auth.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("redis get principal: %w", err)
	}

	var rec principalRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal principal: %w", err)
	}
	return &auth.Principal{
		ID:        rec.ID,
		Email:     rec.Email,
		Role:      auth.RoleID(rec.Role),
		Active:    rec.Active,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var (
	_ auth.APIKeyStore         = (*Store)(nil)
	_ auth.PrincipalRepository = (*Store)(nil)
)
