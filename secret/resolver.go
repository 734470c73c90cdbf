package secret

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// MinSigningKeyBytes is the shortest accepted HMAC signing key.
const MinSigningKeyBytes = 32

const (
	refPrefix    = "secretref:"
	base64Prefix = "base64:"
)

// Resolver resolves secret references using registered providers.
type Resolver struct {
	providers map[string]Provider
}

// NewResolver creates a resolver over providers.
func NewResolver(providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// NewDefaultResolver creates a resolver with every provider in
// DefaultRegistry, each built with an empty configuration.
func NewDefaultResolver() (*Resolver, error) {
	r := NewResolver()
	for _, name := range DefaultRegistry.List() {
		p, err := DefaultRegistry.Create(name, nil)
		if err != nil {
			return nil, fmt.Errorf("create provider %q: %w", name, err)
		}
		r.Register(p)
	}
	return r, nil
}

// Register adds or replaces a provider.
func (r *Resolver) Register(provider Provider) {
	if provider == nil {
		return
	}
	r.providers[provider.Name()] = provider
}

// Close closes every registered provider.
func (r *Resolver) Close() error {
	var first error
	for _, p := range r.providers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ParseSecretRef parses a full secret reference of the form
// secretref:<provider>:<ref>.
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, refPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, ok = strings.Cut(rest, ":")
	if !ok || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

// ResolveValue expands ${VAR} references and, when the result is a secretref,
// resolves it through the named provider. A reference that resolves to an
// empty string is an error.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}

	providerName, ref, ok := ParseSecretRef(expanded)
	if !ok {
		return expanded, nil
	}

	provider, found := r.providers[providerName]
	if !found {
		return "", fmt.Errorf("%w: %q", ErrProviderNotFound, providerName)
	}
	resolved, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if resolved == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptySecret, expanded)
	}
	return resolved, nil
}

// ResolveSigningKey resolves value into key bytes. A "base64:" prefix is
// decoded with standard encoding. name labels errors and is never the secret.
func (r *Resolver) ResolveSigningKey(ctx context.Context, name, value string) ([]byte, error) {
	resolved, err := r.ResolveValue(ctx, value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	key := []byte(resolved)
	if encoded, ok := strings.CutPrefix(resolved, base64Prefix); ok {
		key, err = base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%s: decode base64 key: %w", name, err)
		}
	}

	if len(key) < MinSigningKeyBytes {
		return nil, fmt.Errorf("%s: %w: %d bytes, need %d", name, ErrKeyTooShort, len(key), MinSigningKeyBytes)
	}
	return key, nil
}
