// Package secret resolves signing secrets from configuration values.
//
// A value is either a literal, a literal containing ${VAR} references that
// are expanded strictly, or a reference resolved by a registered provider:
//
//	secretref:env:AUTH_ACCESS_SECRET
//	secretref:file:/run/secrets/refresh
//
// ResolveSigningKey additionally decodes "base64:" values and enforces a
// minimum key length. Providers must never log secret values.
package secret
