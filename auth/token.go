package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RefreshTokenTTL is the fixed lifetime of refresh tokens.
const RefreshTokenTTL = 7 * 24 * time.Hour

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenConfig configures the token service.
type TokenConfig struct {
	// AccessSecret signs access tokens (HS256).
	AccessSecret []byte

	// RefreshSecret signs refresh tokens. It must be provisioned
	// independently of AccessSecret.
	RefreshSecret []byte

	// Issuer is written to and required in the iss claim.
	// Default: "authcore"
	Issuer string

	// Audience is written to and required in the aud claim.
	// Default: "authcore"
	Audience string

	// AccessTTL is the access token lifetime.
	// Default: 15 minutes
	AccessTTL time.Duration

	// Leeway tolerates clock skew when checking exp and iat.
	Leeway time.Duration

	// Now overrides the clock. Default: time.Now
	Now func() time.Time
}

// TokenPair is an access token with its companion refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type accessClaims struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
	Role        RoleID   `json:"role"`
	Permissions []string `json:"permissions"`
	Type        string   `json:"type"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   RoleID `json:"role"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues, verifies and refreshes signed tokens.
type TokenService struct {
	config     TokenConfig
	roles      *RoleRegistry
	principals PrincipalRepository
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithPrincipalRepository makes Verify and Refresh consult repo so that
// deactivated or deleted principals are rejected before token expiry.
func WithPrincipalRepository(repo PrincipalRepository) TokenOption {
	return func(s *TokenService) {
		s.principals = repo
	}
}

// NewTokenService creates a token service.
func NewTokenService(config TokenConfig, roles *RoleRegistry, opts ...TokenOption) (*TokenService, error) {
	if roles == nil {
		return nil, errors.New("token service: role registry is required")
	}
	if len(config.AccessSecret) == 0 {
		return nil, errors.New("token service: access secret is required")
	}
	if len(config.RefreshSecret) == 0 {
		return nil, errors.New("token service: refresh secret is required")
	}
	if bytes.Equal(config.AccessSecret, config.RefreshSecret) {
		return nil, errors.New("token service: refresh secret must differ from access secret")
	}

	// Apply defaults
	if config.Issuer == "" {
		config.Issuer = "authcore"
	}
	if config.Audience == "" {
		config.Audience = "authcore"
	}
	if config.AccessTTL <= 0 {
		config.AccessTTL = 15 * time.Minute
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	s := &TokenService{config: config, roles: roles}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration {
	return s.config.AccessTTL
}

func (s *TokenService) now() time.Time {
	return s.config.Now()
}

// Issue signs an access token for p. The role's permissions are resolved now
// and embedded, so later registry changes do not affect this token.
func (s *TokenService) Issue(_ context.Context, p Principal) (string, error) {
	token, _, err := s.issue(p)
	return token, err
}

func (s *TokenService) issue(p Principal) (string, time.Time, error) {
	if strings.TrimSpace(p.ID) == "" {
		return "", time.Time{}, errors.New("issue token: principal id is required")
	}
	if !p.Active {
		return "", time.Time{}, ErrInactivePrincipal
	}

	role := s.roles.ResolveForIssuance(p.Role)
	now := s.config.Now()
	expiresAt := now.Add(s.config.AccessTTL)

	claims := accessClaims{
		UserID:      p.ID,
		Email:       p.Email,
		Role:        role.ID,
		Permissions: role.PermissionStrings(),
		Type:        tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   p.ID,
			Audience:  jwt.ClaimStrings{s.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.AccessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, algorithm, issuer, audience and expiry in one
// pass. Every failure matches ErrInvalidToken; an expired token also matches
// ErrExpiredToken. Callers at the HTTP boundary must not distinguish them.
func (s *TokenService) Verify(ctx context.Context, token string) (*TokenPayload, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingCredential
	}

	var claims accessClaims
	if err := s.parse(token, &claims, s.config.AccessSecret); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrExpiredToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != tokenTypeAccess {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.Type)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: userId missing", ErrInvalidToken)
	}

	if s.principals != nil {
		if _, err := s.currentPrincipal(ctx, claims.UserID); err != nil {
			if errors.Is(err, ErrCredentialStore) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	payload := &TokenPayload{
		PrincipalID: claims.UserID,
		Email:       claims.Email,
		Role:        claims.Role,
		Permissions: claims.Permissions,
		Issuer:      claims.Issuer,
		TokenID:     claims.ID,
	}
	if len(claims.Audience) > 0 {
		payload.Audience = claims.Audience[0]
	}
	if claims.IssuedAt != nil {
		payload.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		payload.ExpiresAt = claims.ExpiresAt.Time
	}
	return payload, nil
}

// IssueRefresh signs a refresh token with the refresh secret and the fixed
// seven-day lifetime.
func (s *TokenService) IssueRefresh(_ context.Context, p Principal) (string, error) {
	if strings.TrimSpace(p.ID) == "" {
		return "", errors.New("issue refresh token: principal id is required")
	}
	if !p.Active {
		return "", ErrInactivePrincipal
	}

	now := s.config.Now()
	claims := refreshClaims{
		UserID: p.ID,
		Email:  p.Email,
		Role:   p.Role,
		Type:   tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   p.ID,
			Audience:  jwt.ClaimStrings{s.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTokenTTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.RefreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// IssuePair issues an access token and a refresh token for p.
func (s *TokenService) IssuePair(ctx context.Context, p Principal) (TokenPair, error) {
	access, expiresAt, err := s.issue(p)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.IssueRefresh(ctx, p)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}

// VerifyRefresh validates a refresh token. The type discriminator is
// mandatory. Every failure is ErrInvalidRefreshToken.
func (s *TokenService) VerifyRefresh(_ context.Context, token string) (*RefreshTokenPayload, error) {
	var claims refreshClaims
	if err := s.parse(strings.TrimSpace(token), &claims, s.config.RefreshSecret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}
	if claims.Type != tokenTypeRefresh {
		return nil, fmt.Errorf("%w: missing refresh discriminator", ErrInvalidRefreshToken)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: userId missing", ErrInvalidRefreshToken)
	}

	payload := &RefreshTokenPayload{
		PrincipalID: claims.UserID,
		Email:       claims.Email,
		Role:        claims.Role,
		Type:        claims.Type,
	}
	if claims.ExpiresAt != nil {
		payload.ExpiresAt = claims.ExpiresAt.Time
	}
	return payload, nil
}

// Refresh exchanges a valid refresh token for a new access token. It does
// not issue a new refresh token.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	token, _, err := s.RefreshWithExpiry(ctx, refreshToken)
	return token, err
}

// RefreshWithExpiry is Refresh that also reports the new token's expiry.
func (s *TokenService) RefreshWithExpiry(ctx context.Context, refreshToken string) (string, time.Time, error) {
	payload, err := s.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}

	stub := Principal{
		ID:     payload.PrincipalID,
		Email:  payload.Email,
		Role:   payload.Role,
		Active: true,
	}
	if s.principals != nil {
		current, err := s.currentPrincipal(ctx, payload.PrincipalID)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
		}
		stub = *current
	}

	token, expiresAt, err := s.issue(stub)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}
	return token, expiresAt, nil
}

func (s *TokenService) parse(token string, claims jwt.Claims, secret []byte) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithAudience(s.config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.config.Leeway),
		jwt.WithTimeFunc(s.config.Now),
	)
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	return err
}

func (s *TokenService) currentPrincipal(ctx context.Context, id string) (*Principal, error) {
	p, err := s.principals.FindPrincipal(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCredentialStore, err)
	}
	if p == nil {
		return nil, ErrPrincipalNotFound
	}
	if !p.Active {
		return nil, ErrInactivePrincipal
	}
	return p, nil
}
