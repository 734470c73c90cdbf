package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jonwraymond/authcore/auth"
	"github.com/jonwraymond/authcore/observe"
)

type bootCredentials struct {
	PrincipalID  string    `json:"principalId"`
	Role         string    `json:"role"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	APIKey       string    `json:"apiKey,omitempty"`
}

// bootstrap seeds the configured principal and writes its credentials to out.
// Credentials never go through the logger.
func (a *app) bootstrap(ctx context.Context, out io.Writer) error {
	boot := a.cfg.Boot
	if boot.PrincipalID == "" {
		return nil
	}

	now := time.Now().UTC()
	p := auth.Principal{
		ID:        boot.PrincipalID,
		Email:     boot.Email,
		Role:      auth.RoleID(boot.Role),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.put(ctx, p); err != nil {
		return fmt.Errorf("bootstrap principal: %w", err)
	}

	pair, err := a.tokens.IssuePair(ctx, p)
	if err != nil {
		return fmt.Errorf("bootstrap tokens: %w", err)
	}
	creds := bootCredentials{
		PrincipalID:  p.ID,
		Role:         boot.Role,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	}

	if a.cfg.APIKey.Enabled {
		role, err := a.roles.Lookup(p.Role)
		if err != nil {
			return fmt.Errorf("bootstrap api key: %w", err)
		}
		creds.APIKey, _, err = a.keys.Generate(ctx, p.ID, "bootstrap", role.PermissionStrings(), 0)
		if err != nil {
			return fmt.Errorf("bootstrap api key: %w", err)
		}
	}

	a.logger.Info(ctx, "bootstrap principal seeded",
		observe.F("principal_id", p.ID),
		observe.F("role", boot.Role),
	)
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(creds)
}
