package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonwraymond/authcore/observe"
)

// Strategy names a request authentication policy.
type Strategy string

const (
	StrategyToken    Strategy = "token"
	StrategyAPIKey   Strategy = "api_key"
	StrategyEither   Strategy = "either"
	StrategyOptional Strategy = "optional"
)

// ParseStrategy converts a configured strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(name); s {
	case StrategyToken, StrategyAPIKey, StrategyEither, StrategyOptional:
		return s, nil
	}
	return "", fmt.Errorf("auth: unknown strategy %q", name)
}

// ChainConfig configures the authentication chain.
type ChainConfig struct {
	// APIKeysEnabled turns API key authentication on. When false,
	// RequireAPIKey rejects every request and RequireEither only accepts
	// tokens.
	APIKeysEnabled bool

	// APIKeyHeader is the header carrying API keys. Default: X-API-Key
	APIKeyHeader string

	// APIKeyQueryParam is the query parameter fallback. Default: api_key
	APIKeyQueryParam string
}

// Chain builds net/http middleware for each authentication strategy.
// Successful strategies attach an *Identity to the request context.
type Chain struct {
	config ChainConfig
	bearer Authenticator
	apiKey Authenticator
	either Authenticator
	obs    *observe.Middleware
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithObservability records every attempt through mw.
func WithObservability(mw *observe.Middleware) ChainOption {
	return func(c *Chain) {
		if mw != nil {
			c.obs = mw
		}
	}
}

// NewChain creates an authentication chain. keys may be nil only when API
// keys are disabled.
func NewChain(config ChainConfig, tokens TokenVerifier, keys *APIKeyService, opts ...ChainOption) (*Chain, error) {
	if tokens == nil {
		return nil, errors.New("auth chain: token verifier is required")
	}
	if config.APIKeysEnabled && keys == nil {
		return nil, errors.New("auth chain: api key service is required when api keys are enabled")
	}

	c := &Chain{
		config: config,
		bearer: NewBearerAuthenticator(tokens),
		obs:    observe.NewNoopMiddleware(),
	}
	if config.APIKeysEnabled {
		c.apiKey = NewAPIKeyAuthenticator(keys, config.APIKeyHeader, config.APIKeyQueryParam)
		c.either = NewCompositeAuthenticator(c.bearer, c.apiKey)
	} else {
		c.either = NewCompositeAuthenticator(c.bearer)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RequireToken admits only requests with a valid bearer token.
func (c *Chain) RequireToken(next http.Handler) http.Handler {
	return c.require(StrategyToken, c.bearer, msgAuthRequired, next)
}

// RequireAPIKey admits only requests with a valid API key.
func (c *Chain) RequireAPIKey(next http.Handler) http.Handler {
	return c.require(StrategyAPIKey, c.apiKey, msgAuthRequired, next)
}

// RequireEither tries the bearer token first and falls back to an API key.
// With API keys disabled it behaves like RequireToken.
func (c *Chain) RequireEither(next http.Handler) http.Handler {
	msg := msgEitherRequired
	if !c.config.APIKeysEnabled {
		msg = msgAuthRequired
	}
	return c.require(StrategyEither, c.either, msg, next)
}

// Optional attaches an identity when the request carries a valid credential
// and passes the request through unchanged otherwise. It never rejects.
func (c *Chain) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := c.authenticate(r, StrategyOptional, c.either)
		if id != nil {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// Middleware returns the middleware for a named strategy.
func (c *Chain) Middleware(s Strategy) (func(http.Handler) http.Handler, error) {
	switch s {
	case StrategyToken:
		return c.RequireToken, nil
	case StrategyAPIKey:
		return c.RequireAPIKey, nil
	case StrategyEither:
		return c.RequireEither, nil
	case StrategyOptional:
		return c.Optional, nil
	}
	return nil, fmt.Errorf("auth: unknown strategy %q", s)
}

// Authenticate runs a strategy against r without writing a response. It
// returns the identity or the reason the strategy failed. Optional never
// returns an error.
func (c *Chain) Authenticate(r *http.Request, s Strategy) (*Identity, error) {
	switch s {
	case StrategyToken:
		return c.authenticate(r, s, c.bearer)
	case StrategyAPIKey:
		return c.authenticate(r, s, c.apiKey)
	case StrategyEither:
		return c.authenticate(r, s, c.either)
	case StrategyOptional:
		id, _ := c.authenticate(r, s, c.either)
		return id, nil
	}
	return nil, fmt.Errorf("auth: unknown strategy %q", s)
}

func (c *Chain) require(s Strategy, a Authenticator, message string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := c.authenticate(r, s, a)
		if err != nil {
			WriteUnauthorized(w, message)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (c *Chain) authenticate(r *http.Request, s Strategy, a Authenticator) (*Identity, error) {
	req := RequestFromHTTP(r)
	var id *Identity

	_, err := c.obs.Observe(r.Context(), string(s), func(ctx context.Context) (observe.Decision, error) {
		if a == nil {
			return observe.Decision{Outcome: observe.OutcomeRejected}, ErrAPIKeysDisabled
		}
		if !a.Supports(ctx, req) {
			if s == StrategyOptional {
				return observe.Decision{Outcome: observe.OutcomeAnonymous}, nil
			}
			return observe.Decision{Outcome: observe.OutcomeRejected}, ErrMissingCredential
		}

		result, err := a.Authenticate(ctx, req)
		if err != nil {
			return observe.Decision{Outcome: observe.OutcomeError}, err
		}
		if !result.Authenticated {
			outcome := observe.OutcomeRejected
			if s == StrategyOptional {
				outcome = observe.OutcomeAnonymous
			}
			return observe.Decision{Method: string(result.Method), Outcome: outcome}, result.Error
		}

		id = result.Identity
		return observe.Decision{
			Method:      string(id.Method),
			Outcome:     observe.OutcomeAuthenticated,
			PrincipalID: id.Principal.ID,
		}, nil
	})
	if id != nil {
		return id, nil
	}
	if err == nil {
		err = ErrMissingCredential
	}
	return nil, err
}
