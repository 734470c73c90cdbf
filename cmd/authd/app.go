package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/authcore/auth"
	"github.com/jonwraymond/authcore/auth/redisstore"
	"github.com/jonwraymond/authcore/config"
	"github.com/jonwraymond/authcore/health"
	"github.com/jonwraymond/authcore/observe"
	"github.com/jonwraymond/authcore/resilience"
	"github.com/jonwraymond/authcore/secret"
)

// app holds the wired components of the daemon.
type app struct {
	cfg     config.Config
	logger  observe.Logger
	roles   *auth.RoleRegistry
	tokens  *auth.TokenService
	hasher  *auth.PasswordHasher
	keys    *auth.APIKeyService
	chain   *auth.Chain
	breaker *resilience.CircuitBreaker
	store   *backend
	health  *health.Registry
}

// backend is the credential store selected by configuration.
type backend struct {
	keys       auth.APIKeyStore
	principals auth.PrincipalRepository
	put        func(context.Context, auth.Principal) error
	ping       health.Pinger
	close      func() error
}

func openBackend(cfg config.Config) *backend {
	if cfg.Store.Backend == config.StoreRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s := redisstore.NewWithPrefix(client, cfg.Redis.KeyPrefix)
		return &backend{keys: s, principals: s, put: s.PutPrincipal, ping: s, close: client.Close}
	}

	m := auth.NewMemoryStore()
	return &backend{
		keys:       m,
		principals: m,
		put: func(_ context.Context, p auth.Principal) error {
			m.PutPrincipal(p)
			return nil
		},
		close: func() error { return nil },
	}
}

func newApp(ctx context.Context, cfg config.Config, obs observe.Observer) (*app, error) {
	a := &app{cfg: cfg, logger: obs.Logger()}

	secrets, err := secret.NewDefaultResolver()
	if err != nil {
		return nil, err
	}
	defer secrets.Close()

	accessKey, err := secrets.ResolveSigningKey(ctx, "AUTH_TOKEN_ACCESS_SECRET", cfg.Token.AccessSecret)
	if err != nil {
		return nil, err
	}
	refreshKey, err := secrets.ResolveSigningKey(ctx, "AUTH_TOKEN_REFRESH_SECRET", cfg.Token.RefreshSecret)
	if err != nil {
		return nil, err
	}

	if a.roles, err = cfg.RoleRegistry(); err != nil {
		return nil, err
	}
	a.hasher, err = auth.NewPasswordHasher(auth.HasherConfig{
		Cost:          cfg.Access.BcryptCost,
		MaxConcurrent: cfg.Access.HashConcurrency,
		MaxWait:       cfg.Access.HashWait,
	})
	if err != nil {
		return nil, err
	}

	a.store = openBackend(cfg)
	a.tokens, err = auth.NewTokenService(
		cfg.Token.Token(accessKey, refreshKey),
		a.roles,
		auth.WithPrincipalRepository(a.store.principals),
	)
	if err != nil {
		a.close()
		return nil, err
	}
	a.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  cfg.Store.BreakerMaxFailures,
		ResetTimeout: cfg.Store.BreakerReset,
		IsFailure:    auth.IsStoreFailure,
		OnStateChange: func(from, to resilience.State) {
			a.logger.Warn(context.Background(), "credential store circuit changed",
				observe.F("from", from.String()),
				observe.F("to", to.String()),
			)
		},
	})
	guard := resilience.NewExecutor(
		resilience.WithCircuitBreaker(a.breaker),
		resilience.WithTimeout(cfg.Store.Timeout),
	)

	a.keys, err = auth.NewAPIKeyService(
		auth.APIKeyConfig{Prefix: cfg.APIKey.Prefix},
		a.store.keys,
		a.hasher,
		auth.WithKeyOwners(a.store.principals),
		auth.WithStoreGuard(guard),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("auth telemetry: %w", err)
	}
	if a.chain, err = auth.NewChain(cfg.APIKey.Chain(), a.tokens, a.keys, auth.WithObservability(mw)); err != nil {
		a.close()
		return nil, err
	}

	a.health = health.NewRegistry(health.RegistryConfig{Timeout: cfg.Store.Timeout})
	a.health.Register(health.BreakerCheck("store_breaker", a.breaker))
	a.health.Register(health.PoolCheck("hash_pool", a.hasher.PoolMetrics))
	if a.store.ping != nil {
		a.health.Register(health.PingCheck("store", a.store.ping))
	}
	return a, nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.close(); err != nil {
		a.logger.Warn(context.Background(), "close credential store", observe.F("error", err))
	}
}
