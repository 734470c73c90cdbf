package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonwraymond/authcore/auth"
	"github.com/jonwraymond/authcore/observe"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config is the complete service configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `env:"AUTH_ADDR" envDefault:":8080"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"AUTH_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Token   TokenConfig   `envPrefix:"AUTH_TOKEN_"`
	APIKey  APIKeyConfig  `envPrefix:"AUTH_APIKEY_"`
	Access  AccessConfig  `envPrefix:"AUTH_"`
	Store   StoreConfig   `envPrefix:"AUTH_STORE_"`
	Boot    BootConfig    `envPrefix:"AUTH_BOOTSTRAP_"`
	Redis   RedisConfig   `envPrefix:"REDIS_"`
	Observe ObserveConfig `envPrefix:"OBSERVE_"`
}

// TokenConfig configures token signing. Both secrets are required and must
// differ.
type TokenConfig struct {
	AccessSecret  string        `env:"ACCESS_SECRET"`
	RefreshSecret string        `env:"REFRESH_SECRET"`
	Issuer        string        `env:"ISSUER" envDefault:"authcore"`
	Audience      string        `env:"AUDIENCE" envDefault:"authcore"`
	AccessTTL     time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	Leeway        time.Duration `env:"LEEWAY" envDefault:"0s"`
}

// APIKeyConfig configures API key authentication.
type APIKeyConfig struct {
	Enabled    bool   `env:"ENABLED" envDefault:"true"`
	Prefix     string `env:"PREFIX" envDefault:"ak"`
	Header     string `env:"HEADER" envDefault:"X-API-Key"`
	QueryParam string `env:"QUERY_PARAM" envDefault:"api_key"`
}

// AccessConfig holds the role table and hashing limits.
type AccessConfig struct {
	// Roles is the role table, see ParseRoles.
	Roles       string `env:"ROLES" envDefault:"admin=*:*;analyst=flows:read,flows:write;viewer=flows:read"`
	DefaultRole string `env:"DEFAULT_ROLE" envDefault:"viewer"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`

	// HashConcurrency bounds simultaneous bcrypt operations. Zero means
	// GOMAXPROCS.
	HashConcurrency int           `env:"HASH_CONCURRENCY" envDefault:"0"`
	HashWait        time.Duration `env:"HASH_WAIT" envDefault:"2s"`
}

// StoreConfig selects and guards the credential store.
type StoreConfig struct {
	Backend            string        `env:"BACKEND" envDefault:"memory"`
	Timeout            time.Duration `env:"TIMEOUT" envDefault:"2s"`
	BreakerMaxFailures int           `env:"BREAKER_MAX_FAILURES" envDefault:"5"`
	BreakerReset       time.Duration `env:"BREAKER_RESET" envDefault:"30s"`
}

// BootConfig seeds one principal at startup. Its credentials are written to
// stdout once. Leave PrincipalID empty to skip.
type BootConfig struct {
	PrincipalID string `env:"PRINCIPAL_ID"`
	Email       string `env:"EMAIL"`
	Role        string `env:"ROLE" envDefault:"admin"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr      string `env:"ADDR" envDefault:"localhost:6379"`
	Password  string `env:"PASSWORD"`
	DB        int    `env:"DB" envDefault:"0"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"authcore:"`
}

// ObserveConfig configures logging, tracing and metrics.
type ObserveConfig struct {
	ServiceName     string  `env:"SERVICE_NAME" envDefault:"authd"`
	Version         string  `env:"VERSION"`
	LogLevel        string  `env:"LOG_LEVEL" envDefault:"info"`
	TracingEnabled  bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingExporter string  `env:"TRACING_EXPORTER" envDefault:"otlp"`
	TracingEndpoint string  `env:"TRACING_ENDPOINT"`
	SamplePct       float64 `env:"TRACING_SAMPLE_PCT" envDefault:"1.0"`
	MetricsEnabled  bool    `env:"METRICS_ENABLED" envDefault:"false"`
	MetricsExporter string  `env:"METRICS_EXPORTER" envDefault:"prometheus"`
	MetricsEndpoint string  `env:"METRICS_ENDPOINT"`
}

// Observer converts the settings into an observe.Config.
func (c ObserveConfig) Observer() observe.Config {
	return observe.Config{
		ServiceName: c.ServiceName,
		Version:     c.Version,
		Tracing: observe.TracingConfig{
			Enabled:   c.TracingEnabled,
			Exporter:  c.TracingExporter,
			Endpoint:  c.TracingEndpoint,
			SamplePct: c.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.MetricsEnabled,
			Exporter: c.MetricsExporter,
			Endpoint: c.MetricsEndpoint,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.LogLevel,
		},
	}
}

// Load reads the given .env files (or ./.env when none are named and it
// exists), parses the environment and validates the result.
func Load(files ...string) (Config, error) {
	if err := loadDotEnv(files); err != nil {
		return Config{}, err
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse builds a Config from environ instead of the process environment.
// No .env file is read.
func Parse(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv(files []string) error {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return fmt.Errorf("load env files: %w", err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return fmt.Errorf("load .env file: %w", err)
		}
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Token.AccessSecret == "" {
		errs = append(errs, errors.New("AUTH_TOKEN_ACCESS_SECRET is required"))
	}
	if c.Token.RefreshSecret == "" {
		errs = append(errs, errors.New("AUTH_TOKEN_REFRESH_SECRET is required"))
	}
	if c.Token.AccessSecret != "" && c.Token.AccessSecret == c.Token.RefreshSecret {
		errs = append(errs, errors.New("AUTH_TOKEN_REFRESH_SECRET must differ from AUTH_TOKEN_ACCESS_SECRET"))
	}
	if c.Token.AccessTTL <= 0 {
		errs = append(errs, fmt.Errorf("AUTH_TOKEN_ACCESS_TTL must be positive, got %s", c.Token.AccessTTL))
	}
	if c.Token.Leeway < 0 {
		errs = append(errs, fmt.Errorf("AUTH_TOKEN_LEEWAY must not be negative, got %s", c.Token.Leeway))
	}

	if c.APIKey.Enabled && c.APIKey.Header == "" && c.APIKey.QueryParam == "" {
		errs = append(errs, errors.New("AUTH_APIKEY_HEADER or AUTH_APIKEY_QUERY_PARAM is required when API keys are enabled"))
	}
	if c.APIKey.Enabled && len(c.APIKey.Prefix) > auth.MaxAPIKeyPrefixLen {
		errs = append(errs, fmt.Errorf("AUTH_APIKEY_PREFIX must be at most %d characters, got %d",
			auth.MaxAPIKeyPrefixLen, len(c.APIKey.Prefix)))
	}

	if c.Access.BcryptCost < bcrypt.MinCost || c.Access.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("AUTH_BCRYPT_COST must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, c.Access.BcryptCost))
	}
	if c.Access.HashConcurrency < 0 {
		errs = append(errs, fmt.Errorf("AUTH_HASH_CONCURRENCY must not be negative, got %d", c.Access.HashConcurrency))
	}
	roles, err := c.RoleRegistry()
	if err != nil {
		errs = append(errs, err)
	} else if c.Boot.PrincipalID != "" {
		if _, err := roles.Lookup(auth.RoleID(c.Boot.Role)); err != nil {
			errs = append(errs, fmt.Errorf("AUTH_BOOTSTRAP_ROLE: %w", err))
		}
	}

	switch c.Store.Backend {
	case StoreMemory, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("AUTH_STORE_BACKEND must be %q or %q, got %q", StoreMemory, StoreRedis, c.Store.Backend))
	}
	if c.Store.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("AUTH_STORE_TIMEOUT must be positive, got %s", c.Store.Timeout))
	}
	if c.Store.BreakerMaxFailures <= 0 {
		errs = append(errs, fmt.Errorf("AUTH_STORE_BREAKER_MAX_FAILURES must be positive, got %d", c.Store.BreakerMaxFailures))
	}
	if c.Store.Backend == StoreRedis && c.Redis.Addr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required for the redis store"))
	}

	obs := c.Observe.Observer()
	if err := obs.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observe: %w", err))
	}

	return errors.Join(errs...)
}

// RoleRegistry parses the role table and builds the registry.
func (c *Config) RoleRegistry() (*auth.RoleRegistry, error) {
	roles, err := ParseRoles(c.Access.Roles)
	if err != nil {
		return nil, fmt.Errorf("AUTH_ROLES: %w", err)
	}
	reg, err := auth.NewRoleRegistry(roles, auth.RoleID(c.Access.DefaultRole))
	if err != nil {
		return nil, fmt.Errorf("AUTH_ROLES: %w", err)
	}
	return reg, nil
}

// Token converts the token settings into an auth.TokenConfig with the given
// resolved secrets.
func (c TokenConfig) Token(accessSecret, refreshSecret []byte) auth.TokenConfig {
	return auth.TokenConfig{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		Issuer:        c.Issuer,
		Audience:      c.Audience,
		AccessTTL:     c.AccessTTL,
		Leeway:        c.Leeway,
	}
}

// Chain converts the API key settings into an auth.ChainConfig.
func (c APIKeyConfig) Chain() auth.ChainConfig {
	return auth.ChainConfig{
		APIKeysEnabled:   c.Enabled,
		APIKeyHeader:     c.Header,
		APIKeyQueryParam: c.QueryParam,
	}
}
