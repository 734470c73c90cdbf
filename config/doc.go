// Package config loads authcore settings from the environment.
//
// Variables are grouped by prefix:
//
//	AUTH_TOKEN_     token signing (secrets, issuer, audience, lifetimes)
//	AUTH_APIKEY_    API key authentication
//	AUTH_STORE_     credential store selection and guarding
//	AUTH_BOOTSTRAP_ optional principal seeded at startup
//	AUTH_           service-wide settings (listen address, roles, hashing)
//	REDIS_          Redis store connection
//	OBSERVE_        logging, tracing and metrics
//
// Secret values may be literal or references understood by the secret
// package (secretref:env:NAME, secretref:file:/path). They are resolved by
// the caller, not by Load.
//
// A .env file in the working directory is loaded first when present.
// Variables already set in the process environment take precedence.
package config
