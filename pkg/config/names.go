package config

// EnvPrefix is the envconfig prefix applied to every setting.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Canonical environment variable names, shared with tests and deploy tooling.
const (
	EnvAppEnv          = "STOREFRONT_APP_ENV"
	EnvPort            = "STOREFRONT_APP_PORT"
	EnvDBDSN           = "STOREFRONT_DB_DSN"
	EnvRedisURL        = "STOREFRONT_REDIS_URL"
	EnvJWTSecret       = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer       = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins      = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTL = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"
	EnvIdentityBaseURL = "STOREFRONT_IDENTITY_BASE_URL"
	EnvIdentityAPIKey  = "STOREFRONT_IDENTITY_API_KEY"
	EnvCallableBaseURL = "STOREFRONT_CALLABLE_BASE_URL"
)
