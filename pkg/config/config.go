package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Security      SecurityConfig
	Pricing       PricingConfig
	Checkout      CheckoutConfig
	Identity      IdentityConfig
	TwoFactor     TwoFactorConfig
	Callable      CallableConfig
	Payments      PaymentsConfig
	AuthRateLimit AuthRateLimitConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either STOREFRONT_DB_DSN or host/user/name settings are required")
	}
	d.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"STOREFRONT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type SecurityConfig struct {
	ArgonMemoryKB    int `envconfig:"STOREFRONT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STOREFRONT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STOREFRONT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STOREFRONT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STOREFRONT_ARGON_KEY_LEN" default:"32"`
}

// PricingConfig tunes the optimistic/authoritative pricing cycle.
type PricingConfig struct {
	QuiescenceWindow time.Duration `envconfig:"STOREFRONT_PRICING_QUIESCENCE_WINDOW" default:"500ms"`
	RetryAttempts    int           `envconfig:"STOREFRONT_PRICING_RETRY_ATTEMPTS" default:"3"`
	RetryBackoff     time.Duration `envconfig:"STOREFRONT_PRICING_RETRY_BACKOFF" default:"2s"`
	RequestTimeout   time.Duration `envconfig:"STOREFRONT_PRICING_REQUEST_TIMEOUT" default:"15s"`
	FallbackCurrency string        `envconfig:"STOREFRONT_PRICING_FALLBACK_CURRENCY" default:"USD"`
}

type CheckoutConfig struct {
	ValidationTimeout time.Duration `envconfig:"STOREFRONT_CHECKOUT_VALIDATION_TIMEOUT" default:"15s"`
	SessionTTL        time.Duration `envconfig:"STOREFRONT_CHECKOUT_SESSION_TTL" default:"30m"`
}

// IdentityConfig points at the external identity provider.
type IdentityConfig struct {
	BaseURL     string        `envconfig:"STOREFRONT_IDENTITY_BASE_URL" required:"true"`
	APIKey      string        `envconfig:"STOREFRONT_IDENTITY_API_KEY" required:"true"`
	AuthTimeout time.Duration `envconfig:"STOREFRONT_IDENTITY_AUTH_TIMEOUT" default:"30s"`
}

type TwoFactorConfig struct {
	CheckTimeout time.Duration `envconfig:"STOREFRONT_TWOFACTOR_CHECK_TIMEOUT" default:"10s"`
	CodeTTL      time.Duration `envconfig:"STOREFRONT_TWOFACTOR_CODE_TTL" default:"10m"`
	CodeLength   int           `envconfig:"STOREFRONT_TWOFACTOR_CODE_LENGTH" default:"6"`
}

// CallableConfig points at the remote callable function gateway.
type CallableConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_CALLABLE_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"STOREFRONT_CALLABLE_TIMEOUT" default:"20s"`
}

type PaymentsConfig struct {
	SquareAccessToken   string `envconfig:"STOREFRONT_SQUARE_ACCESS_TOKEN"`
	SquareEnv           string `envconfig:"STOREFRONT_SQUARE_ENV" default:"sandbox"`
	SquareLocationID    string `envconfig:"STOREFRONT_SQUARE_LOCATION_ID"`
	SquareWebhookSecret string `envconfig:"STOREFRONT_SQUARE_WEBHOOK_SECRET"`
}

// Environment reports the configured Square environment.
func (p PaymentsConfig) Environment() string {
	return p.SquareEnv
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	CheckoutTopic string `envconfig:"STOREFRONT_PUBSUB_CHECKOUT_TOPIC"`
}

// AuthRateLimitConfig throttles the credential-bearing auth endpoints.
type AuthRateLimitConfig struct {
	SignInWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RL_SIGNIN_WINDOW" default:"1m"`
	SignInIPLimit    int           `envconfig:"STOREFRONT_AUTH_RL_SIGNIN_IP_LIMIT" default:"10"`
	SignInEmailLimit int           `envconfig:"STOREFRONT_AUTH_RL_SIGNIN_EMAIL_LIMIT" default:"5"`
	ResetWindow      time.Duration `envconfig:"STOREFRONT_AUTH_RL_RESET_WINDOW" default:"5m"`
	ResetIPLimit     int           `envconfig:"STOREFRONT_AUTH_RL_RESET_IP_LIMIT" default:"5"`
	ResetEmailLimit  int           `envconfig:"STOREFRONT_AUTH_RL_RESET_EMAIL_LIMIT" default:"3"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}
