package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Checkout     CheckoutConfig
	RateLimit    RateLimitConfig
	Payments     PaymentsConfig
	Shipping     ShippingConfig
	FeatureFlags FeatureFlagsConfig
	Outbox       OutboxConfig
	Jobs         JobsConfig
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
	Env          string `envconfig:"ZB_APP_ENV" required:"true"`
	Port         string `envconfig:"ZB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ZB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ZB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ZB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ZB_DB_DSN"`
	Driver string `envconfig:"ZB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ZB_DB_HOST"`
	LegacyPort     int    `envconfig:"ZB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ZB_DB_USER"`
	LegacyPassword string `envconfig:"ZB_DB_PASSWORD"`
	LegacyName     string `envconfig:"ZB_DB_NAME"`
	LegacySSLMode  string `envconfig:"ZB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ZB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ZB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ZB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ZB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ZB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ZB_REDIS_ADDR"`
	Password     string        `envconfig:"ZB_REDIS_PASSWORD"`
	DB           int           `envconfig:"ZB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ZB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ZB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ZB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ZB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ZB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ZB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ZB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ZB_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the access token TTL configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type CheckoutConfig struct {
	TermsVersion   string `envconfig:"ZB_CHECKOUT_TERMS_VERSION" required:"true"`
	PrivacyVersion string `envconfig:"ZB_CHECKOUT_PRIVACY_VERSION" required:"true"`
	TermsURL       string `envconfig:"ZB_CHECKOUT_TERMS_URL" default:"/terms"`
	PrivacyURL     string `envconfig:"ZB_CHECKOUT_PRIVACY_URL" default:"/privacy"`

	ReservationTTLGateway      time.Duration `envconfig:"ZB_CHECKOUT_RESERVATION_TTL_GATEWAY" default:"30m"`
	ReservationTTLBankTransfer time.Duration `envconfig:"ZB_CHECKOUT_RESERVATION_TTL_BANK_TRANSFER" default:"72h"`

	DefaultCountry string `envconfig:"ZB_CHECKOUT_DEFAULT_COUNTRY" default:"LT"`
	Currency       string `envconfig:"ZB_CHECKOUT_CURRENCY" default:"EUR"`
	MaxQtyPerLine  int    `envconfig:"ZB_CHECKOUT_MAX_QTY_PER_LINE" default:"1000"`
}

type RateLimitConfig struct {
	CheckoutWindow    time.Duration `envconfig:"ZB_RATELIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutIPLimit   int           `envconfig:"ZB_RATELIMIT_CHECKOUT_IP_LIMIT" default:"30"`
	CheckoutUserLimit int           `envconfig:"ZB_RATELIMIT_CHECKOUT_USER_LIMIT" default:"10"`
}

type PaymentsConfig struct {
	NeopayProjectID          string `envconfig:"ZB_NEOPAY_PROJECT_ID"`
	NeopayProjectKey         string `envconfig:"ZB_NEOPAY_PROJECT_KEY"`
	NeopayWidgetHost         string `envconfig:"ZB_NEOPAY_WIDGET_HOST" default:"https://psd2.neopay.lt"`
	NeopayRedirectURL        string `envconfig:"ZB_NEOPAY_REDIRECT_URL"`
	BankTransferInstructions string `envconfig:"ZB_BANK_TRANSFER_INSTRUCTIONS"`
}

type ShippingConfig struct {
	DefaultMethod string `envconfig:"ZB_SHIPPING_DEFAULT_METHOD" default:"lpexpress"`
	TaxClassCode  string `envconfig:"ZB_SHIPPING_TAX_CLASS" default:"shipping"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ZB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ZB_AUTO_MIGRATE" default:"false"`
}

type JobsConfig struct {
	SweepInterval       time.Duration `envconfig:"ZB_JOBS_SWEEP_INTERVAL" default:"1m"`
	LockTTL             time.Duration `envconfig:"ZB_JOBS_LOCK_TTL" default:"10m"`
	OutboxRetentionDays int           `envconfig:"ZB_JOBS_OUTBOX_RETENTION_DAYS" default:"30"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ZB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ZB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ZB_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
