package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Banking      BankingConfig
	Payouts      PayoutsConfig
	PayPal       PayPalConfig
	Stripe       StripeConfig
	Shopify      ShopifyConfig
	Invoicing    InvoicingConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Banking.Rates(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"ARTVAULT_APP_ENV" required:"true"`
	Port         string   `envconfig:"ARTVAULT_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"ARTVAULT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"ARTVAULT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"ARTVAULT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ARTVAULT_SERVICE_KIND" default:"api"`
	// MetricsAddr exposes /metrics on background workers; empty disables it.
	MetricsAddr string `envconfig:"ARTVAULT_METRICS_ADDR"`
}

type DBConfig struct {
	DSN    string `envconfig:"ARTVAULT_DB_DSN"`
	Driver string `envconfig:"ARTVAULT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ARTVAULT_DB_HOST"`
	LegacyPort     int    `envconfig:"ARTVAULT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ARTVAULT_DB_USER"`
	LegacyPassword string `envconfig:"ARTVAULT_DB_PASSWORD"`
	LegacyName     string `envconfig:"ARTVAULT_DB_NAME"`
	LegacySSLMode  string `envconfig:"ARTVAULT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ARTVAULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ARTVAULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ARTVAULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ARTVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the local SQLite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"ARTVAULT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ARTVAULT_REDIS_ADDR"`
	Password     string        `envconfig:"ARTVAULT_REDIS_PASSWORD"`
	DB           int           `envconfig:"ARTVAULT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ARTVAULT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ARTVAULT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ARTVAULT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ARTVAULT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ARTVAULT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ARTVAULT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ARTVAULT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ARTVAULT_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ARTVAULT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ARTVAULT_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"ARTVAULT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ARTVAULT_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"ARTVAULT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ARTVAULT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	PayoutsTopic        string `envconfig:"ARTVAULT_PUBSUB_PAYOUTS_TOPIC" required:"true"`
	PayoutsSubscription string `envconfig:"ARTVAULT_PUBSUB_PAYOUTS_SUBSCRIPTION"`
	PerksTopic          string `envconfig:"ARTVAULT_PUBSUB_PERKS_TOPIC" default:"av-perk-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ARTVAULT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ARTVAULT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ARTVAULT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// BankingConfig holds the economic constants of the credit and payout ledger.
type BankingConfig struct {
	NFCScanReward           int               `envconfig:"ARTVAULT_BANKING_NFC_SCAN_REWARD" default:"50"`
	SeriesCompletionReward  int               `envconfig:"ARTVAULT_BANKING_SERIES_COMPLETION_REWARD" default:"500"`
	DefaultPayoutPercentage string            `envconfig:"ARTVAULT_BANKING_DEFAULT_PAYOUT_PERCENTAGE" default:"70"`
	FXRates                 map[string]string `envconfig:"ARTVAULT_BANKING_FX_RATES"`
}

// DefaultPercentage parses the platform-wide payout percentage.
func (b BankingConfig) DefaultPercentage() (decimal.Decimal, error) {
	raw := strings.TrimSpace(b.DefaultPayoutPercentage)
	if raw == "" {
		return decimal.NewFromInt(70), nil
	}
	pct, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", EnvBankingDefaultPercent, raw, err)
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("%s must be within 0..100", EnvBankingDefaultPercent)
	}
	return pct, nil
}

// Rates parses the USD conversion table (currency code -> USD per unit).
func (b BankingConfig) Rates() (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal, len(b.FXRates)+1)
	for code, raw := range b.FXRates {
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %s: %w", EnvBankingFXRates, code, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("%s entry %s must be positive", EnvBankingFXRates, code)
		}
		rates[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	rates["USD"] = decimal.NewFromInt(1)
	return rates, nil
}

type PayoutsConfig struct {
	RailTimeout  time.Duration `envconfig:"ARTVAULT_PAYOUT_RAIL_TIMEOUT" default:"30s"`
	PollBatch    int           `envconfig:"ARTVAULT_PAYOUT_POLL_BATCH" default:"50"`
	EmailSubject string        `envconfig:"ARTVAULT_PAYOUT_EMAIL_SUBJECT" default:"You have a payout from ArtVault"`
}

type PayPalConfig struct {
	ClientID     string `envconfig:"ARTVAULT_PAYPAL_CLIENT_ID"`
	ClientSecret string `envconfig:"ARTVAULT_PAYPAL_CLIENT_SECRET"`
	BaseURL      string `envconfig:"ARTVAULT_PAYPAL_BASE_URL" default:"https://api-m.sandbox.paypal.com"`
}

// Enabled reports whether PayPal credentials were supplied.
func (p PayPalConfig) Enabled() bool {
	return strings.TrimSpace(p.ClientID) != "" && strings.TrimSpace(p.ClientSecret) != ""
}

type StripeConfig struct {
	APIKey string `envconfig:"ARTVAULT_STRIPE_API_KEY"`
	Env    string `envconfig:"ARTVAULT_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type ShopifyConfig struct {
	WebhookSecret  string        `envconfig:"ARTVAULT_SHOPIFY_WEBHOOK_SECRET"`
	IdempotencyTTL time.Duration `envconfig:"ARTVAULT_SHOPIFY_IDEMPOTENCY_TTL" default:"168h"`
}

type InvoicingConfig struct {
	BaseURL  string        `envconfig:"ARTVAULT_INVOICING_BASE_URL"`
	APIToken string        `envconfig:"ARTVAULT_INVOICING_API_TOKEN"`
	Timeout  time.Duration `envconfig:"ARTVAULT_INVOICING_TIMEOUT" default:"10s"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"ARTVAULT_CRON_INTERVAL" default:"15m"`
	JobTimeout time.Duration `envconfig:"ARTVAULT_CRON_JOB_TIMEOUT" default:"5m"`
}

// RateLimitConfig bounds money-moving collector calls and webhook deliveries.
// A zero limit disables that policy.
type RateLimitConfig struct {
	Window         time.Duration `envconfig:"ARTVAULT_RATE_LIMIT_WINDOW" default:"1m"`
	CollectorLimit int           `envconfig:"ARTVAULT_RATE_LIMIT_COLLECTOR" default:"30"`
	WebhookLimit   int           `envconfig:"ARTVAULT_RATE_LIMIT_WEBHOOK" default:"600"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:artvault.db?cache=shared"
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
