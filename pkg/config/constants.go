package config

const (
	EnvPrefix = "ARTVAULT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "ARTVAULT_APP_ENV"
	EnvPort     = "ARTVAULT_APP_PORT"
	EnvLogLevel = "ARTVAULT_LOG_LEVEL"

	EnvDBDSN    = "ARTVAULT_DB_DSN"
	EnvDBDriver = "ARTVAULT_DB_DRIVER"
	EnvDBHost   = "ARTVAULT_DB_HOST"
	EnvDBUser   = "ARTVAULT_DB_USER"
	EnvDBName   = "ARTVAULT_DB_NAME"

	EnvRedisURL = "ARTVAULT_REDIS_URL"

	EnvJWTSecret  = "ARTVAULT_JWT_SECRET"
	EnvJWTIssuer  = "ARTVAULT_JWT_ISSUER"
	EnvJWTExpMins = "ARTVAULT_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite = "ARTVAULT_USE_SQLITE"

	EnvGCPProjectID          = "ARTVAULT_GCP_PROJECT_ID"
	EnvPubSubPayoutsTopic    = "ARTVAULT_PUBSUB_PAYOUTS_TOPIC"
	EnvPubSubPayoutsSub      = "ARTVAULT_PUBSUB_PAYOUTS_SUBSCRIPTION"
	EnvPubSubPerksTopic      = "ARTVAULT_PUBSUB_PERKS_TOPIC"
	EnvBankingDefaultPercent = "ARTVAULT_BANKING_DEFAULT_PAYOUT_PERCENTAGE"
	EnvBankingFXRates        = "ARTVAULT_BANKING_FX_RATES"
	EnvPayoutRailTimeout     = "ARTVAULT_PAYOUT_RAIL_TIMEOUT"
	EnvPayPalClientID        = "ARTVAULT_PAYPAL_CLIENT_ID"
	EnvPayPalSecret          = "ARTVAULT_PAYPAL_CLIENT_SECRET"
	EnvShopifyWebhookSecret  = "ARTVAULT_SHOPIFY_WEBHOOK_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)
