package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN    = "STOREFRONT_DB_DSN"
	EnvDBDriver = "STOREFRONT_DB_DRIVER"
	EnvDBHost   = "STOREFRONT_DB_HOST"
	EnvDBUser   = "STOREFRONT_DB_USER"
	EnvDBName   = "STOREFRONT_DB_NAME"
	EnvDBPass   = "STOREFRONT_DB_PASSWORD"

	EnvUseSQLite  = "STOREFRONT_USE_SQLITE"
	EnvSQLitePath = "STOREFRONT_SQLITE_PATH"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvGCPProjectID       = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic  = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub    = "STOREFRONT_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvOutboxMaxAttempts  = "STOREFRONT_OUTBOX_MAX_ATTEMPTS"
	EnvSMTPHost           = "STOREFRONT_SMTP_HOST"
	EnvSMTPFrom           = "STOREFRONT_SMTP_FROM"
	EnvAdminAPIToken      = "STOREFRONT_ADMIN_API_TOKEN"
	EnvCORSAllowedOrigins = "STOREFRONT_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
