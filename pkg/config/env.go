package config

// EnvPrefix is empty: the service reads the bare variable names the
// deployment already exports (DB_HOST, DB_USER, ...).
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "APP_ENV"
	EnvPort   = "PORT"

	EnvDBDSN  = "DB_DSN"
	EnvDBHost = "DB_HOST"
	EnvDBPort = "DB_PORT"
	EnvDBUser = "DB_USER"
	EnvDBPass = "DB_PASS"
	EnvDBName = "DB_NAME"

	EnvAuthDBName = "AUTH_DB_NAME"

	EnvTenantPoolMaxEntries = "TENANT_POOL_MAX_ENTRIES"
	EnvTenantPoolTTL        = "TENANT_POOL_TTL"
	EnvTenantMaxOpenConns   = "TENANT_DB_MAX_OPEN_CONNS"
	EnvTenantDBUser         = "TENANT_DB_USER"

	EnvRedisURL  = "REDIS_URL"
	EnvRedisAddr = "REDIS_ADDR"

	EnvJWTSecret              = "JWT_SECRET"
	EnvJWTIssuer              = "JWT_ISSUER"
	EnvJWTExpMins             = "JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "REFRESH_TOKEN_TTL_MINUTES"

	EnvSessionCookieName = "SESSION_COOKIE_NAME"

	EnvGCPProjectID   = "GCP_PROJECT_ID"
	EnvPubSubOCRTopic = "PUBSUB_OCR_TOPIC"
)

var platformDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
