package config

// EnvPrefix is the envconfig prefix for all application settings.
const EnvPrefix = "ZB"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names referenced outside envconfig tags.
const (
	EnvAppEnv    = "ZB_APP_ENV"
	EnvPort      = "ZB_APP_PORT"
	EnvDBDSN     = "ZB_DB_DSN"
	EnvDBHost    = "ZB_DB_HOST"
	EnvDBUser    = "ZB_DB_USER"
	EnvDBName    = "ZB_DB_NAME"
	EnvRedisURL  = "ZB_REDIS_URL"
	EnvJWTSecret = "ZB_JWT_SECRET"
	EnvJWTIssuer = "ZB_JWT_ISSUER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
