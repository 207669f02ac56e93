package config

const (
	EnvPrefix = "pharmanet"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "PHARMANET_APP_ENV"
	EnvPort      = "PHARMANET_APP_PORT"
	EnvRedisURL  = "PHARMANET_REDIS_URL"
	EnvJWTSecret = "PHARMANET_JWT_SECRET"
	EnvJWTIssuer = "PHARMANET_JWT_ISSUER"

	EnvDBDSN  = "PHARMANET_DB_DSN"
	EnvDBHost = "PHARMANET_DB_HOST"
	EnvDBUser = "PHARMANET_DB_USER"
	EnvDBName = "PHARMANET_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
