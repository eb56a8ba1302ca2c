package config

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "ORION"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv       = "ORION_APP_ENV"
	EnvPort         = "ORION_APP_PORT"
	EnvDBDSN        = "ORION_DB_DSN"
	EnvDBHost       = "ORION_DB_HOST"
	EnvDBUser       = "ORION_DB_USER"
	EnvDBName       = "ORION_DB_NAME"
	EnvRedisURL     = "ORION_REDIS_URL"
	EnvBlobBaseURL  = "ORION_BLOB_BASE_URL"
	EnvBlobToken    = "ORION_BLOB_TOKEN"
	EnvMaxUploadMiB = "ORION_MEDIA_MAX_UPLOAD_MIB"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
