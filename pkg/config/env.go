package config

const (
	EnvPrefix = "TRIPDASH"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv      = "TRIPDASH_APP_ENV"
	EnvLogLevel    = "TRIPDASH_LOG_LEVEL"
	EnvServiceKind = "TRIPDASH_SERVICE_KIND"

	EnvDBDSN  = "TRIPDASH_DB_DSN"
	EnvDBHost = "TRIPDASH_DB_HOST"
	EnvDBPort = "TRIPDASH_DB_PORT"
	EnvDBUser = "TRIPDASH_DB_USER"
	EnvDBPass = "TRIPDASH_DB_PASSWORD"
	EnvDBName = "TRIPDASH_DB_NAME"

	EnvRedisURL  = "TRIPDASH_REDIS_URL"
	EnvRedisAddr = "TRIPDASH_REDIS_ADDR"

	EnvAutoMigrate = "TRIPDASH_AUTO_MIGRATE"

	EnvPipelineBatchSize     = "TRIPDASH_PIPELINE_BATCH_SIZE"
	EnvPipelineInterval      = "TRIPDASH_PIPELINE_INTERVAL"
	EnvPipelineTimeout       = "TRIPDASH_PIPELINE_TIMEOUT"
	EnvPipelineDefaultRating = "TRIPDASH_PIPELINE_DEFAULT_RATING"

	EnvIngestSourcePath = "TRIPDASH_INGEST_SOURCE_PATH"
)

// legacyDBEnvVars are the discrete settings that must all be present when no DSN is given.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
