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
	FeatureFlags FeatureFlagsConfig
	Pipeline     PipelineConfig
	Ingest       IngestConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Pipeline.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TRIPDASH_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"TRIPDASH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TRIPDASH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TRIPDASH_SERVICE_KIND" default:"etl"`
}

type DBConfig struct {
	DSN    string `envconfig:"TRIPDASH_DB_DSN"`
	Driver string `envconfig:"TRIPDASH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRIPDASH_DB_HOST"`
	LegacyPort     int    `envconfig:"TRIPDASH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRIPDASH_DB_USER"`
	LegacyPassword string `envconfig:"TRIPDASH_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRIPDASH_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRIPDASH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRIPDASH_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"TRIPDASH_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"TRIPDASH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRIPDASH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRIPDASH_REDIS_URL"`
	Address      string        `envconfig:"TRIPDASH_REDIS_ADDR"`
	Password     string        `envconfig:"TRIPDASH_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRIPDASH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRIPDASH_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"TRIPDASH_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"TRIPDASH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRIPDASH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRIPDASH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TRIPDASH_AUTO_MIGRATE" default:"false"`
}

// PipelineConfig tunes the raw -> cleaned -> enriched batch job.
type PipelineConfig struct {
	BatchSize     int           `envconfig:"TRIPDASH_PIPELINE_BATCH_SIZE" default:"1000"`
	Interval      time.Duration `envconfig:"TRIPDASH_PIPELINE_INTERVAL" default:"24h"`
	Timeout       time.Duration `envconfig:"TRIPDASH_PIPELINE_TIMEOUT" default:"0"`
	LockTTL       time.Duration `envconfig:"TRIPDASH_PIPELINE_LOCK_TTL" default:"2h"`
	DefaultRating float64       `envconfig:"TRIPDASH_PIPELINE_DEFAULT_RATING" default:"4.5"`
}

func (p PipelineConfig) validate() error {
	if p.BatchSize <= 0 {
		return fmt.Errorf("%s must be positive", EnvPipelineBatchSize)
	}
	if p.DefaultRating < 0 || p.DefaultRating > 5 {
		return fmt.Errorf("%s must be between 0 and 5", EnvPipelineDefaultRating)
	}
	return nil
}

// IngestConfig points the bulk loader at its tabular source.
type IngestConfig struct {
	SourcePath string `envconfig:"TRIPDASH_INGEST_SOURCE_PATH" default:"database/original_dataset.csv"`
	NullMarker string `envconfig:"TRIPDASH_INGEST_NULL_MARKER" default:"null"`
	BatchSize  int    `envconfig:"TRIPDASH_INGEST_BATCH_SIZE" default:"500"`
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
