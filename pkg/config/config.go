package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "ORDERSTREAM"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv         = "ORDERSTREAM_APP_ENV"
	EnvMetricsPort    = "ORDERSTREAM_METRICS_PORT"
	EnvDBDSN          = "ORDERSTREAM_DB_DSN"
	EnvDBHost         = "ORDERSTREAM_DB_HOST"
	EnvDBUser         = "ORDERSTREAM_DB_USER"
	EnvDBName         = "ORDERSTREAM_DB_NAME"
	EnvRedisURL       = "ORDERSTREAM_REDIS_URL"
	EnvGCPProjectID   = "ORDERSTREAM_GCP_PROJECT_ID"
	EnvPubSubOrderSub = "ORDERSTREAM_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubAlerts   = "ORDERSTREAM_PUBSUB_ALERTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Ingest       IngestConfig
	Alerts       AlertsConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"ORDERSTREAM_APP_ENV" required:"true"`
	MetricsPort  string `envconfig:"ORDERSTREAM_METRICS_PORT" default:"9090"`
	LogLevel     string `envconfig:"ORDERSTREAM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORDERSTREAM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ORDERSTREAM_DB_DSN"`
	Driver string `envconfig:"ORDERSTREAM_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ORDERSTREAM_DB_HOST"`
	LegacyPort     int    `envconfig:"ORDERSTREAM_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORDERSTREAM_DB_USER"`
	LegacyPassword string `envconfig:"ORDERSTREAM_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORDERSTREAM_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORDERSTREAM_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERSTREAM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORDERSTREAM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERSTREAM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERSTREAM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERSTREAM_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ORDERSTREAM_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERSTREAM_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERSTREAM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERSTREAM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERSTREAM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERSTREAM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERSTREAM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERSTREAM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ORDERSTREAM_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"ORDERSTREAM_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ORDERSTREAM_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersSubscription string `envconfig:"ORDERSTREAM_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	AlertsTopic        string `envconfig:"ORDERSTREAM_PUBSUB_ALERTS_TOPIC" required:"true"`
}

type IngestConfig struct {
	MaxBatchSize int `envconfig:"ORDERSTREAM_INGEST_MAX_BATCH_SIZE" default:"10"`
	// BatchWait bounds how long a partial batch is held before dispatch.
	BatchWait        time.Duration `envconfig:"ORDERSTREAM_INGEST_BATCH_WAIT" default:"5s"`
	Workers          int           `envconfig:"ORDERSTREAM_INGEST_WORKERS" default:"4"`
	RecordByteBudget int           `envconfig:"ORDERSTREAM_INGEST_RECORD_BYTE_BUDGET" default:"399360"`
}

type AlertsConfig struct {
	AmountThreshold float64       `envconfig:"ORDERSTREAM_ALERT_AMOUNT_THRESHOLD" default:"500"`
	DedupeTTL       time.Duration `envconfig:"ORDERSTREAM_ALERT_DEDUPE_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ORDERSTREAM_AUTO_MIGRATE" default:"false"`
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
