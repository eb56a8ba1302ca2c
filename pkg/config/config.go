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
	DB           DBConfig
	Redis        RedisConfig
	Blob         BlobConfig
	Media        MediaConfig
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
	Env          string `envconfig:"ORION_APP_ENV" required:"true"`
	Port         string `envconfig:"ORION_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ORION_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORION_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ORION_DB_DSN"`
	Driver string `envconfig:"ORION_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ORION_DB_HOST"`
	LegacyPort     int    `envconfig:"ORION_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORION_DB_USER"`
	LegacyPassword string `envconfig:"ORION_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORION_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORION_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORION_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORION_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORION_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORION_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORION_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ORION_REDIS_ADDR"`
	Password     string        `envconfig:"ORION_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORION_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORION_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORION_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORION_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORION_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORION_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// BlobConfig points the storage gateway at the blob endpoint.
type BlobConfig struct {
	BaseURL        string        `envconfig:"ORION_BLOB_BASE_URL" required:"true"`
	Token          string        `envconfig:"ORION_BLOB_TOKEN" required:"true"`
	RequestTimeout time.Duration `envconfig:"ORION_BLOB_REQUEST_TIMEOUT" default:"30s"`
	RandomSuffix   bool          `envconfig:"ORION_BLOB_RANDOM_SUFFIX" default:"true"`
}

type MediaConfig struct {
	MaxUploadMiB        int `envconfig:"ORION_MEDIA_MAX_UPLOAD_MIB" default:"10"`
	UploadRatePerMinute int `envconfig:"ORION_MEDIA_UPLOAD_RATE_PER_MIN" default:"30"`
}

// MaxUploadBytes converts the configured cap into bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	return int64(m.MaxUploadMiB) * 1024 * 1024
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ORION_AUTO_MIGRATE" default:"false"`
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
