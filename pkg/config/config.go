package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "HBB_DB_DSN"
	EnvDBHost = "HBB_DB_HOST"
	EnvDBUser = "HBB_DB_USER"
	EnvDBName = "HBB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Checkout     CheckoutConfig
	Payments     PaymentsConfig
	Delivery     DeliveryConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
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
	Env          string `envconfig:"HBB_APP_ENV" required:"true"`
	Port         string `envconfig:"HBB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HBB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HBB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"HBB_DB_DSN"`
	Driver string `envconfig:"HBB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HBB_DB_HOST"`
	LegacyPort     int    `envconfig:"HBB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HBB_DB_USER"`
	LegacyPassword string `envconfig:"HBB_DB_PASSWORD"`
	LegacyName     string `envconfig:"HBB_DB_NAME"`
	LegacySSLMode  string `envconfig:"HBB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HBB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HBB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HBB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HBB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HBB_REDIS_URL"`
	Address      string        `envconfig:"HBB_REDIS_ADDR"`
	Password     string        `envconfig:"HBB_REDIS_PASSWORD"`
	DB           int           `envconfig:"HBB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HBB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HBB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HBB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HBB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HBB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether a Redis endpoint was supplied at all. Redis is
// optional: it only backs the ephemeral session store variant.
func (r RedisConfig) Configured() bool {
	return r.URL != "" || r.Address != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"HBB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"HBB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"HBB_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CheckoutConfig struct {
	// SessionTTL bounds how long a priced session stays completable.
	SessionTTL   time.Duration `envconfig:"HBB_CHECKOUT_SESSION_TTL" default:"30m"`
	SessionStore string        `envconfig:"HBB_CHECKOUT_SESSION_STORE" default:"postgres"`
}

type PaymentsConfig struct {
	MaxProofsPerPayment int   `envconfig:"HBB_PAYMENTS_MAX_PROOFS" default:"3"`
	MaxProofSizeBytes   int64 `envconfig:"HBB_PAYMENTS_MAX_PROOF_SIZE_BYTES" default:"5242880"`
}

type DeliveryConfig struct {
	BaseETAMinutes int `envconfig:"HBB_DELIVERY_BASE_ETA_MINUTES" default:"30"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"HBB_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"HBB_PUBSUB_NOTIFICATION_TOPIC" default:"hbb-notification-events"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"HBB_AUTO_MIGRATE" default:"false"`
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
