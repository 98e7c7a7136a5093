package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "IMOVIA"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv = "IMOVIA_APP_ENV"
	EnvDBDSN  = "IMOVIA_DB_DSN"
	EnvDBHost = "IMOVIA_DB_HOST"
	EnvDBUser = "IMOVIA_DB_USER"
	EnvDBName = "IMOVIA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Asaas        AsaasConfig
	Feed         FeedConfig
	AdminAuth    AdminAuthConfig
	Sync         SyncConfig
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
	Env          string `envconfig:"IMOVIA_APP_ENV" required:"true"`
	Port         string `envconfig:"IMOVIA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"IMOVIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"IMOVIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"IMOVIA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"IMOVIA_DB_DSN"`
	Driver string `envconfig:"IMOVIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"IMOVIA_DB_HOST"`
	LegacyPort     int    `envconfig:"IMOVIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"IMOVIA_DB_USER"`
	LegacyPassword string `envconfig:"IMOVIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"IMOVIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"IMOVIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"IMOVIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"IMOVIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"IMOVIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"IMOVIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"IMOVIA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"IMOVIA_REDIS_ADDR"`
	Password     string        `envconfig:"IMOVIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"IMOVIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"IMOVIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"IMOVIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"IMOVIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"IMOVIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"IMOVIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AsaasConfig carries the billing gateway credentials.
type AsaasConfig struct {
	APIKey string `envconfig:"IMOVIA_ASAAS_API_KEY"`
	Env    string `envconfig:"IMOVIA_ASAAS_ENV" default:"sandbox"`
}

// Environment returns the normalized Asaas environment (sandbox/production).
func (a AsaasConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(a.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// FeedConfig configures the listing feed endpoint.
type FeedConfig struct {
	Token         string `envconfig:"IMOVIA_FEED_TOKEN"`
	MaxImages     int    `envconfig:"IMOVIA_FEED_MAX_IMAGES" default:"50"`
	SiteURL       string `envconfig:"IMOVIA_FEED_SITE_URL" default:"https://imovia.app"`
	PublisherName string `envconfig:"IMOVIA_FEED_PUBLISHER_NAME" default:"Imovia"`
	ContactEmail  string `envconfig:"IMOVIA_FEED_CONTACT_EMAIL" default:"contato@imovia.app"`
}

type AdminAuthConfig struct {
	JWTSecret string `envconfig:"IMOVIA_ADMIN_JWT_SECRET"`
	Issuer    string `envconfig:"IMOVIA_ADMIN_JWT_ISSUER" default:"imovia"`
	TTL       time.Duration `envconfig:"IMOVIA_ADMIN_JWT_TTL" default:"12h"`
}

// SyncConfig controls the payment sync worker cadence.
type SyncConfig struct {
	Interval       time.Duration `envconfig:"IMOVIA_SYNC_INTERVAL" default:"6h"`
	PaymentLimit   int           `envconfig:"IMOVIA_SYNC_PAYMENT_LIMIT" default:"20"`
	BrokerPageSize int           `envconfig:"IMOVIA_SYNC_BROKER_PAGE_SIZE" default:"200"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"IMOVIA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	EntitlementTopic string `envconfig:"IMOVIA_PUBSUB_ENTITLEMENT_TOPIC"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"IMOVIA_AUTO_MIGRATE" default:"false"`
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
