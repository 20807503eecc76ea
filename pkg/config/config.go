package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is applied to every envconfig lookup.
	EnvPrefix = "SOKONI"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	SMTP      SMTPConfig
	Delivery  DeliveryConfig
	Cron      CronConfig
	RateLimit RateLimitConfig
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
	Env          string `envconfig:"SOKONI_APP_ENV" required:"true"`
	Port         string `envconfig:"SOKONI_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SOKONI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOKONI_LOG_WARN_STACK" default:"false"`
	AdminEmail   string `envconfig:"SOKONI_ADMIN_EMAIL" default:"orders@sokoni.example"`

	CORSAllowedOrigins []string `envconfig:"SOKONI_CORS_ALLOWED_ORIGINS"`

	AutoMigrate bool `envconfig:"SOKONI_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"SOKONI_DB_DSN"`

	Host     string `envconfig:"SOKONI_DB_HOST"`
	Port     int    `envconfig:"SOKONI_DB_PORT" default:"5432"`
	User     string `envconfig:"SOKONI_DB_USER"`
	Password string `envconfig:"SOKONI_DB_PASSWORD"`
	Name     string `envconfig:"SOKONI_DB_NAME"`
	SSLMode  string `envconfig:"SOKONI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SOKONI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SOKONI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SOKONI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SOKONI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SOKONI_REDIS_URL"`
	Address      string        `envconfig:"SOKONI_REDIS_ADDR"`
	Password     string        `envconfig:"SOKONI_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOKONI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOKONI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOKONI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOKONI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOKONI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOKONI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SOKONI_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SOKONI_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SOKONI_JWT_EXPIRATION_MINUTES" default:"60"`
}

type SMTPConfig struct {
	Host        string `envconfig:"SOKONI_SMTP_HOST"`
	Port        int    `envconfig:"SOKONI_SMTP_PORT" default:"587"`
	Username    string `envconfig:"SOKONI_SMTP_USERNAME"`
	Password    string `envconfig:"SOKONI_SMTP_PASSWORD"`
	DefaultFrom string `envconfig:"SOKONI_SMTP_FROM" default:"no-reply@sokoni.example"`
}

// Addr returns the host:port pair the SMTP dialer expects.
func (s SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DeliveryConfig carries the fallback delivery fees used when the
// platform_settings table has no override.
type DeliveryConfig struct {
	HomeFee   float64 `envconfig:"SOKONI_DELIVERY_HOME_FEE" default:"3000"`
	PickupFee float64 `envconfig:"SOKONI_DELIVERY_PICKUP_FEE" default:"1500"`
}

// RateLimitConfig throttles order placement per buyer. A zero limit or
// window disables the check.
type RateLimitConfig struct {
	OrderLimit  int           `envconfig:"SOKONI_RATE_LIMIT_ORDER_LIMIT" default:"30"`
	OrderWindow time.Duration `envconfig:"SOKONI_RATE_LIMIT_ORDER_WINDOW" default:"1m"`
}

type CronConfig struct {
	PendingOrderTTLDays int           `envconfig:"SOKONI_CRON_PENDING_ORDER_TTL_DAYS" default:"7"`
	LockTTL             time.Duration `envconfig:"SOKONI_CRON_LOCK_TTL" default:"1h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := map[string]string{
		"SOKONI_DB_HOST": db.Host,
		"SOKONI_DB_USER": db.User,
		"SOKONI_DB_NAME": db.Name,
	}
	for _, key := range []string{"SOKONI_DB_HOST", "SOKONI_DB_USER", "SOKONI_DB_NAME"} {
		if required[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either SOKONI_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
