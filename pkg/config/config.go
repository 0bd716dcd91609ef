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
	Gateway      GatewayConfig
	Mailer       MailerConfig
	Admin        AdminConfig
	Cart         CartConfig
	Sweeper      SweeperConfig
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
	Env          string `envconfig:"PACKCREDITS_APP_ENV" required:"true"`
	Port         string `envconfig:"PACKCREDITS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PACKCREDITS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PACKCREDITS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"PACKCREDITS_DB_DSN"`

	Host     string `envconfig:"PACKCREDITS_DB_HOST"`
	Port     int    `envconfig:"PACKCREDITS_DB_PORT" default:"5432"`
	User     string `envconfig:"PACKCREDITS_DB_USER"`
	Password string `envconfig:"PACKCREDITS_DB_PASSWORD"`
	Name     string `envconfig:"PACKCREDITS_DB_NAME"`
	SSLMode  string `envconfig:"PACKCREDITS_DB_SSLMODE" default:"disable"`

	MaxOpenConns     int           `envconfig:"PACKCREDITS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns     int           `envconfig:"PACKCREDITS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime  time.Duration `envconfig:"PACKCREDITS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime  time.Duration `envconfig:"PACKCREDITS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	StatementTimeout time.Duration `envconfig:"PACKCREDITS_DB_STATEMENT_TIMEOUT" default:"5s"`
}

// ensureDSN assembles a postgres DSN from discrete parts when one is not set,
// then rides the statement timeout along as a runtime parameter so every
// store call is bounded server-side.
func (d *DBConfig) ensureDSN() error {
	if d.DSN == "" {
		if d.Host == "" || d.User == "" || d.Name == "" {
			return fmt.Errorf("either PACKCREDITS_DB_DSN or host/user/name parts are required")
		}
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.User, d.Password),
			Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
			Path:   d.Name,
		}
		q := u.Query()
		q.Set("sslmode", d.SSLMode)
		u.RawQuery = q.Encode()
		d.DSN = u.String()
	}
	d.applyStatementTimeout()
	return nil
}

// applyStatementTimeout appends statement_timeout to URL-form DSNs; pgx
// forwards unrecognized URL options to the server as session parameters. An
// operator-supplied value in the DSN wins, and keyword/value DSNs are left
// untouched.
func (d *DBConfig) applyStatementTimeout() {
	if d.StatementTimeout <= 0 {
		return
	}
	u, err := url.Parse(d.DSN)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return
	}
	q := u.Query()
	if q.Get("statement_timeout") != "" {
		return
	}
	q.Set("statement_timeout", fmt.Sprintf("%dms", d.StatementTimeout.Milliseconds()))
	u.RawQuery = q.Encode()
	d.DSN = u.String()
}

type RedisConfig struct {
	URL          string        `envconfig:"PACKCREDITS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PACKCREDITS_REDIS_ADDR"`
	Password     string        `envconfig:"PACKCREDITS_REDIS_PASSWORD"`
	DB           int           `envconfig:"PACKCREDITS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PACKCREDITS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PACKCREDITS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PACKCREDITS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PACKCREDITS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PACKCREDITS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// GatewayConfig carries the shared secret and tolerances for inbound payment
// webhooks. Passed to the signature verifier at construction time so nothing
// in the reconciliation path reads ambient process state.
type GatewayConfig struct {
	Name             string        `envconfig:"PACKCREDITS_GATEWAY_NAME" default:"paygate"`
	WebhookSecret    string        `envconfig:"PACKCREDITS_GATEWAY_WEBHOOK_SECRET" required:"true"`
	SignatureMaxSkew time.Duration `envconfig:"PACKCREDITS_GATEWAY_SIGNATURE_MAX_SKEW" default:"5m"`
	EventDedupeTTL   time.Duration `envconfig:"PACKCREDITS_GATEWAY_EVENT_DEDUPE_TTL" default:"72h"`
}

type MailerConfig struct {
	RelayURL    string        `envconfig:"PACKCREDITS_MAILER_RELAY_URL"`
	APIToken    string        `envconfig:"PACKCREDITS_MAILER_API_TOKEN"`
	FromAddress string        `envconfig:"PACKCREDITS_MAILER_FROM" default:"orders@packcredits.com"`
	Timeout     time.Duration `envconfig:"PACKCREDITS_MAILER_TIMEOUT" default:"10s"`
}

type AdminConfig struct {
	APIToken string `envconfig:"PACKCREDITS_ADMIN_API_TOKEN"`
}

type CartConfig struct {
	TTL time.Duration `envconfig:"PACKCREDITS_CART_TTL" default:"168h"`
}

type SweeperConfig struct {
	Interval    time.Duration `envconfig:"PACKCREDITS_SWEEPER_INTERVAL" default:"5m"`
	PassTimeout time.Duration `envconfig:"PACKCREDITS_SWEEPER_PASS_TIMEOUT" default:"1m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PACKCREDITS_AUTO_MIGRATE" default:"false"`
}
