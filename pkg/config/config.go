package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Stripe        StripeConfig
	Gacha         GachaConfig
	Medals        MedalsConfig
	Eventing      EventingConfig
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
	Env          string `envconfig:"KOEPON_APP_ENV" required:"true"`
	Port         string `envconfig:"KOEPON_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KOEPON_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KOEPON_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"KOEPON_DB_DSN"`

	Host     string `envconfig:"KOEPON_DB_HOST"`
	Port     int    `envconfig:"KOEPON_DB_PORT" default:"5432"`
	User     string `envconfig:"KOEPON_DB_USER"`
	Password string `envconfig:"KOEPON_DB_PASSWORD"`
	Name     string `envconfig:"KOEPON_DB_NAME"`
	SSLMode  string `envconfig:"KOEPON_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KOEPON_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KOEPON_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KOEPON_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KOEPON_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KOEPON_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KOEPON_REDIS_ADDR"`
	Password     string        `envconfig:"KOEPON_REDIS_PASSWORD"`
	DB           int           `envconfig:"KOEPON_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KOEPON_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KOEPON_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KOEPON_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KOEPON_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KOEPON_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"KOEPON_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"KOEPON_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"KOEPON_JWT_EXPIRATION_MINUTES" default:"15"`
	RefreshTokenTTLMinutes int    `envconfig:"KOEPON_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTokenTTL returns the access token TTL configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"KOEPON_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"KOEPON_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"KOEPON_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"KOEPON_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"KOEPON_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"KOEPON_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"KOEPON_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"KOEPON_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"KOEPON_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"1h"`
	RegisterEmailLimit int           `envconfig:"KOEPON_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"KOEPON_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"KOEPON_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey string `envconfig:"KOEPON_STRIPE_API_KEY"`
	Secret string `envconfig:"KOEPON_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"KOEPON_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GachaConfig struct {
	MedalsPerDraw      int           `envconfig:"KOEPON_GACHA_MEDALS_PER_DRAW" default:"10"`
	DrawIdempotencyTTL time.Duration `envconfig:"KOEPON_GACHA_DRAW_IDEMPOTENCY_TTL" default:"168h"`
}

type MedalsConfig struct {
	BalanceCacheTTL time.Duration `envconfig:"KOEPON_MEDALS_BALANCE_CACHE_TTL" default:"30s"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"KOEPON_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
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
