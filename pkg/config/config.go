package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	AuthDB        AuthDBConfig
	Tenant        TenantConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Session       SessionConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Idempotency   IdempotencyConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Tenant.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"APP_ENV" required:"true"`
	Port         string   `envconfig:"PORT" default:"3001"`
	LogLevel     string   `envconfig:"LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// DBConfig describes the platform database holding churches and users.
type DBConfig struct {
	DSN      string `envconfig:"DB_DSN"`
	Host     string `envconfig:"DB_HOST"`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	User     string `envconfig:"DB_USER"`
	Password string `envconfig:"DB_PASS"`
	Name     string `envconfig:"DB_NAME"`

	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// AuthDBConfig optionally points authentication at a separate database.
// When Name is empty the platform pool serves auth queries.
type AuthDBConfig struct {
	Name     string `envconfig:"AUTH_DB_NAME"`
	User     string `envconfig:"AUTH_DB_USER"`
	Password string `envconfig:"AUTH_DB_PASS"`
}

func (a AuthDBConfig) Enabled() bool {
	return strings.TrimSpace(a.Name) != ""
}

// TenantConfig governs the per-church record database pools.
type TenantConfig struct {
	User            string        `envconfig:"TENANT_DB_USER"`
	Password        string        `envconfig:"TENANT_DB_PASS"`
	MaxEntries      int           `envconfig:"TENANT_POOL_MAX_ENTRIES" default:"64"`
	PoolTTL         time.Duration `envconfig:"TENANT_POOL_TTL" default:"30m"`
	MaxOpenConns    int           `envconfig:"TENANT_DB_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int           `envconfig:"TENANT_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"TENANT_DB_CONN_MAX_LIFETIME" default:"30m"`
}

func (t TenantConfig) validate() error {
	if t.MaxEntries <= 0 {
		return fmt.Errorf("%s must be positive", EnvTenantPoolMaxEntries)
	}
	if t.MaxOpenConns <= 0 {
		return fmt.Errorf("%s must be positive", EnvTenantMaxOpenConns)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"REDIS_URL"`
	Address      string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"REDIS_PASSWORD"`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"JWT_ISSUER" default:"orthodoxmetrics"`
	ExpirationMinutes      int    `envconfig:"JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// SessionConfig controls the HttpOnly cookie that carries the access token
// for browser clients.
type SessionConfig struct {
	CookieName   string `envconfig:"SESSION_COOKIE_NAME" default:"om_session"`
	CookieSecure bool   `envconfig:"SESSION_COOKIE_SECURE" default:"true"`
	CookieDomain string `envconfig:"SESSION_COOKIE_DOMAIN"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate              bool `envconfig:"AUTO_MIGRATE" default:"false"`
	AllowAdminChurchOverride bool `envconfig:"ALLOW_ADMIN_CHURCH_OVERRIDE" default:"true"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OCRTopic string `envconfig:"PUBSUB_OCR_TOPIC"`
}

// Enabled reports whether OCR events should be published.
func (p PubSubConfig) Enabled(gcp GCPConfig) bool {
	return strings.TrimSpace(p.OCRTopic) != "" && strings.TrimSpace(gcp.ProjectID) != ""
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
	for _, env := range platformDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	db.DSN = MySQLDSN(db.Host, db.Port, db.User, db.Password, db.Name)
	return nil
}

// AuthDSN returns the DSN of the auth database, reusing the platform host.
func (c *Config) AuthDSN() string {
	user, pass := c.AuthDB.User, c.AuthDB.Password
	if user == "" {
		user, pass = c.DB.User, c.DB.Password
	}
	return MySQLDSN(c.DB.Host, c.DB.Port, user, pass, c.AuthDB.Name)
}

// TenantDSN returns the DSN for a church record database on the platform host.
func (c *Config) TenantDSN(databaseName string) string {
	user, pass := c.Tenant.User, c.Tenant.Password
	if user == "" {
		user, pass = c.DB.User, c.DB.Password
	}
	return MySQLDSN(c.DB.Host, c.DB.Port, user, pass, databaseName)
}

// MySQLDSN formats a go-sql-driver DSN with UTC parsed times and utf8mb4.
func MySQLDSN(host string, port int, user, password, name string) string {
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", host, port)
	mc.User = user
	mc.Passwd = password
	mc.DBName = name
	mc.ParseTime = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}
