package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	JWT      JWTConfig      `env:",prefix=JWT_"`
	Google   GoogleConfig   `env:",prefix=GOOGLE_"`
	Quota    QuotaConfig    `env:",prefix=QUOTA_"`
	Sync     SyncConfig     `env:",prefix=SYNC_"`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	Env      string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=review_service"`
	Password string `env:"PASSWORD,default=review_service_password"`
	DBName   string `env:"DB,default=review_service_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret      string   `env:"SECRET,required"`
	TokenExpiry Duration `env:"TOKEN_EXPIRY,default=12h"`
}

// GoogleConfig holds the OAuth client and Business Profile API settings
type GoogleConfig struct {
	ClientID     string   `env:"CLIENT_ID,required"`
	ClientSecret string   `env:"CLIENT_SECRET,required"`
	RedirectURL  string   `env:"REDIRECT_URL,default=http://localhost:8080/api/v1/connect/callback"`
	APITimeout   Duration `env:"API_TIMEOUT,default=15s"`

	// Outbound sliding-window limits, one per API family
	AccountsLimit     int      `env:"ACCOUNTS_RATE_LIMIT,default=5"`
	BusinessInfoLimit int      `env:"BUSINESSINFO_RATE_LIMIT,default=10"`
	ReviewsLimit      int      `env:"REVIEWS_RATE_LIMIT,default=10"`
	RateWindow        Duration `env:"RATE_WINDOW,default=1m"`
}

// QuotaConfig holds usage accounting and cooldown settings
type QuotaConfig struct {
	DailyLimit      int      `env:"DAILY_LIMIT,default=10000"`
	BurstLimit      int      `env:"BURST_LIMIT,default=100"`
	BurstWindow     Duration `env:"BURST_WINDOW,default=100s"`
	DataDir         string   `env:"DATA_DIR,default=./data/quota"`
	DefaultCooldown Duration `env:"DEFAULT_COOLDOWN,default=10m"`
}

type SyncConfig struct {
	PageSize   int    `env:"PAGE_SIZE,default=50"`
	OrderBy    string `env:"ORDER_BY,default=updateTime desc"`
	MaxRetries int    `env:"MAX_RETRIES,default=3"`
}

type SecurityConfig struct {
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=30"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if config.Sync.PageSize < 1 || config.Sync.PageSize > 50 {
		return nil, fmt.Errorf("SYNC_PAGE_SIZE must be between 1 and 50")
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
