// Package config resolves process configuration once at startup.
// Components receive the sections they need through their constructors.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/ulule/limiter/v3"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config is the root configuration.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Worker    WorkerConfig
	Metrc     MetrcConfig
}

type AppConfig struct {
	Env      string
	Port     string
	LogLevel string
	Storage  string
}

// IsDevelopment reports whether the process runs in development mode.
func (c AppConfig) IsDevelopment() bool { return c.Env == "development" }

type DatabaseConfig struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether a redis server is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type RabbitMQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
	Exchange string
}

// URL builds the AMQP connection string.
func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.VHost)
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

type RateLimitConfig struct {
	// Rate uses the limiter formatted notation, e.g. "100-M".
	Rate string
}

type WorkerConfig struct {
	SyncInterval   time.Duration
	OutboxInterval time.Duration
	OutboxBatch    int
}

// Load reads an optional .env file and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	metrc := DefaultMetrcConfig()
	metrc.Mode = getEnv("METRC_MODE", MetrcProduction)
	metrc.VendorKey = getEnv("VENDOR_KEY", "")
	metrc.SandboxVendorKey = getEnv("SANDBOX_VENDOR_KEY", "")
	metrc.Timeout = getEnvDuration("METRC_TIMEOUT", 0)
	metrc.RetryBase = getEnvDuration("METRC_RETRY_BASE", metrc.RetryBase)
	if err := parseEndpoints(os.Getenv("METRC_ENDPOINTS"), metrc.Endpoints); err != nil {
		return nil, err
	}
	if err := parseEndpoints(os.Getenv("METRC_SANDBOX_ENDPOINTS"), metrc.SandboxEndpoints); err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Env:      getEnv("APP_ENV", "development"),
			Port:     getEnv("APP_PORT", "8080"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
			Storage:  getEnv("STORAGE", StoragePostgres),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 20)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 2)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_TTL", 10*time.Minute),
		},
		RabbitMQ: RabbitMQConfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnvInt("RABBITMQ_PORT", 5672),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:    getEnv("RABBITMQ_VHOST", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "cannapos.events"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "cannapos"),
		},
		RateLimit: RateLimitConfig{
			Rate: getEnv("RATE_LIMIT", "100-M"),
		},
		Worker: WorkerConfig{
			SyncInterval:   getEnvDuration("METRC_SYNC_INTERVAL", time.Hour),
			OutboxInterval: getEnvDuration("OUTBOX_INTERVAL", 5*time.Second),
			OutboxBatch:    getEnvInt("OUTBOX_BATCH", 100),
		},
		Metrc: metrc,
	}

	return cfg, cfg.Validate()
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	var errs []error
	switch c.App.Storage {
	case StoragePostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("DATABASE_URL is required"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q", c.App.Storage))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if _, err := limiter.NewRateFromFormatted(c.RateLimit.Rate); err != nil {
		errs = append(errs, fmt.Errorf("invalid RATE_LIMIT: %w", err))
	}
	switch c.Metrc.Mode {
	case MetrcProduction, MetrcSandbox:
	default:
		errs = append(errs, fmt.Errorf("unknown METRC_MODE %q", c.Metrc.Mode))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
