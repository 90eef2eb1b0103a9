package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Webhook  WebhookConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Pincode  PincodeConfig
	Jobs     JobsConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"45s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins  []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host             string        `envconfig:"DB_HOST" default:"localhost"`
	Port             int           `envconfig:"DB_PORT" default:"5432"`
	User             string        `envconfig:"DB_USER" default:"postgres"`
	Password         string        `envconfig:"DB_PASSWORD"`
	Database         string        `envconfig:"DB_NAME" default:"marketplace"`
	SSLMode          string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConnections   int           `envconfig:"DB_MAX_CONNECTIONS" default:"25"`
	MinConnections   int           `envconfig:"DB_MIN_CONNECTIONS" default:"5"`
	MaxConnLifetime  time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"5m"`
	AcquireTimeout   time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"5s"`
	StatementTimeout time.Duration `envconfig:"DB_STATEMENT_TIMEOUT" default:"30s"`
	LockTimeout      time.Duration `envconfig:"DB_LOCK_TIMEOUT" default:"10s"`
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"` // "json" or "console"
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET"`
	JWTIssuer string `envconfig:"JWT_ISSUER"`
}

// WebhookConfig holds the shared secrets used to verify provider callbacks.
type WebhookConfig struct {
	PaymentSecret  string        `envconfig:"PAYMENT_WEBHOOK_SECRET"`
	ShippingSecret string        `envconfig:"SHIPPING_WEBHOOK_SECRET"`
	DedupTTL       time.Duration `envconfig:"WEBHOOK_DEDUP_TTL" default:"72h"`
}

// RedisConfig holds Redis settings. An empty address disables Redis-backed features.
type RedisConfig struct {
	Address        string        `envconfig:"REDIS_ADDR"`
	Password       string        `envconfig:"REDIS_PASSWORD"`
	DB             int           `envconfig:"REDIS_DB" default:"0"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
}

// Enabled reports whether Redis is configured.
func (c RedisConfig) Enabled() bool {
	return c.Address != ""
}

// KafkaConfig holds domain event publishing settings. No brokers disables publishing.
type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"marketplace.orders"`
}

// Enabled reports whether Kafka is configured.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// PincodeConfig holds serviceable pincode file locations.
type PincodeConfig struct {
	FilePaths []string `envconfig:"PINCODE_FILES"`
	S3        S3Config
}

// S3Config holds AWS S3 configuration for pincode files.
type S3Config struct {
	Enabled bool   `envconfig:"S3_ENABLED" default:"false"`
	Bucket  string `envconfig:"S3_BUCKET"`
	Region  string `envconfig:"S3_REGION" default:"ap-south-1"`
	Prefix  string `envconfig:"S3_PREFIX" default:"pincodes/"` // Path prefix within bucket
}

// JobsConfig holds background job settings.
type JobsConfig struct {
	CompletionSweepInterval time.Duration `envconfig:"COMPLETION_SWEEP_INTERVAL" default:"1h"`
	CompletionSweepBatch    int           `envconfig:"COMPLETION_SWEEP_BATCH" default:"200"`
}

// Load loads configuration from an optional .env file and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if err := c.Database.validate(); err != nil {
		return err
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("JWT secret is required")
	}

	if c.Webhook.PaymentSecret == "" {
		return errors.New("payment webhook secret is required")
	}

	if c.Webhook.ShippingSecret == "" {
		return errors.New("shipping webhook secret is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Pincode.S3.Enabled {
		if c.Pincode.S3.Bucket == "" {
			return errors.New("S3 bucket is required when S3 is enabled")
		}
		if c.Pincode.S3.Region == "" {
			return errors.New("S3 region is required when S3 is enabled")
		}
	}

	if c.Kafka.Enabled() && strings.TrimSpace(c.Kafka.Topic) == "" {
		return errors.New("kafka topic is required when brokers are configured")
	}

	if c.Jobs.CompletionSweepInterval <= 0 {
		return errors.New("completion sweep interval must be positive")
	}

	return nil
}

func (c *DatabaseConfig) validate() error {
	if c.Host == "" {
		return errors.New("database host is required")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Port)
	}

	if c.User == "" {
		return errors.New("database user is required")
	}

	if c.Database == "" {
		return errors.New("database name is required")
	}

	if c.MaxConnections < 1 {
		return errors.New("database max connections must be at least 1")
	}

	if c.MinConnections < 0 {
		return errors.New("database min connections cannot be negative")
	}

	if c.MinConnections > c.MaxConnections {
		return errors.New("database min connections cannot exceed max connections")
	}

	if c.AcquireTimeout <= 0 {
		return errors.New("database acquire timeout must be positive")
	}

	if c.StatementTimeout <= 0 {
		return errors.New("database statement timeout must be positive")
	}

	return nil
}

// LoadDatabase loads only the database and logger settings, for tools that do not serve traffic.
func LoadDatabase() (DatabaseConfig, LoggerConfig, error) {
	_ = godotenv.Load()

	var cfg struct {
		Database DatabaseConfig
		Logger   LoggerConfig
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return DatabaseConfig{}, LoggerConfig{}, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Database.validate(); err != nil {
		return DatabaseConfig{}, LoggerConfig{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg.Database, cfg.Logger, nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
