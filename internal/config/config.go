package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Access tokens
	JWT JWTConfig

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// S3 Storage
	S3 S3Config

	// Outgoing mail
	Mail MailConfig

	// Password reset
	ResetTokenTTL      time.Duration
	ResetSweepInterval time.Duration
	FrontendURL        string

	// Requests per minute per client IP on the public auth routes
	RateLimitPerMinute int
}

// JWTConfig holds the HS256 signing configuration for access tokens
type JWTConfig struct {
	SecretKey string
	Expires   time.Duration
	Issuer    string
	Audience  string
}

// S3Config holds AWS S3 configuration
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for MinIO/LocalStack local dev
	PresignExpiry   time.Duration
}

// MailConfig holds SMTP configuration. An empty Server disables delivery.
type MailConfig struct {
	Server   string
	Port     int
	Username string
	Password string
	Sender   string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", ""),
			Expires:   time.Duration(getEnvInt("JWT_ACCESS_TOKEN_EXPIRES", 3600)) * time.Second,
			Issuer:    getEnv("JWT_ISSUER", "operaciones-backend"),
			Audience:  getEnv("JWT_AUDIENCE", "operaciones"),
		},
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:         getEnv("ENV", "development"),
		S3: S3Config{
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", "operaciones-archivos"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""), // Empty = use AWS, set for MinIO/LocalStack
			PresignExpiry:   time.Duration(getEnvInt("S3_PRESIGN_EXPIRY_MINUTES", 15)) * time.Minute,
		},
		Mail: MailConfig{
			Server:   getEnv("MAIL_SERVER", ""),
			Port:     getEnvInt("MAIL_PORT", 587),
			Username: getEnv("MAIL_USERNAME", ""),
			Password: getEnv("MAIL_PASSWORD", ""),
			Sender:   getEnv("MAIL_SENDER", "no-reply@localhost"),
		},
		ResetTokenTTL:      time.Duration(getEnvInt("RESET_TOKEN_TTL_MINUTES", 30)) * time.Minute,
		ResetSweepInterval: time.Duration(getEnvInt("RESET_SWEEP_INTERVAL_MINUTES", 10)) * time.Minute,
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 20),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.JWT.Expires <= 0 {
		return fmt.Errorf("JWT_ACCESS_TOKEN_EXPIRES must be positive")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs with ENV=production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
