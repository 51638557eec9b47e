package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Server    ServerConfig
	Identity  IdentityConfig
	Retention RetentionConfig
	Slack     SlackConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings for the operational event bus.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// AuthConfig holds admin authentication settings.
type AuthConfig struct {
	JWTSecret        string //nolint:gosec // G117: JWT signing secret config
	AccessTTL        time.Duration
	BootstrapKeyHash string // argon2id digest; empty disables the bootstrap key
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// IdentityConfig holds the identity-platform admin API settings.
type IdentityConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string //nolint:gosec // G117: service account config
}

// RetentionConfig holds the audit retention policy settings.
type RetentionConfig struct {
	Days     int
	Interval time.Duration
}

// SlackConfig holds the optional sweep-notification settings.
type SlackConfig struct {
	BotToken string
	Channel  string
}

// Load reads configuration from environment variables. Defaults are safe for
// local development only; secrets must be set explicitly in production.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("TENANTD_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("TENANTD_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("TENANTD_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	accessTTL, err := getEnvDuration("TENANTD_JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("TENANTD_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("TENANTD_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	retentionDays, err := getEnvInt("TENANTD_RETENTION_DAYS", 365)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	retentionInterval, err := getEnvDuration("TENANTD_RETENTION_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("TENANTD_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("TENANTD_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("TENANTD_DB_USER", "tenantd"),
			Password: getEnv("TENANTD_DB_PASSWORD", ""),
			DBName:   getEnv("TENANTD_DB_NAME", "tenantd_dev"),
			SSLMode:  getEnv("TENANTD_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("TENANTD_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("TENANTD_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret:        getEnv("TENANTD_JWT_SECRET", ""),
			AccessTTL:        accessTTL,
			BootstrapKeyHash: getEnv("TENANTD_BOOTSTRAP_KEY_HASH", ""),
		},
		Server: ServerConfig{
			Addr:         getEnv("TENANTD_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
		},
		Identity: IdentityConfig{
			BaseURL:      getEnv("TENANTD_IDENTITY_BASE_URL", ""),
			TokenURL:     getEnv("TENANTD_IDENTITY_TOKEN_URL", ""),
			ClientID:     getEnv("TENANTD_IDENTITY_CLIENT_ID", "tenantd"),
			ClientSecret: getEnv("TENANTD_IDENTITY_CLIENT_SECRET", ""),
		},
		Retention: RetentionConfig{
			Days:     retentionDays,
			Interval: retentionInterval,
		},
		Slack: SlackConfig{
			BotToken: getEnv("TENANTD_SLACK_BOT_TOKEN", ""),
			Channel:  getEnv("TENANTD_SLACK_CHANNEL", ""),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.Auth.JWTSecret == "" {
		return errors.New("TENANTD_JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return errors.New("TENANTD_JWT_SECRET must be at least 32 characters")
	}

	if c.Identity.BaseURL == "" {
		return errors.New("TENANTD_IDENTITY_BASE_URL is required")
	}
	if c.Identity.TokenURL == "" {
		return errors.New("TENANTD_IDENTITY_TOKEN_URL is required")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("TENANTD_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("TENANTD_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Auth.AccessTTL <= 0 {
		return fmt.Errorf("TENANTD_JWT_ACCESS_TTL must be positive, got %s", c.Auth.AccessTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("TENANTD_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("TENANTD_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Retention.Days < 0 {
		return fmt.Errorf("TENANTD_RETENTION_DAYS must be >= 0, got %d", c.Retention.Days)
	}
	if c.Retention.Interval <= 0 {
		return fmt.Errorf("TENANTD_RETENTION_INTERVAL must be positive, got %s", c.Retention.Interval)
	}
	if c.Slack.BotToken != "" && c.Slack.Channel == "" {
		return errors.New("TENANTD_SLACK_CHANNEL is required when TENANTD_SLACK_BOT_TOKEN is set")
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
