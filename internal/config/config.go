package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/darkodi/qrcode-service/internal/logger"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	App       AppConfig
	ShortURL  ShortURLConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Log       logger.Config
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Driver string // "sqlite3", "postgres"
	DSN    string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	BaseURL     string // fallback for redirect links when no custom domain applies
	ViewBaseURL string // where event and vCard short URLs point to
	Environment string // "development", "production", "testing"
}

// Detach policies for a short URL whose QR code stops being dynamic
const (
	DetachDelete  = "delete"
	DetachDisable = "disable"
)

// ShortURLConfig holds short code generation settings
type ShortURLConfig struct {
	CodeLength   int
	MaxAttempts  int
	DetachPolicy string
}

// RedisConfig holds redirect cache settings
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RateLimitConfig holds per-IP rate limiting settings
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real environment
// variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite3"),
			DSN:    getEnv("DB_DSN", "./data/qrcodes.db"),
		},
		App: AppConfig{
			BaseURL:     getEnv("BASE_URL", ""),
			ViewBaseURL: getEnv("VIEW_BASE_URL", ""),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		ShortURL: ShortURLConfig{
			CodeLength:   getIntEnv("SHORT_CODE_LENGTH", 8),
			MaxAttempts:  getIntEnv("SHORT_CODE_MAX_ATTEMPTS", 5),
			DetachPolicy: getEnv("SHORT_URL_DETACH_POLICY", DetachDelete),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			TTL:      getDurationEnv("REDIS_TTL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getBoolEnv("RATE_LIMIT_ENABLED", true),
			Requests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
			Window:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		},
		Log: logger.Config{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	// Set default BaseURL if not provided
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = fmt.Sprintf("http://localhost:%s", cfg.Server.Port)
	}
	cfg.App.BaseURL = strings.TrimRight(cfg.App.BaseURL, "/")
	if cfg.App.ViewBaseURL == "" {
		cfg.App.ViewBaseURL = cfg.App.BaseURL
	}
	cfg.App.ViewBaseURL = strings.TrimRight(cfg.App.ViewBaseURL, "/")
	cfg.Log.Environment = cfg.App.Environment

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate port
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %s (must be 1-65535)", c.Server.Port)
	}

	// Validate database
	validDrivers := map[string]bool{
		"sqlite3":  true,
		"postgres": true,
	}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("invalid database driver: %s (must be sqlite3 or postgres)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database DSN cannot be empty")
	}

	// Validate base URLs
	for name, raw := range map[string]string{"BASE_URL": c.App.BaseURL, "VIEW_BASE_URL": c.App.ViewBaseURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid %s: %q (must be an absolute http(s) URL)", name, raw)
		}
	}

	// Validate environment
	validEnvs := map[string]bool{
		"development": true,
		"production":  true,
		"testing":     true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, production, or testing)", c.App.Environment)
	}

	// Validate short URL settings
	if c.ShortURL.CodeLength < 4 || c.ShortURL.CodeLength > 32 {
		return fmt.Errorf("invalid short code length: %d (must be 4-32)", c.ShortURL.CodeLength)
	}
	if c.ShortURL.MaxAttempts < 1 {
		return fmt.Errorf("invalid short code max attempts: %d (must be at least 1)", c.ShortURL.MaxAttempts)
	}
	if c.ShortURL.DetachPolicy != DetachDelete && c.ShortURL.DetachPolicy != DetachDisable {
		return fmt.Errorf("invalid short URL detach policy: %s (must be delete or disable)", c.ShortURL.DetachPolicy)
	}

	// Validate log level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// ============================================================
// HELPER FUNCTIONS
// ============================================================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}
