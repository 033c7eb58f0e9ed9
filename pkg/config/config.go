package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "dev-secret-change-me"

// Config holds the application configuration
type Config struct {
	Environment string
	ServerPort  int
	LogLevel    string
	LogFormat   string
	Debug       bool

	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	Superusers        []string
	SuperuserPassword string
	MinPasswordLength int
	MaxTags           int
	TagBlacklist      []string

	Database DatabaseConfig
	RedisURL string

	ImageDir      string
	MaxImageBytes int64

	CORSAllowedOrigins []string
	LoginRatePerMinute float64
	LoginBurst         int
	TrustedProxies     []string

	OTLPEndpoint string
}

// DatabaseConfig selects and locates the relational store
type DatabaseConfig struct {
	Driver       string
	Path         string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
}

// Load reads configuration from environment variables, after loading a
// .env file from the working directory when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from the process environment only
func FromEnv() (*Config, error) {
	var errs []error
	intEnv := func(key string, def int) int {
		v, err := strconv.Atoi(getEnv(key, strconv.Itoa(def)))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}
	durationEnv := func(key string, def time.Duration) time.Duration {
		v, err := time.ParseDuration(getEnv(key, def.String()))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}
	boolEnv := func(key string, def bool) bool {
		v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(def)))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  intEnv("SERVER_PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", ""),
		Debug:       boolEnv("DEBUG", false),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		JWTIssuer:       getEnv("JWT_ISSUER", "memedata"),
		AccessTokenTTL:  durationEnv("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: durationEnv("REFRESH_TOKEN_TTL", 720*time.Hour),

		Superusers:        parseCSVEnv("SUPERUSERS", []string{"su"}),
		SuperuserPassword: os.Getenv("SUPERUSER_PASSWORD"),
		MinPasswordLength: intEnv("MIN_PASSWORD_LENGTH", 8),
		MaxTags:           intEnv("MAX_TAGS", 16),
		TagBlacklist:      parseCSVEnv("TAG_BLACKLIST", nil),

		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "sqlite"),
			Path:         getEnv("DB_PATH", "memedata.db"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         intEnv("DB_PORT", 5432),
			User:         getEnv("DB_USER", "memedata"),
			Password:     os.Getenv("DB_PASSWORD"),
			Name:         getEnv("DB_NAME", "memedata"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: intEnv("DB_MAX_OPEN_CONNS", 0),
		},
		RedisURL: os.Getenv("REDIS_URL"),

		ImageDir:      getEnv("IMAGE_DIR", "images"),
		MaxImageBytes: int64(intEnv("MAX_IMAGE_BYTES", 8<<20)),

		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		LoginBurst:     intEnv("LOGIN_BURST", 5),
		TrustedProxies: parseCSVEnv("TRUSTED_PROXIES", nil),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	rate, err := strconv.ParseFloat(getEnv("LOGIN_RATE_PER_MINUTE", "10"), 64)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid LOGIN_RATE_PER_MINUTE: %w", err))
	}
	cfg.LoginRatePerMinute = rate

	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
		if cfg.Environment == "production" {
			cfg.LogFormat = "json"
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if c.Environment != "development" && c.Environment != "test" {
			return fmt.Errorf("JWT_SECRET is required in %s", c.Environment)
		}
		c.JWTSecret = defaultJWTSecret
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid DB_DRIVER %q: want sqlite or postgres", c.Database.Driver)
	}
	if c.MinPasswordLength < 1 {
		return fmt.Errorf("invalid MIN_PASSWORD_LENGTH: must be positive")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
