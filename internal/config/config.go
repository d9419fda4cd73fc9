package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort  string
	Environment string

	DatabaseType string
	DatabaseURL  string
	DatabasePath string

	SessionSecret    string
	CSRFSecret       string
	SessionDuration  time.Duration
	KidSessionMaxAge time.Duration
	Location         *time.Location

	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string

	GoogleClientID     string
	GoogleClientSecret string

	LogLevel string
	LogDev   bool
	LogFile  string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:  getEnv("PORT", "8080"),
		Environment: getEnv("APP_ENV", "development"),

		DatabaseType: getEnv("DATABASE_TYPE", "sqlite"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		DatabasePath: getEnv("DB_PATH", "./lunara.db"),

		SessionSecret:    getEnv("SESSION_SECRET", "dev-only-session-secret-change-me!!"),
		CSRFSecret:       getEnv("CSRF_SECRET", "dev-only-csrf-secret-change-me!!!!!"),
		SessionDuration:  getDuration("SESSION_DURATION", 24*time.Hour),
		KidSessionMaxAge: getDuration("KID_SESSION_MAX_AGE", 30*24*time.Hour),
		Location:         getLocation("TIMEZONE"),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Lunara"),
		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:8080"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		LogLevel: getEnv("LOG_LEVEL", ""),
		LogDev:   getEnv("LOG_DEV", "") == "1",
		LogFile:  getEnv("LOG_FILE", ""),
	}
}

// IsProduction reports whether cookies must always carry the Secure flag
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getLocation(key string) *time.Location {
	name := os.Getenv(key)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
