package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration
type Config struct {
	Port               string
	CORSAllowedOrigins []string
	Database           DatabaseConfig
	SessionSecret      string
	SessionIssuer      string
	InternalAPIToken   string
	IssueRateLimit     int // key issuances per IP per minute
}

// DatabaseConfig holds PostgreSQL connection settings. An empty DBName
// selects the in-memory store.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "*"
	}

	origins := strings.Split(corsOrigins, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}

	issueRateLimit := 10
	if raw := os.Getenv("ISSUE_RATE_LIMIT_PER_MINUTE"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			issueRateLimit = limit
		}
	}

	return &Config{
		Port:               port,
		CORSAllowedOrigins: origins,
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		SessionSecret:    os.Getenv("SESSION_SECRET"),
		SessionIssuer:    os.Getenv("SESSION_ISSUER"),
		InternalAPIToken: os.Getenv("INTERNAL_API_TOKEN"),
		IssueRateLimit:   issueRateLimit,
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
