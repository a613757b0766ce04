package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Notify   NotifyConfig
	// AppEnv selects the table prefix and is reported by /api/version.
	// Anything other than "production" uses dev_-prefixed tables.
	AppEnv string
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	DBName     string
	SSLMode    string
	TestDBName string // Separate database for testing
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret string
}

// NotifyConfig holds the outbound notification configuration.
// An empty URL disables that channel.
type NotifyConfig struct {
	PushAPIURL    string
	EmailAPIURL   string
	EmailAPIToken string
	EmailFrom     string
	EmailTo       string
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode,
	)
}

// TablePrefix returns the table name prefix for the current environment.
// Mirrors the dev_/prod table split of the hosted data store this server
// replaced.
func (c *Config) TablePrefix() string {
	if c.AppEnv == "production" {
		return ""
	}
	return "dev_"
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvAsInt("DB_PORT", 5432),
			Username:   getEnv("DB_USERNAME", "postgres"),
			Password:   getEnv("DB_PASSWORD", "password"),
			DBName:     getEnv("DB_NAME", "seisan"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			TestDBName: getEnv("TEST_DB_NAME", "seisan_test"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "your-secret-key-here"),
		},
		Notify: NotifyConfig{
			PushAPIURL:    getEnv("PUSH_API_URL", ""),
			EmailAPIURL:   getEnv("EMAIL_API_URL", ""),
			EmailAPIToken: getEnv("EMAIL_API_TOKEN", ""),
			EmailFrom:     getEnv("EMAIL_FROM", ""),
			EmailTo:       getEnv("EMAIL_TO", ""),
		},
		AppEnv: getEnv("APP_ENV", "development"),
	}
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
