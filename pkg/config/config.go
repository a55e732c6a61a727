package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Env       string
	LogLevel  string
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	Storage   StorageConfig
	Auth      AuthConfig
	Kafka     KafkaConfig
	Discovery DiscoveryConfig
	Location  LocationConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL     string
	APIKey  string
	Enabled bool
}

// StorageConfig holds object storage configuration for avatars
type StorageConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
	UsePathStyle  bool
}

// AuthConfig holds session and token configuration
type AuthConfig struct {
	JWTSecret         string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	MagicLinkTTL      time.Duration
	MagicLinkRedirect string
	MinPasswordLength int
}

// KafkaConfig holds the broker used to deliver sign-in links
type KafkaConfig struct {
	Brokers        []string
	MagicLinkTopic string
}

// DiscoveryConfig holds provider discovery defaults
type DiscoveryConfig struct {
	DefaultRadiusKm float64
}

// LocationConfig holds the location source used by the terminal front end
type LocationConfig struct {
	Latitude  float64
	Longitude float64
	City      string
	Granted   bool
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "servicemap"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},
		Typesense: TypesenseConfig{
			URL:     getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:  getEnv("TYPESENSE_API_KEY", "xyz"),
			Enabled: getEnvAsBool("TYPESENSE_ENABLED", false),
		},
		Storage: StorageConfig{
			Bucket:        getEnv("STORAGE_BUCKET", "avatars"),
			Region:        getEnv("STORAGE_REGION", "eu-central-1"),
			Endpoint:      getEnv("STORAGE_ENDPOINT", ""),
			PublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", ""),
			UsePathStyle:  getEnvAsBool("STORAGE_USE_PATH_STYLE", false),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			AccessTokenTTL:    getEnvAsDuration("AUTH_ACCESS_TOKEN_TTL", time.Hour),
			RefreshTokenTTL:   getEnvAsDuration("AUTH_REFRESH_TOKEN_TTL", 30*24*time.Hour),
			MagicLinkTTL:      getEnvAsDuration("AUTH_MAGIC_LINK_TTL", 15*time.Minute),
			MagicLinkRedirect: getEnv("AUTH_MAGIC_LINK_REDIRECT", "servicemap://login"),
			MinPasswordLength: getEnvAsInt("AUTH_MIN_PASSWORD_LENGTH", 6),
		},
		Kafka: KafkaConfig{
			Brokers:        getEnvAsList("KAFKA_BROKERS", nil),
			MagicLinkTopic: getEnv("KAFKA_MAGIC_LINK_TOPIC", "auth.magic-links"),
		},
		Discovery: DiscoveryConfig{
			DefaultRadiusKm: getEnvAsFloat("DISCOVERY_DEFAULT_RADIUS_KM", 10),
		},
		Location: LocationConfig{
			Latitude:  getEnvAsFloat("LOCATION_LATITUDE", 0),
			Longitude: getEnvAsFloat("LOCATION_LONGITUDE", 0),
			City:      getEnv("LOCATION_CITY", ""),
			Granted:   getEnvAsBool("LOCATION_PERMISSION_GRANTED", true),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "servicemap-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have no safe default
func (c *Config) Validate() error {
	if c.Env == "production" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.Auth.MinPasswordLength < 1 {
		return fmt.Errorf("AUTH_MIN_PASSWORD_LENGTH must be positive")
	}
	if c.Discovery.DefaultRadiusKm <= 0 {
		return fmt.Errorf("DISCOVERY_DEFAULT_RADIUS_KM must be positive")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
