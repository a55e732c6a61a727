package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("DISCOVERY_DEFAULT_RADIUS_KM", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10.0, cfg.Discovery.DefaultRadiusKm)
	assert.Equal(t, 6, cfg.Auth.MinPasswordLength)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, "servicemap://login", cfg.Auth.MagicLinkRedirect)
	assert.Equal(t, "avatars", cfg.Storage.Bucket)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TYPESENSE_URL", "http://test-typesense:8108")
	t.Setenv("TYPESENSE_API_KEY", "test-key")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL", "15m")
	t.Setenv("LOCATION_LATITUDE", "34.7071")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://test-typesense:8108", cfg.Typesense.URL)
	assert.Equal(t, "test-key", cfg.Typesense.APIKey)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.InDelta(t, 34.7071, cfg.Location.Latitude, 1e-9)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsNonPositiveRadius(t *testing.T) {
	t.Setenv("DISCOVERY_DEFAULT_RADIUS_KM", "-1")

	_, err := Load()
	assert.Error(t, err)
}
