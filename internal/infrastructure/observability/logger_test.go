package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withGlobalLogger(t *testing.T) {
	t.Helper()
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
}

func TestInitLogger_JSONWithLevel(t *testing.T) {
	withGlobalLogger(t)

	var buf bytes.Buffer
	InitLogger(LoggerConfig{Service: "servicemap-api", Env: "production", Level: "warn", Out: &buf})

	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("kept")
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "servicemap-api", line["service"])
	assert.Equal(t, "production", line["env"])
	assert.Equal(t, "kept", line["message"])
}

func TestInitLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	withGlobalLogger(t)

	var buf bytes.Buffer
	InitLogger(LoggerConfig{Service: "servicemap-indexer", Env: "staging", Level: "chatty", Out: &buf})
	buf.Reset()

	log.Debug().Msg("dropped")
	assert.Zero(t, buf.Len())
	log.Info().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestLoggerFromContext_RequestFields(t *testing.T) {
	withGlobalLogger(t)

	var buf bytes.Buffer
	InitLogger(LoggerConfig{Service: "servicemap-api", Env: "production", Out: &buf})

	ctx, _ := WithRequestInfo(context.Background())
	SetRoute(ctx, "GET /api/profile")
	SetIdentity(ctx, "s1", "u1")

	LoggerFromContext(ctx).Info().Msg("profile loaded")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "GET /api/profile", line["route"])
	assert.Equal(t, "u1", line["user_id"])
	assert.Equal(t, "s1", line["session_id"])
}

type otherKey struct{}

func TestWithRequestInfo_ReusesExisting(t *testing.T) {
	ctx, first := WithRequestInfo(context.Background())
	inner, second := WithRequestInfo(context.WithValue(ctx, otherKey{}, 1))

	assert.Same(t, first, second)
	SetIdentity(inner, "s2", "u2")
	assert.Equal(t, "u2", first.UserID)

	// Outside a request nothing is recorded.
	SetRoute(context.Background(), "GET /health")
	assert.Nil(t, RequestInfoFromContext(context.Background()))
}
