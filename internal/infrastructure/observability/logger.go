package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// LoggerConfig configures the global logger
type LoggerConfig struct {
	Service string
	Env     string
	// Level is a zerolog level name; empty means info
	Level string
	// Out defaults to stdout. Terminal tools pass stderr so their results
	// stay alone on stdout.
	Out io.Writer
}

// InitLogger initializes the global zerolog logger. Development gets the
// console writer, every other env gets JSON lines with the caller.
func InitLogger(cfg LoggerConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Env == "development" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			Level(level).
			With().
			Timestamp().
			Str("service", cfg.Service).
			Logger()
	} else {
		log.Logger = zerolog.New(out).
			Level(level).
			With().
			Timestamp().
			Caller().
			Str("service", cfg.Service).
			Str("env", cfg.Env).
			Logger()
	}

	if err != nil {
		log.Warn().Str("level", cfg.Level).Msg("unknown log level, using info")
	}
}

// LoggerFromContext returns the global logger enriched with the trace ids
// and whatever the request has learned about its route and caller.
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	logCtx := log.With()

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		logCtx = logCtx.
			Str("trace_id", sc.TraceID().String()).
			Str("span_id", sc.SpanID().String())
	}

	if info := RequestInfoFromContext(ctx); info != nil {
		if info.Route != "" {
			logCtx = logCtx.Str("route", info.Route)
		}
		if info.UserID != "" {
			logCtx = logCtx.Str("user_id", info.UserID).Str("session_id", info.SessionID)
		}
	}

	logger := logCtx.Logger()
	return &logger
}
