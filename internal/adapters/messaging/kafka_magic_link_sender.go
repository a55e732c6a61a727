package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/servicemapcy/servicemap/backend/internal/domain/providers"
)

// MessageWriter is the subset of kafka.Writer used by the sender
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaMagicLinkSender publishes sign-in links for the mail worker. Messages
// are keyed by email so that links for one address stay ordered.
type KafkaMagicLinkSender struct {
	writer MessageWriter
}

// NewKafkaMagicLinkSender creates a sender on top of writer
func NewKafkaMagicLinkSender(writer MessageWriter) providers.MagicLinkSender {
	return &KafkaMagicLinkSender{writer: writer}
}

// Send publishes one link
func (s *KafkaMagicLinkSender) Send(ctx context.Context, link providers.MagicLink) error {
	payload, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal magic link: %w", err)
	}

	if err := s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(link.Email),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("failed to publish magic link: %w", err)
	}

	log.Info().Str("email", link.Email).Time("expires_at", link.ExpiresAt).Msg("magic link queued")
	return nil
}

// Close flushes and closes the writer
func (s *KafkaMagicLinkSender) Close() error {
	return s.writer.Close()
}

// LogMagicLinkSender writes links to the log. It is used in development when
// no broker is configured.
type LogMagicLinkSender struct{}

// NewLogMagicLinkSender creates a log-only sender
func NewLogMagicLinkSender() providers.MagicLinkSender {
	return LogMagicLinkSender{}
}

// Send logs the link
func (LogMagicLinkSender) Send(ctx context.Context, link providers.MagicLink) error {
	log.Warn().Str("email", link.Email).Str("url", link.URL).Msg("no broker configured, magic link logged only")
	return nil
}

// Close is a no-op
func (LogMagicLinkSender) Close() error { return nil }
