package kafka

import (
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/servicemapcy/servicemap/backend/pkg/config"
)

// NewWriter creates a writer for the sign-in link topic
func NewWriter(cfg *config.KafkaConfig) (*kafka.Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if cfg.MagicLinkTopic == "" {
		return nil, fmt.Errorf("kafka magic link topic is required")
	}

	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.MagicLinkTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}, nil
}
