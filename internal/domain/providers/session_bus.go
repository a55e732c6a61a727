package providers

import (
	"context"

	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
)

// SessionBus carries session events between API instances
type SessionBus interface {
	// Publish publishes an event to all instances
	Publish(ctx context.Context, event *entities.SessionEvent) error

	// Subscribe delivers events published by any instance until ctx is done
	Subscribe(ctx context.Context) (<-chan *entities.SessionEvent, error)

	// Close closes the bus and all subscriptions
	Close() error
}

// SessionEventsChannel is the pub/sub channel for session events
const SessionEventsChannel = "auth:sessions"
