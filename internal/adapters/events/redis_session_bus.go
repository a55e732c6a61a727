package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/providers"
	redisclient "github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/redis"
)

// RedisSessionBus implements the SessionBus interface using Redis Pub/Sub.
// One Redis subscription is shared by all local subscribers.
type RedisSessionBus struct {
	client       *redisclient.Client
	channel      string
	subscription *redis.PubSub
	subscribers  map[chan *entities.SessionEvent]struct{}
	mu           sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewRedisSessionBus creates a new Redis-based session bus
func NewRedisSessionBus(client *redisclient.Client) providers.SessionBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisSessionBus{
		client:      client,
		channel:     providers.SessionEventsChannel,
		subscribers: make(map[chan *entities.SessionEvent]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Publish publishes an event to every instance
func (b *RedisSessionBus) Publish(ctx context.Context, event *entities.SessionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish session event: %w", err)
	}

	log.Debug().Str("type", string(event.Type)).Str("session_id", event.SessionID).Msg("published session event")
	return nil
}

// Subscribe delivers events until ctx is done or the bus is closed
func (b *RedisSessionBus) Subscribe(ctx context.Context) (<-chan *entities.SessionEvent, error) {
	b.mu.Lock()
	if b.ctx.Err() != nil {
		b.mu.Unlock()
		return nil, fmt.Errorf("session bus is closed")
	}

	if b.subscription == nil {
		b.subscription = b.client.Client().Subscribe(b.ctx, b.channel)
		go b.receiveMessages(b.subscription)
	}

	eventChan := make(chan *entities.SessionEvent, 100)
	b.subscribers[eventChan] = struct{}{}
	count := len(b.subscribers)
	b.mu.Unlock()

	log.Info().Str("channel", b.channel).Int("subscribers", count).Msg("subscribed to session events")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.removeSubscriber(eventChan)
	}()

	return eventChan, nil
}

func (b *RedisSessionBus) receiveMessages(pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event entities.SessionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Str("channel", b.channel).Msg("failed to unmarshal session event")
				continue
			}

			b.mu.RLock()
			for subscriber := range b.subscribers {
				select {
				case subscriber <- &event:
				default:
					log.Warn().Str("session_id", event.SessionID).Msg("session subscriber full, dropping event")
				}
			}
			b.mu.RUnlock()
		}
	}
}

func (b *RedisSessionBus) removeSubscriber(eventChan chan *entities.SessionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[eventChan]; !ok {
		return
	}
	delete(b.subscribers, eventChan)
	close(eventChan)

	if len(b.subscribers) == 0 && b.subscription != nil {
		_ = b.subscription.Close()
		b.subscription = nil
	}
}

// Close closes the bus and all subscriptions
func (b *RedisSessionBus) Close() error {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for subscriber := range b.subscribers {
		close(subscriber)
		delete(b.subscribers, subscriber)
	}

	if b.subscription != nil {
		if err := b.subscription.Close(); err != nil {
			return fmt.Errorf("failed to close session subscription: %w", err)
		}
		b.subscription = nil
	}

	log.Info().Msg("session bus closed")
	return nil
}
