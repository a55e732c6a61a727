package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/providers"
)

const subscriberBuffer = 16

// SessionStore caches live sessions of this process and fans session events
// out to subscribers. With a bus attached, sign-outs on other instances
// evict local entries too.
type SessionStore struct {
	instanceID  string
	mu          sync.RWMutex
	sessions    map[string]*entities.Session
	subscribers map[chan *entities.SessionEvent]struct{}
	closed      bool

	bus    providers.SessionBus
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSessionStore creates an empty store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		instanceID:  uuid.NewString(),
		sessions:    make(map[string]*entities.Session),
		subscribers: make(map[chan *entities.SessionEvent]struct{}),
	}
}

// Get returns a cached session
func (s *SessionStore) Get(id string) (*entities.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Put caches a session
func (s *SessionStore) Put(session *entities.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.sessions[session.ID] = session
}

// Remove evicts a session
func (s *SessionStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of cached sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Emit delivers an event to local subscribers and, when a bus is attached,
// to other instances
func (s *SessionStore) Emit(ctx context.Context, event *entities.SessionEvent) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	event.Origin = s.instanceID
	s.broadcast(event)

	s.mu.RLock()
	bus := s.bus
	s.mu.RUnlock()
	if bus != nil {
		if err := bus.Publish(ctx, event); err != nil {
			log.Warn().Err(err).Str("type", string(event.Type)).Msg("failed to publish session event")
		}
	}
}

func (s *SessionStore) broadcast(event *entities.SessionEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			log.Warn().Str("session_id", event.SessionID).Msg("session subscriber full, dropping event")
		}
	}
}

// Subscribe registers a listener. The channel is closed by Unsubscribe or
// Close.
func (s *SessionStore) Subscribe() <-chan *entities.SessionEvent {
	ch := make(chan *entities.SessionEvent, subscriberBuffer)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch
	}
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a listener returned by Subscribe
func (s *SessionStore) Unsubscribe(sub <-chan *entities.SessionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		if ch == sub {
			delete(s.subscribers, ch)
			close(ch)
			return
		}
	}
}

// AttachBus relays events from other instances into this store until Close
func (s *SessionStore) AttachBus(bus providers.SessionBus) error {
	ctx, cancel := context.WithCancel(context.Background())
	events, err := bus.Subscribe(ctx)
	if err != nil {
		cancel()
		return err
	}

	s.mu.Lock()
	s.bus = bus
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		for event := range events {
			s.applyRemote(event)
		}
	}()
	return nil
}

func (s *SessionStore) applyRemote(event *entities.SessionEvent) {
	if event.Origin == s.instanceID {
		return
	}
	switch event.Type {
	case entities.SessionEventSignedOut, entities.SessionEventTokenRefreshed:
		// Token refreshes are re-read from the database on next use.
		s.Remove(event.SessionID)
	case entities.SessionEventSignedIn, entities.SessionEventInitial:
	}
	s.broadcast(event)
}

// Close detaches the bus, closes every subscriber and drops cached sessions
func (s *SessionStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.sessions = make(map[string]*entities.Session)
	s.bus = nil
}
