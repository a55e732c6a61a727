package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/servicemapcy/servicemap/backend/internal/api/middleware"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
)

const sessionHeartbeatInterval = 30 * time.Second

// SessionWatcher streams the events of one session
type SessionWatcher interface {
	WatchSession(ctx context.Context, session *entities.Session) <-chan *entities.SessionEvent
}

// SessionEventsHandler streams session changes as Server-Sent Events
type SessionEventsHandler struct {
	watcher   SessionWatcher
	heartbeat time.Duration
}

// NewSessionEventsHandler creates a new session events handler
func NewSessionEventsHandler(watcher SessionWatcher) *SessionEventsHandler {
	return &SessionEventsHandler{watcher: watcher, heartbeat: sessionHeartbeatInterval}
}

// Stream handles GET /api/auth/session/events. The stream opens with an
// INITIAL_SESSION event and ends after SIGNED_OUT.
func (h *SessionEventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		respondWithError(w, http.StatusUnauthorized, "sign in required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := h.watcher.WatchSession(r.Context(), session)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Str("session_id", session.ID).Msg("session stream client disconnected")
			return
		case <-ticker.C:
			writeSSE(w, "heartbeat", map[string]interface{}{"timestamp": time.Now().UTC()})
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			writeSSE(w, string(event.Type), event)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("failed to marshal stream event")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
}
