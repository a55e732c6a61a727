package handlers

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/servicemapcy/servicemap/backend/internal/api/middleware"
	"github.com/servicemapcy/servicemap/backend/internal/application/services"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/providers"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

const (
	reviewRateLimit  = 10
	reviewRateWindow = time.Hour
	maxCommentLength = 2000
)

// ReviewService defines the review operations used by the handler
type ReviewService interface {
	ListReviews(ctx context.Context, providerID string) ([]*entities.Review, error)
	SubmitReview(ctx context.Context, sub services.ReviewSubmission) (*services.SubmitReviewResult, error)
}

// ReviewHandler lists and accepts provider reviews
type ReviewHandler struct {
	service ReviewService
	cache   providers.CacheProvider
	local   *localRateLimiter
}

// NewReviewHandler creates a new review handler. cache may be nil, in which
// case submissions are rate limited per process.
func NewReviewHandler(service ReviewService, cache providers.CacheProvider) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		cache:   cache,
		local:   newLocalRateLimiter(),
	}
}

type reviewRequest struct {
	Rating  *int   `json:"rating"`
	Comment string `json:"comment"`
}

// validate rejects a malformed submission before it spends rate limit quota
func (p reviewRequest) validate() error {
	if p.Rating == nil {
		return apperrors.NewValidationError("rating is required")
	}
	if *p.Rating < 1 || *p.Rating > 5 {
		return apperrors.NewValidationError("rating must be between 1 and 5")
	}
	if utf8.RuneCountInString(p.Comment) > maxCommentLength {
		return apperrors.NewValidationError("comment is too long")
	}
	return nil
}

// ListReviews handles GET /api/providers/{id}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListReviews(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"reviews": reviews,
		"count":   len(reviews),
	})
}

// SubmitReview handles POST /api/providers/{id}/reviews
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		respondWithAppError(w, apperrors.NewUnauthorizedError("you must be signed in to leave a review"))
		return
	}

	var payload reviewRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	if err := payload.validate(); err != nil {
		respondWithAppError(w, err)
		return
	}

	allowed, retryAfter := h.allowRequest(r.Context(), "reviews:rate:"+session.User.ID)
	if !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	result, err := h.service.SubmitReview(r.Context(), services.ReviewSubmission{
		ProviderID: r.PathValue("id"),
		UserID:     session.User.ID,
		Rating:     payload.Rating,
		Comment:    payload.Comment,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	body := map[string]interface{}{
		"review":  result.Review,
		"reviews": result.Reviews,
	}
	if result.ReloadErr != nil {
		body["reload_error"] = apperrors.Message(result.ReloadErr)
	}
	respondWithJSON(w, http.StatusCreated, body)
}

func (h *ReviewHandler) allowRequest(ctx context.Context, key string) (bool, time.Duration) {
	if h.cache == nil {
		return h.local.allow(key, reviewRateLimit, reviewRateWindow)
	}

	count, err := h.cache.Increment(ctx, key, reviewRateWindow)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("rate limit cache unavailable, using local limiter")
		return h.local.allow(key, reviewRateLimit, reviewRateWindow)
	}
	if count > reviewRateLimit {
		return false, reviewRateWindow
	}
	return true, reviewRateWindow
}

// localRateLimiter is a fixed-window counter per key. Expired windows are
// swept at most once per sweepInterval.
type localRateLimiter struct {
	mu        sync.Mutex
	states    map[string]*localRateState
	lastSweep time.Time
}

const sweepInterval = time.Minute

type localRateState struct {
	count   int
	resetAt time.Time
}

func newLocalRateLimiter() *localRateLimiter {
	return &localRateLimiter{states: make(map[string]*localRateState)}
}

func (l *localRateLimiter) allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	return l.allowAt(time.Now(), key, limit, window)
}

func (l *localRateLimiter) allowAt(now time.Time, key string, limit int, window time.Duration) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
	}

	state, ok := l.states[key]
	if !ok || now.After(state.resetAt) {
		state = &localRateState{resetAt: now.Add(window)}
		l.states[key] = state
	}

	if state.count >= limit {
		retryAfter := state.resetAt.Sub(now)
		if retryAfter < 0 {
			retryAfter = window
		}
		return false, retryAfter
	}

	state.count++
	return true, window
}

func (l *localRateLimiter) sweep(now time.Time) {
	for key, state := range l.states {
		if now.After(state.resetAt) {
			delete(l.states, key)
		}
	}
	l.lastSweep = now
}
