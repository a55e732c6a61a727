package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/servicemapcy/servicemap/backend/internal/domain/providers"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/observability"
)

// CacheMiddleware caches successful GET responses of read-only reference
// routes, matched by exact path. Provider listings are never cached since
// approval and activation changes must show up on the next request.
type CacheMiddleware struct {
	cache   providers.CacheProvider
	routes  map[string]time.Duration
	metrics *observability.Metrics
}

// NewCacheMiddleware creates a cache middleware for the category taxonomy.
// metrics may be nil.
func NewCacheMiddleware(cache providers.CacheProvider, metrics *observability.Metrics) *CacheMiddleware {
	return &CacheMiddleware{
		cache:   cache,
		metrics: metrics,
		routes: map[string]time.Duration{
			"/api/categories": 30 * time.Minute,
		},
	}
}

// Middleware returns the cache middleware handler
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || m.cache == nil {
			next.ServeHTTP(w, r)
			return
		}

		ttl, ok := m.routes[r.URL.Path]
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		key := cacheKey(r.Method, r.URL.Path, r.URL.RawQuery)
		if cached, err := m.cache.Get(r.Context(), key); err == nil {
			observability.RecordCacheHit(r.Context(), m.metrics, r.URL.Path)
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}

		observability.RecordCacheMiss(r.Context(), m.metrics, r.URL.Path)
		w.Header().Set("X-Cache", "MISS")
		recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK, body: &bytes.Buffer{}}
		next.ServeHTTP(recorder, r)

		if recorder.statusCode == http.StatusOK && recorder.body.Len() > 0 {
			if err := m.cache.Set(r.Context(), key, recorder.body.Bytes(), ttl); err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("failed to cache response")
			}
		}
	})
}

// Invalidate drops the cached GET response of path without a query string
func (m *CacheMiddleware) Invalidate(ctx context.Context, path string) error {
	return m.cache.Delete(ctx, cacheKey(http.MethodGet, path, ""))
}

func cacheKey(method, path, rawQuery string) string {
	key := fmt.Sprintf("%s:%s", method, path)
	if rawQuery != "" {
		key += "?" + rawQuery
	}
	hash := sha256.Sum256([]byte(key))
	return "http:cache:" + hex.EncodeToString(hash[:])
}

// responseRecorder captures the response for caching
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}
