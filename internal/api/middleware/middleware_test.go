package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/servicemapcy/servicemap/backend/internal/api/middleware"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator struct {
	sessions map[string]*entities.Session
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, token string) (*entities.Session, error) {
	if session, ok := s.sessions[token]; ok {
		return session, nil
	}
	return nil, errors.New("unknown token")
}

func TestRequireAuth(t *testing.T) {
	auth := &stubAuthenticator{sessions: map[string]*entities.Session{
		"good": {ID: "s1", User: entities.User{ID: "u1"}},
	}}

	var seen *entities.Session
	handler := middleware.RequireAuth(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, "u1", seen.User.ID)
			} else {
				assert.Nil(t, seen)
				assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })

	restricted := middleware.CORSMiddleware([]string{"https://servicemap.cy"})(next)

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set("Origin", "https://servicemap.cy")
	w := httptest.NewRecorder()
	restricted.ServeHTTP(w, req)
	assert.Equal(t, "https://servicemap.cy", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusTeapot, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	restricted.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	open := middleware.CORSMiddleware(nil)(next)
	req = httptest.NewRequest(http.MethodOptions, "/api/categories", nil)
	req.Header.Set("Origin", "https://anything.example")
	w = httptest.NewRecorder()
	open.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, w.Code)
}

type MockCacheProvider struct {
	mock.Mock
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockCacheProvider) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	args := m.Called(ctx, key, ttl)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func TestCacheMiddleware_MissThenStore(t *testing.T) {
	cache := new(MockCacheProvider)
	cache.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("miss"))
	cache.On("Set", mock.Anything, mock.Anything, []byte(`{"categories":[]}`), 30*time.Minute).Return(nil)

	calls := 0
	handler := middleware.NewCacheMiddleware(cache, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"categories":[]}`))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, 1, calls)
	cache.AssertExpectations(t)
}

func TestCacheMiddleware_Hit(t *testing.T) {
	cache := new(MockCacheProvider)
	cache.On("Get", mock.Anything, mock.Anything).Return([]byte(`{"cached":true}`), nil)

	handler := middleware.NewCacheMiddleware(cache, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run on a cache hit")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"cached":true}`, w.Body.String())
}

func TestCacheMiddleware_SkipsUncachedRoutes(t *testing.T) {
	cache := new(MockCacheProvider)

	handler := middleware.NewCacheMiddleware(cache, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/providers/nearby?lat=1&lng=2", nil),
		httptest.NewRequest(http.MethodPost, "/api/categories", nil),
	} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("X-Cache"))
	}
	cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

type memoryCache struct {
	mu     sync.Mutex
	values map[string][]byte
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	return nil, errors.New("miss")
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memoryCache) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("not supported")
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

func (c *memoryCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok, nil
}

func TestCacheMiddleware_ProviderListingsStayFresh(t *testing.T) {
	cache := &memoryCache{values: map[string][]byte{}}

	body := `{"providers":[{"id":"p1","is_active":true}],"count":1}`
	handler := middleware.NewCacheMiddleware(cache, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories/c1/providers", nil))
	assert.JSONEq(t, body, w.Body.String())

	// p1 is deactivated between the two requests.
	body = `{"providers":[],"count":0}`
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories/c1/providers", nil))

	assert.NotEqual(t, "HIT", w.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"providers":[],"count":0}`, w.Body.String())
	assert.Empty(t, cache.values)
}

func TestCacheMiddleware_TaxonomyServedFromCache(t *testing.T) {
	cache := &memoryCache{values: map[string][]byte{}}

	calls := 0
	handler := middleware.NewCacheMiddleware(cache, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"categories":[{"id":"c1"}]}`))
	}))

	for _, want := range []string{"MISS", "HIT"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
		assert.Equal(t, want, w.Header().Get("X-Cache"))
		assert.JSONEq(t, `{"categories":[{"id":"c1"}]}`, w.Body.String())
	}
	assert.Equal(t, 1, calls)
}

func TestCacheMiddleware_Invalidate(t *testing.T) {
	cache := &memoryCache{values: map[string][]byte{}}
	cm := middleware.NewCacheMiddleware(cache, nil)

	body := `{"categories":[{"id":"c1"}]}`
	handler := cm.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	require.Len(t, cache.values, 1)

	require.NoError(t, cm.Invalidate(context.Background(), "/api/categories"))
	assert.Empty(t, cache.values)

	body = `{"categories":[{"id":"c1"},{"id":"c2"}]}`
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.JSONEq(t, body, w.Body.String())
}
