package routes

import (
	"net/http"

	"github.com/servicemapcy/servicemap/backend/internal/api/handlers"
	"github.com/servicemapcy/servicemap/backend/internal/api/middleware"
	"github.com/servicemapcy/servicemap/backend/internal/application/loaders"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/observability"
)

// Handlers groups the route handlers. SessionEvents may be nil.
type Handlers struct {
	Discovery     *handlers.DiscoveryHandler
	Reviews       *handlers.ReviewHandler
	Profile       *handlers.ProfileHandler
	Auth          *handlers.AuthHandler
	SessionEvents *handlers.SessionEventsHandler
}

// Router holds all route handlers
type Router struct {
	mux             *http.ServeMux
	handlers        Handlers
	authenticator   middleware.Authenticator
	profileRepo     repositories.ProfileRepository
	cacheMiddleware *middleware.CacheMiddleware
	allowedOrigins  []string
	metrics         *observability.Metrics
}

// NewRouter creates a new router. cacheMiddleware and metrics may be nil.
func NewRouter(
	h Handlers,
	authenticator middleware.Authenticator,
	profileRepo repositories.ProfileRepository,
	cacheMiddleware *middleware.CacheMiddleware,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		handlers:        h,
		authenticator:   authenticator,
		profileRepo:     profileRepo,
		cacheMiddleware: cacheMiddleware,
		allowedOrigins:  allowedOrigins,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	authed := middleware.RequireAuth(r.authenticator)

	r.handleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Categories and providers
	r.handleFunc("GET /api/categories", r.handlers.Discovery.ListCategories)
	r.handleFunc("GET /api/categories/{id}/providers", r.handlers.Discovery.ListCategoryProviders)
	r.handleFunc("GET /api/providers/nearby", r.handlers.Discovery.FindNearby)
	r.handleFunc("GET /api/providers/search", r.handlers.Discovery.SearchProviders)
	r.handleFunc("GET /api/providers/{id}", r.handlers.Discovery.GetProvider)
	r.handle("POST /api/providers", authed(http.HandlerFunc(r.handlers.Discovery.CreateProvider)))

	// Reviews
	r.handleFunc("GET /api/providers/{id}/reviews", r.handlers.Reviews.ListReviews)
	r.handle("POST /api/providers/{id}/reviews", authed(http.HandlerFunc(r.handlers.Reviews.SubmitReview)))

	// Profile
	r.handle("GET /api/profile", authed(http.HandlerFunc(r.handlers.Profile.GetProfile)))
	r.handle("PUT /api/profile", authed(http.HandlerFunc(r.handlers.Profile.UpdateProfile)))
	r.handle("POST /api/profile/avatar", authed(http.HandlerFunc(r.handlers.Profile.UploadAvatar)))

	// Auth
	r.handleFunc("POST /api/auth/signup", r.handlers.Auth.SignUp)
	r.handleFunc("POST /api/auth/signin", r.handlers.Auth.SignIn)
	r.handleFunc("POST /api/auth/magic-link", r.handlers.Auth.RequestMagicLink)
	r.handleFunc("POST /api/auth/verify", r.handlers.Auth.VerifyMagicLink)
	r.handleFunc("POST /api/auth/refresh", r.handlers.Auth.Refresh)
	r.handle("POST /api/auth/signout", authed(http.HandlerFunc(r.handlers.Auth.SignOut)))
	r.handle("GET /api/auth/session", authed(http.HandlerFunc(r.handlers.Auth.GetSession)))
	if r.handlers.SessionEvents != nil {
		r.handle("GET /api/auth/session/events", authed(http.HandlerFunc(r.handlers.SessionEvents.Stream)))
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = loaders.Middleware(r.profileRepo)(handler)
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so headers are set even on cache hits
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

// handle registers h so that the matched pattern reaches the outer
// middleware for span names, metric labels and access logs
func (r *Router) handle(pattern string, h http.Handler) {
	r.mux.Handle(pattern, middleware.RecordRoute(h))
}

func (r *Router) handleFunc(pattern string, h http.HandlerFunc) {
	r.handle(pattern, h)
}
