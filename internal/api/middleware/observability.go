package middleware

import (
	"net/http"
	"time"

	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/observability"
	"go.opentelemetry.io/otel/attribute"
)

// unmatchedRoute labels requests no route claimed, keeping raw paths such as
// provider ids out of span names and metric labels.
const unmatchedRoute = "unmatched"

// ObservabilityMiddleware traces and measures each request under its route
// pattern. The pattern is only known once the mux has matched, so the span
// is renamed after the handler returns.
func ObservabilityMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, info := observability.WithRequestInfo(r.Context())
			ctx, span := observability.StartSpan(ctx, r.Method+" "+unmatchedRoute)
			defer span.End()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rw, r.WithContext(ctx))

			route, name := info.Route, info.Route
			if route == "" {
				route = unmatchedRoute
				name = r.Method + " " + unmatchedRoute
			}
			span.SetName(name)
			observability.SetSpanAttributes(span,
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.Int("http.status_code", rw.statusCode),
			)
			if info.UserID != "" {
				observability.SetSpanAttributes(span, attribute.String("enduser.id", info.UserID))
			}
			observability.RecordRequestMetric(ctx, metrics, r.Method, route, rw.statusCode, time.Since(start))
		})
	}
}

// RecordRoute stores the matched mux pattern for the outer middleware. It
// must wrap handlers registered on the mux, where r.Pattern is set.
func RecordRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		observability.SetRoute(r.Context(), r.Pattern)
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
