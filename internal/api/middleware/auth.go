package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/observability"
)

// Authenticator resolves a bearer token to a session
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*entities.Session, error)
}

type sessionKey struct{}

// WithSession returns a context carrying session
func WithSession(ctx context.Context, session *entities.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the authenticated session, or nil
func SessionFromContext(ctx context.Context) *entities.Session {
	session, _ := ctx.Value(sessionKey{}).(*entities.Session)
	return session
}

// RequireAuth rejects requests without a valid bearer token
func RequireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			session, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				unauthorized(w, "invalid or expired session")
				return
			}

			observability.SetIdentity(r.Context(), session.ID, session.User.ID)
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
