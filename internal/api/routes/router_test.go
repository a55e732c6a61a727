package routes_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/servicemapcy/servicemap/backend/internal/api/handlers"
	"github.com/servicemapcy/servicemap/backend/internal/api/routes"
	"github.com/servicemapcy/servicemap/backend/internal/application/services"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/stretchr/testify/assert"
)

type stubDiscovery struct{}

func (stubDiscovery) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	return []*entities.Category{{ID: "c1", Name: "Plumbers"}}, nil
}

func (stubDiscovery) ListProvidersByCategory(ctx context.Context, categoryID string) ([]*entities.Provider, error) {
	return []*entities.Provider{{ID: "p-" + categoryID}}, nil
}

func (stubDiscovery) FindNearby(ctx context.Context, q services.NearbyQuery) ([]*entities.NearbyProvider, error) {
	return []*entities.NearbyProvider{}, nil
}

func (stubDiscovery) SearchProviders(ctx context.Context, text string, categoryID *string) ([]*entities.Provider, error) {
	return []*entities.Provider{}, nil
}

func (stubDiscovery) GetProviderDetail(ctx context.Context, id string) (*services.ProviderDetail, error) {
	return &services.ProviderDetail{Provider: &entities.Provider{ID: id}}, nil
}

func (stubDiscovery) CreateProvider(ctx context.Context, in services.ProviderInput) (*entities.Provider, error) {
	return &entities.Provider{ID: "p-new", UserID: in.UserID, BusinessName: in.BusinessName}, nil
}

type stubReviews struct{}

func (stubReviews) ListReviews(ctx context.Context, providerID string) ([]*entities.Review, error) {
	return []*entities.Review{}, nil
}

func (stubReviews) SubmitReview(ctx context.Context, sub services.ReviewSubmission) (*services.SubmitReviewResult, error) {
	return &services.SubmitReviewResult{Review: &entities.Review{ID: "r1", ProviderID: sub.ProviderID}}, nil
}

type stubProfiles struct{}

func (stubProfiles) Get(ctx context.Context, userID string) (*entities.Profile, error) {
	return &entities.Profile{ID: userID}, nil
}

func (stubProfiles) Save(ctx context.Context, userID string, upd services.ProfileUpdate) (*entities.Profile, error) {
	return &entities.Profile{ID: userID}, nil
}

func (stubProfiles) UploadAvatar(ctx context.Context, userID, filename string, data []byte) (*entities.Profile, error) {
	return &entities.Profile{ID: userID}, nil
}

type stubAuth struct{}

func (stubAuth) SignUp(ctx context.Context, req services.SignUpRequest) (*entities.Session, error) {
	return &entities.Session{ID: "s1"}, nil
}

func (stubAuth) SignInWithPassword(ctx context.Context, email, password string) (*entities.Session, error) {
	return &entities.Session{ID: "s1"}, nil
}

func (stubAuth) RequestMagicLink(ctx context.Context, email string) error { return nil }

func (stubAuth) VerifyMagicLink(ctx context.Context, token string) (*entities.Session, error) {
	return &entities.Session{ID: "s1"}, nil
}

func (stubAuth) Refresh(ctx context.Context, refreshToken string) (*entities.Session, error) {
	return &entities.Session{ID: "s1"}, nil
}

func (stubAuth) SignOut(ctx context.Context, sessionID, userID string) error { return nil }

func (stubAuth) Authenticate(ctx context.Context, token string) (*entities.Session, error) {
	switch token {
	case "valid":
		return &entities.Session{ID: "s1", User: entities.User{ID: "u1"}}, nil
	case "provider":
		return &entities.Session{ID: "s2", User: entities.User{ID: "u2", AccountKind: entities.AccountKindProvider}}, nil
	}
	return nil, errors.New("invalid")
}

func newTestRouter() http.Handler {
	h := routes.Handlers{
		Discovery: handlers.NewDiscoveryHandler(stubDiscovery{}),
		Reviews:   handlers.NewReviewHandler(stubReviews{}, nil),
		Profile:   handlers.NewProfileHandler(stubProfiles{}),
		Auth:      handlers.NewAuthHandler(stubAuth{}),
	}
	return routes.NewRouter(h, stubAuth{}, nil, nil, []string{"*"}, nil).SetupRoutes()
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		token  string
		status int
	}{
		{"health", http.MethodGet, "/health", "", "", http.StatusOK},
		{"categories", http.MethodGet, "/api/categories", "", "", http.StatusOK},
		{"category providers", http.MethodGet, "/api/categories/c1/providers", "", "", http.StatusOK},
		{"nearby", http.MethodGet, "/api/providers/nearby?lat=35.17&lng=33.36", "", "", http.StatusOK},
		{"provider detail", http.MethodGet, "/api/providers/p1", "", "", http.StatusOK},
		{"add business needs auth", http.MethodPost, "/api/providers", `{}`, "", http.StatusUnauthorized},
		{"add business as client", http.MethodPost, "/api/providers", `{"business_name":"Pipes"}`, "valid", http.StatusForbidden},
		{"add business as provider", http.MethodPost, "/api/providers", `{"business_name":"Pipes"}`, "provider", http.StatusCreated},
		{"reviews list", http.MethodGet, "/api/providers/p1/reviews", "", "", http.StatusOK},
		{"review needs auth", http.MethodPost, "/api/providers/p1/reviews", `{"rating":5}`, "", http.StatusUnauthorized},
		{"review with auth", http.MethodPost, "/api/providers/p1/reviews", `{"rating":5}`, "valid", http.StatusCreated},
		{"profile needs auth", http.MethodGet, "/api/profile", "", "bad", http.StatusUnauthorized},
		{"profile", http.MethodGet, "/api/profile", "", "valid", http.StatusOK},
		{"sign in", http.MethodPost, "/api/auth/signin", `{"email":"a@example.com","password":"secret1"}`, "", http.StatusOK},
		{"session", http.MethodGet, "/api/auth/session", "", "valid", http.StatusOK},
		{"sign out", http.MethodPost, "/api/auth/signout", "", "valid", http.StatusNoContent},
		{"unknown method", http.MethodDelete, "/api/categories", "", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
