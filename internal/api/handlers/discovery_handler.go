package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/servicemapcy/servicemap/backend/internal/api/middleware"
	"github.com/servicemapcy/servicemap/backend/internal/application/services"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

// DiscoveryService defines the discovery operations used by the handler
type DiscoveryService interface {
	ListCategories(ctx context.Context) ([]*entities.Category, error)
	ListProvidersByCategory(ctx context.Context, categoryID string) ([]*entities.Provider, error)
	FindNearby(ctx context.Context, q services.NearbyQuery) ([]*entities.NearbyProvider, error)
	SearchProviders(ctx context.Context, text string, categoryID *string) ([]*entities.Provider, error)
	GetProviderDetail(ctx context.Context, id string) (*services.ProviderDetail, error)
	CreateProvider(ctx context.Context, in services.ProviderInput) (*entities.Provider, error)
}

// DiscoveryHandler serves categories and providers
type DiscoveryHandler struct {
	service DiscoveryService
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(service DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{service: service}
}

// ListCategories handles GET /api/categories
func (h *DiscoveryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// ListCategoryProviders handles GET /api/categories/{id}/providers
func (h *DiscoveryHandler) ListCategoryProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.service.ListProvidersByCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"providers": providers,
		"count":     len(providers),
	})
}

// FindNearby handles GET /api/providers/nearby?lat=&lng=&radius_km=&category=
func (h *DiscoveryHandler) FindNearby(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	lat, err := strconv.ParseFloat(query.Get("lat"), 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid latitude parameter")
		return
	}
	lng, err := strconv.ParseFloat(query.Get("lng"), 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid longitude parameter")
		return
	}

	var radius float64
	if raw := query.Get("radius_km"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid radius parameter")
			return
		}
	}

	results, err := h.service.FindNearby(r.Context(), services.NearbyQuery{
		Latitude:   lat,
		Longitude:  lng,
		RadiusKm:   radius,
		CategoryID: optionalParam(query.Get("category")),
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"providers": results,
		"count":     len(results),
	})
}

// SearchProviders handles GET /api/providers/search?q=&category=
func (h *DiscoveryHandler) SearchProviders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	text := strings.TrimSpace(query.Get("q"))
	if text == "" {
		respondWithError(w, http.StatusBadRequest, "search text is required")
		return
	}

	providers, err := h.service.SearchProviders(r.Context(), text, optionalParam(query.Get("category")))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"providers": providers,
		"count":     len(providers),
		"query":     text,
	})
}

// GetProvider handles GET /api/providers/{id}
func (h *DiscoveryHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetProviderDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, detail)
}

type createProviderRequest struct {
	CategoryID   string   `json:"category_id"`
	BusinessName string   `json:"business_name"`
	Description  *string  `json:"description"`
	Phone        string   `json:"phone"`
	WhatsApp     *string  `json:"whatsapp"`
	Telegram     *string  `json:"telegram"`
	Address      *string  `json:"address"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

// CreateProvider handles POST /api/providers. Only provider accounts may
// list a business; the listing waits for moderation.
func (h *DiscoveryHandler) CreateProvider(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		respondWithAppError(w, apperrors.NewUnauthorizedError("you must be signed in to add a business"))
		return
	}

	switch session.User.AccountKind.OrDefault() {
	case entities.AccountKindProvider:
	case entities.AccountKindClient, entities.AccountKindAdmin:
		respondWithAppError(w, apperrors.NewPermissionDeniedError("only provider accounts can add a business"))
		return
	default:
		respondWithAppError(w, apperrors.NewPermissionDeniedError("unknown account kind"))
		return
	}

	var payload createProviderRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	provider, err := h.service.CreateProvider(r.Context(), services.ProviderInput{
		UserID:       session.User.ID,
		CategoryID:   payload.CategoryID,
		BusinessName: payload.BusinessName,
		Description:  payload.Description,
		Phone:        payload.Phone,
		WhatsApp:     payload.WhatsApp,
		Telegram:     payload.Telegram,
		Address:      payload.Address,
		Latitude:     payload.Latitude,
		Longitude:    payload.Longitude,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{"provider": provider})
}

func optionalParam(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
