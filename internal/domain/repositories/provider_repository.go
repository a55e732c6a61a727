package repositories

import (
	"context"

	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
)

// ProviderRepository defines access to providers
type ProviderRepository interface {
	// Create inserts a provider awaiting moderation
	Create(ctx context.Context, provider *entities.Provider) error

	// GetByID retrieves a provider with its category
	GetByID(ctx context.Context, id string) (*entities.Provider, error)

	// List retrieves providers matching the filter
	List(ctx context.Context, filter ProviderFilter) ([]*entities.Provider, error)
}

// NearbyRepository invokes the server-side nearest-provider procedure
type NearbyRepository interface {
	Nearby(ctx context.Context, params NearbyParams) ([]*entities.NearbyProvider, error)
}

// ProviderFilter defines filters for listing providers. A nil flag means the
// column is not constrained.
type ProviderFilter struct {
	CategoryID string
	IsApproved *bool
	IsActive   *bool
	Limit      int
	Offset     int
}

// VisibleInCategory returns the filter used by category listings
func VisibleInCategory(categoryID string) ProviderFilter {
	approved, active := true, true
	return ProviderFilter{
		CategoryID: categoryID,
		IsApproved: &approved,
		IsActive:   &active,
	}
}

// NearbyParams are the parameters of the nearby_providers procedure
type NearbyParams struct {
	Latitude       float64
	Longitude      float64
	RadiusKm       float64
	CategoryFilter *string
}

// ProviderSearchIndex defines full-text search over providers (e.g. Typesense)
type ProviderSearchIndex interface {
	// Search returns provider ids ranked by text relevance
	Search(ctx context.Context, params ProviderSearchParams) ([]string, error)

	// Index upserts a provider document
	Index(ctx context.Context, provider *entities.Provider) error

	// Delete removes a provider from the index
	Delete(ctx context.Context, id string) error
}

// ProviderSearchParams defines parameters for provider text search
type ProviderSearchParams struct {
	Query      string
	CategoryID *string
	Limit      int
}
