package repositories

import (
	"context"

	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
)

// ReviewRepository defines review operations
type ReviewRepository interface {
	// Create inserts a review and fills in its generated fields
	Create(ctx context.Context, review *entities.Review) error

	// ListByProvider retrieves reviews of a provider, newest first
	ListByProvider(ctx context.Context, providerID string) ([]*entities.Review, error)
}
