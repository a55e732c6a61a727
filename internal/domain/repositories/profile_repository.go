package repositories

import (
	"context"

	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
)

// ProfileRepository defines profile operations
type ProfileRepository interface {
	// GetByID retrieves a profile
	GetByID(ctx context.Context, id string) (*entities.Profile, error)

	// GetByIDs retrieves the profiles that exist among ids
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Profile, error)

	// Upsert inserts the profile or updates the row with the same id
	Upsert(ctx context.Context, profile *entities.Profile) error
}
