package repositories

import (
	"context"

	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
)

// CategoryRepository defines read access to the category taxonomy
type CategoryRepository interface {
	// List returns all categories ordered by name
	List(ctx context.Context) ([]*entities.Category, error)
}
