package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

// CategoryAdapter implements the CategoryRepository interface
type CategoryAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewCategoryAdapter creates a new category adapter
func NewCategoryAdapter(client *postgres.Client) repositories.CategoryRepository {
	return &CategoryAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// List returns every category ordered by its primary name
func (a *CategoryAdapter) List(ctx context.Context) ([]*entities.Category, error) {
	query, args, err := a.db.From("categories").
		Select("id", "name", "name_en", "icon", "created_at").
		Order(goqu.I("name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build categories query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewRemoteQueryError("failed to list categories", err)
	}
	defer rows.Close()

	categories := make([]*entities.Category, 0)
	for rows.Next() {
		c := &entities.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.NameEn, &c.Icon, &c.CreatedAt); err != nil {
			return nil, apperrors.NewRemoteQueryError("failed to scan category", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewRemoteQueryError("failed to list categories", err)
	}

	return categories, nil
}
