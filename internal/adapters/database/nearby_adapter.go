package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

// NearbyAdapter calls the nearby_providers procedure. Distance filtering and
// ordering happen inside the database; rows are returned as received.
type NearbyAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewNearbyAdapter creates a new nearby adapter
func NewNearbyAdapter(client *postgres.Client) repositories.NearbyRepository {
	return &NearbyAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Nearby invokes nearby_providers(user_lat, user_lng, radius_km, category_filter)
func (a *NearbyAdapter) Nearby(ctx context.Context, params repositories.NearbyParams) ([]*entities.NearbyProvider, error) {
	var category interface{}
	if params.CategoryFilter != nil {
		category = *params.CategoryFilter
	}

	cols := append(toIdentifiers(providerColumns),
		goqu.I("category_name"), goqu.I("category_icon"), goqu.I("distance_km"))

	query, args, err := a.db.From(goqu.L("nearby_providers(?, ?, ?, ?)",
		params.Latitude, params.Longitude, params.RadiusKm, category)).
		Select(cols...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build nearby query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewRemoteQueryError("failed to find nearby providers", err)
	}
	defer rows.Close()

	results := make([]*entities.NearbyProvider, 0)
	for rows.Next() {
		np := &entities.NearbyProvider{}
		p, err := scanProvider(rows, &np.CategoryName, &np.CategoryIcon, &np.DistanceKm)
		if err != nil {
			return nil, apperrors.NewRemoteQueryError("failed to scan nearby provider", err)
		}
		np.Provider = *p
		results = append(results, np)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewRemoteQueryError("failed to find nearby providers", err)
	}
	return results, nil
}
