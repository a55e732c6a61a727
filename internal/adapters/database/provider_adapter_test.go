package database_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/servicemapcy/servicemap/backend/internal/adapters/database"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderAdapter_GetByID(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewProviderAdapter(client)

	cols := append(append([]string{}, providerCols...), "c_id", "c_name", "c_name_en", "c_icon", "c_created_at")
	values := append(providerValues("p1", "Andreas Plumbing", "c2"), "c2", "Υδραυλικοί", "Plumbers", "droplet", fixedTime)

	mock.ExpectQuery(`FROM "providers" AS "p" LEFT JOIN "categories" AS "c" ON \("c"."id" = "p"."category_id"\) WHERE \("p"."id" = \$1\)`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(values...))

	provider, err := adapter.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Andreas Plumbing", provider.BusinessName)
	require.NotNil(t, provider.Category)
	assert.Equal(t, "Plumbers", provider.Category.NameEn)
	require.NotNil(t, provider.Description)
	assert.Nil(t, provider.WhatsApp)
	assert.NotNil(t, provider.Coordinates())
}

func TestProviderAdapter_GetByID_NotFound(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewProviderAdapter(client)

	mock.ExpectQuery(`FROM "providers"`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := adapter.GetByID(context.Background(), "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestProviderAdapter_List_VisibleInCategory(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewProviderAdapter(client)

	mock.ExpectQuery(`FROM "providers" WHERE .*"category_id" = \$1.*"is_active" IS TRUE.*"is_approved" IS TRUE.*ORDER BY "business_name" ASC`).
		WithArgs("c2").
		WillReturnRows(sqlmock.NewRows(providerCols).
			AddRow(providerValues("p1", "Andreas Plumbing", "c2")...).
			AddRow(providerValues("p2", "Nicos Pipes", "c2")...))

	providers, err := adapter.List(context.Background(), repositories.VisibleInCategory("c2"))
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "p1", providers[0].ID)
	assert.Equal(t, "p2", providers[1].ID)
}

func TestNearbyAdapter_PassesCategoryAsParameter(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewNearbyAdapter(client)

	cols := append(append([]string{}, providerCols...), "category_name", "category_icon", "distance_km")
	far := append(providerValues("p9", "Far Away Ltd", "c1"), "Electricians", "zap", 42.5)
	near := append(providerValues("p1", "Close By", "c1"), "Electricians", "zap", 0.8)

	mock.ExpectQuery(`FROM nearby_providers\(\$1, \$2, \$3, \$4\)`).
		WithArgs(34.7071, 33.0226, 10.0, "c1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(far...).AddRow(near...))

	category := "c1"
	results, err := adapter.Nearby(context.Background(), repositories.NearbyParams{
		Latitude:       34.7071,
		Longitude:      33.0226,
		RadiusKm:       10,
		CategoryFilter: &category,
	})
	require.NoError(t, err)

	// Rows beyond the radius and out of order are returned as received.
	require.Len(t, results, 2)
	assert.Equal(t, "p9", results[0].ID)
	assert.Equal(t, 42.5, results[0].DistanceKm)
	assert.Equal(t, "Electricians", results[1].CategoryName)
}

func TestNearbyAdapter_NoCategoryFilter(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewNearbyAdapter(client)

	cols := append(append([]string{}, providerCols...), "category_name", "category_icon", "distance_km")
	mock.ExpectQuery(`FROM nearby_providers\(\$1, \$2, \$3, (NULL|\$4)\)`).
		WillReturnRows(sqlmock.NewRows(cols))

	results, err := adapter.Nearby(context.Background(), repositories.NearbyParams{Latitude: 35.1856, Longitude: 33.3823, RadiusKm: 5})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestNearbyAdapter_Failure(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewNearbyAdapter(client)

	mock.ExpectQuery(`nearby_providers`).WillReturnError(sql.ErrConnDone)

	_, err := adapter.Nearby(context.Background(), repositories.NearbyParams{RadiusKm: 10})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRemoteQuery))
}

func TestProviderAdapter_Create_StartsUnapproved(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewProviderAdapter(client)

	mock.ExpectExec(`INSERT INTO "providers" \("address", "business_name", "category_id", .*"is_active", "is_approved", "latitude", "longitude"`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	lat, lng := 34.6786, 33.0413
	provider := &entities.Provider{
		UserID:       "u1",
		CategoryID:   "plumb",
		BusinessName: "Limassol Heating",
		Phone:        "+35799000001",
		Latitude:     &lat,
		Longitude:    &lng,
		IsApproved:   true,
	}
	require.NoError(t, adapter.Create(context.Background(), provider))
	assert.NotEmpty(t, provider.ID)
	assert.False(t, provider.IsApproved)
	assert.True(t, provider.IsActive)
	assert.False(t, provider.Visible())
	assert.False(t, provider.CreatedAt.IsZero())
}

func TestProviderAdapter_Create_Failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.ErrorType
	}{
		{name: "unknown category", err: &pq.Error{Code: "23503"}, want: apperrors.ErrorTypeValidation},
		{name: "backend failure", err: errors.New("connection reset"), want: apperrors.ErrorTypeRemoteWrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := newMockClient(t)
			adapter := database.NewProviderAdapter(client)
			mock.ExpectExec(`INSERT INTO "providers"`).WillReturnError(tt.err)

			err := adapter.Create(context.Background(), &entities.Provider{
				UserID: "u1", CategoryID: "nope", BusinessName: "Pipes", Phone: "+35799000001",
			})
			assert.True(t, apperrors.IsType(err, tt.want))
		})
	}
}
