package database_test

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/postgres"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newMockClient(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return postgres.NewClientFromDB(db), mock
}

var providerCols = []string{
	"id", "user_id", "category_id", "business_name", "description", "photo_url",
	"phone", "whatsapp", "telegram", "address", "latitude", "longitude",
	"is_approved", "is_active", "rejection_reason", "created_at", "updated_at",
}

func providerValues(id, name, categoryID string) []driver.Value {
	return []driver.Value{
		id, "user-" + id, categoryID, name, "Friendly local service", nil,
		"+35799000000", nil, nil, "Makariou Ave 1", 34.7071, 33.0226,
		true, true, nil, fixedTime, fixedTime,
	}
}
