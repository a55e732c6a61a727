package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/servicemapcy/servicemap/backend/internal/adapters/database"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewAdapter_Create(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewReviewAdapter(client)

	mock.ExpectExec(`INSERT INTO "reviews"`).WillReturnResult(sqlmock.NewResult(1, 1))

	comment := "Fixed the leak in an hour"
	review := &entities.Review{ProviderID: "p1", UserID: "u1", Rating: 5, Comment: &comment}
	require.NoError(t, adapter.Create(context.Background(), review))
	assert.NotEmpty(t, review.ID)
	assert.False(t, review.CreatedAt.IsZero())
}

func TestReviewAdapter_Create_Failure(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewReviewAdapter(client)

	mock.ExpectExec(`INSERT INTO "reviews"`).WillReturnError(errors.New("violates foreign key"))

	err := adapter.Create(context.Background(), &entities.Review{ProviderID: "p1", UserID: "u1", Rating: 4})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRemoteWrite))
}

func TestReviewAdapter_ListByProvider_NewestFirst(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewReviewAdapter(client)

	mock.ExpectQuery(`FROM "reviews" WHERE \("provider_id" = \$1\) ORDER BY "created_at" DESC`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "provider_id", "user_id", "rating", "comment", "created_at", "updated_at"}).
			AddRow("r2", "p1", "u2", 4, nil, fixedTime, fixedTime).
			AddRow("r1", "p1", "u1", 5, "Great", fixedTime, fixedTime))

	reviews, err := adapter.ListByProvider(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Nil(t, reviews[0].Comment)
	require.NotNil(t, reviews[1].Comment)
	assert.Equal(t, "Great", *reviews[1].Comment)
}
