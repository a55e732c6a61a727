package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/servicemapcy/servicemap/backend/internal/application/services"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReviewService_SubmitReview_Validation(t *testing.T) {
	tests := []struct {
		name string
		sub  services.ReviewSubmission
	}{
		{name: "nil rating", sub: services.ReviewSubmission{ProviderID: "p1", UserID: "u1"}},
		{name: "signed out", sub: services.ReviewSubmission{ProviderID: "p1", Rating: intPtr(4)}},
		{name: "rating too low", sub: services.ReviewSubmission{ProviderID: "p1", UserID: "u1", Rating: intPtr(0)}},
		{name: "rating too high", sub: services.ReviewSubmission{ProviderID: "p1", UserID: "u1", Rating: intPtr(6)}},
		{name: "no provider", sub: services.ReviewSubmission{UserID: "u1", Rating: intPtr(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reviews := new(MockReviewRepository)
			profiles := new(MockProfileRepository)
			svc := services.NewReviewService(reviews, profiles)

			_, err := svc.SubmitReview(context.Background(), tt.sub)

			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
			reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			reviews.AssertNotCalled(t, "ListByProvider", mock.Anything, mock.Anything)
		})
	}
}

func TestReviewService_SubmitReview_ReloadsList(t *testing.T) {
	reviews := new(MockReviewRepository)
	profiles := new(MockProfileRepository)
	svc := services.NewReviewService(reviews, profiles)

	reviews.On("Create", mock.Anything, mock.MatchedBy(func(r *entities.Review) bool {
		return r.ProviderID == "p1" && r.UserID == "u1" && r.Rating == 5 && r.Comment != nil && *r.Comment == "Great job"
	})).Return(nil)
	reviews.On("ListByProvider", mock.Anything, "p1").Return([]*entities.Review{
		{ID: "new", UserID: "u1", Rating: 5},
		{ID: "old", UserID: "u2", Rating: 3},
	}, nil)
	profiles.On("GetByIDs", mock.Anything, mock.Anything).Return([]*entities.Profile{
		{ID: "u1", FullName: strPtr("Maria")},
		{ID: "u2", FullName: strPtr("Giorgos")},
	}, nil)

	result, err := svc.SubmitReview(context.Background(), services.ReviewSubmission{
		ProviderID: "p1", UserID: "u1", Rating: intPtr(5), Comment: "  Great job ",
	})
	require.NoError(t, err)
	require.NoError(t, result.ReloadErr)
	require.Len(t, result.Reviews, 2)
	assert.Equal(t, "new", result.Reviews[0].ID)
	assert.Equal(t, "Giorgos", *result.Reviews[1].Author.FullName)
}

func TestReviewService_SubmitReview_EmptyCommentStoredAsNull(t *testing.T) {
	reviews := new(MockReviewRepository)
	svc := services.NewReviewService(reviews, new(MockProfileRepository))

	reviews.On("Create", mock.Anything, mock.MatchedBy(func(r *entities.Review) bool {
		return r.Comment == nil
	})).Return(nil)
	reviews.On("ListByProvider", mock.Anything, "p1").Return([]*entities.Review{}, nil)

	result, err := svc.SubmitReview(context.Background(), services.ReviewSubmission{ProviderID: "p1", UserID: "u1", Rating: intPtr(2), Comment: "   "})
	require.NoError(t, err)
	assert.Empty(t, result.Reviews)
}

func TestReviewService_SubmitReview_InsertFailure(t *testing.T) {
	reviews := new(MockReviewRepository)
	svc := services.NewReviewService(reviews, new(MockProfileRepository))

	reviews.On("Create", mock.Anything, mock.Anything).Return(errors.New("permission denied for table reviews"))

	_, err := svc.SubmitReview(context.Background(), services.ReviewSubmission{ProviderID: "p1", UserID: "u1", Rating: intPtr(4)})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRemoteWrite))
	reviews.AssertNotCalled(t, "ListByProvider", mock.Anything, mock.Anything)
}

func TestReviewService_SubmitReview_ReloadFailureKeepsReview(t *testing.T) {
	reviews := new(MockReviewRepository)
	svc := services.NewReviewService(reviews, new(MockProfileRepository))

	reviews.On("Create", mock.Anything, mock.Anything).Return(nil)
	reviews.On("ListByProvider", mock.Anything, "p1").Return(nil, errors.New("timeout"))

	result, err := svc.SubmitReview(context.Background(), services.ReviewSubmission{ProviderID: "p1", UserID: "u1", Rating: intPtr(4)})
	require.NoError(t, err)
	assert.NotNil(t, result.Review)
	assert.Nil(t, result.Reviews)
	assert.True(t, apperrors.IsType(result.ReloadErr, apperrors.ErrorTypeRemoteQuery))
}

func TestReviewService_ListReviews_AuthorLookupFailureIsTolerated(t *testing.T) {
	reviews := new(MockReviewRepository)
	profiles := new(MockProfileRepository)
	svc := services.NewReviewService(reviews, profiles)

	reviews.On("ListByProvider", mock.Anything, "p1").Return([]*entities.Review{{ID: "r1", UserID: "u1", Rating: 5}}, nil)
	profiles.On("GetByIDs", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	got, err := svc.ListReviews(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Author)
}
