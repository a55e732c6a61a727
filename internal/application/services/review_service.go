package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/servicemapcy/servicemap/backend/internal/application/loaders"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

// ReviewSubmission is the input of SubmitReview. Rating is a pointer so that
// an unset rating can be told apart from zero.
type ReviewSubmission struct {
	ProviderID string
	UserID     string
	Rating     *int
	Comment    string
}

// SubmitReviewResult carries the stored review and the reloaded list. When
// the insert succeeded but the reload failed, Reviews is nil and ReloadErr is
// set.
type SubmitReviewResult struct {
	Review    *entities.Review
	Reviews   []*entities.Review
	ReloadErr error
}

// ReviewService handles review submission and listing
type ReviewService struct {
	reviewRepo  repositories.ReviewRepository
	profileRepo repositories.ProfileRepository
}

// NewReviewService creates a new review service
func NewReviewService(reviewRepo repositories.ReviewRepository, profileRepo repositories.ProfileRepository) *ReviewService {
	return &ReviewService{reviewRepo: reviewRepo, profileRepo: profileRepo}
}

// SubmitReview validates and stores a review, then reloads the provider's
// full review list. Nothing is inserted optimistically.
func (s *ReviewService) SubmitReview(ctx context.Context, sub ReviewSubmission) (*SubmitReviewResult, error) {
	if err := validateSubmission(sub); err != nil {
		return nil, err
	}

	review := &entities.Review{
		ProviderID: sub.ProviderID,
		UserID:     sub.UserID,
		Rating:     *sub.Rating,
	}
	if comment := strings.TrimSpace(sub.Comment); comment != "" {
		review.Comment = &comment
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, remoteWrite("failed to submit review", err)
	}

	result := &SubmitReviewResult{Review: review}
	reviews, err := s.ListReviews(ctx, sub.ProviderID)
	if err != nil {
		log.Warn().Err(err).Str("provider_id", sub.ProviderID).Msg("review stored but reload failed")
		result.ReloadErr = err
		return result, nil
	}
	result.Reviews = reviews
	return result, nil
}

func validateSubmission(sub ReviewSubmission) error {
	switch {
	case strings.TrimSpace(sub.UserID) == "":
		return apperrors.NewValidationError("you must be signed in to leave a review")
	case strings.TrimSpace(sub.ProviderID) == "":
		return apperrors.NewValidationError("provider id is required")
	case sub.Rating == nil:
		return apperrors.NewValidationError("rating is required")
	case *sub.Rating < entities.MinRating || *sub.Rating > entities.MaxRating:
		return apperrors.NewValidationError("rating must be between 1 and 5")
	}
	return nil
}

// ListReviews returns the reviews of a provider newest first with author
// profiles attached where they exist
func (s *ReviewService) ListReviews(ctx context.Context, providerID string) ([]*entities.Review, error) {
	reviews, err := s.reviewRepo.ListByProvider(ctx, providerID)
	if err != nil {
		return nil, remoteQuery("failed to list reviews", err)
	}
	if len(reviews) == 0 {
		return []*entities.Review{}, nil
	}

	l := loaders.For(ctx)
	if l == nil {
		l = loaders.NewLoaders(s.profileRepo)
	}

	seen := make(map[string]struct{}, len(reviews))
	userIDs := make([]string, 0, len(reviews))
	for _, r := range reviews {
		if _, ok := seen[r.UserID]; !ok {
			seen[r.UserID] = struct{}{}
			userIDs = append(userIDs, r.UserID)
		}
	}

	profiles, errs := l.ProfileLoader.LoadMany(ctx, userIDs)()
	if len(errs) > 0 {
		// Reviews are still useful without author names.
		log.Warn().Errs("errors", errs).Str("provider_id", providerID).Msg("failed to load review authors")
		return reviews, nil
	}

	byID := make(map[string]*entities.Profile, len(profiles))
	for i, p := range profiles {
		byID[userIDs[i]] = p
	}
	for _, r := range reviews {
		r.Author = byID[r.UserID]
	}
	return reviews, nil
}
