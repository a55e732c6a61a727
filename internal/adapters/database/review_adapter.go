package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

// ReviewAdapter implements review persistence in Postgres.
type ReviewAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewReviewAdapter creates a new review adapter.
func NewReviewAdapter(client *postgres.Client) repositories.ReviewRepository {
	return &ReviewAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts a review record.
func (a *ReviewAdapter) Create(ctx context.Context, review *entities.Review) error {
	if review == nil {
		return apperrors.NewInternalError("review is nil", fmt.Errorf("review is nil"))
	}
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	review.CreatedAt = now
	review.UpdatedAt = now

	record := goqu.Record{
		"id":          review.ID,
		"provider_id": review.ProviderID,
		"user_id":     review.UserID,
		"rating":      review.Rating,
		"comment":     nullString(review.Comment),
		"created_at":  review.CreatedAt,
		"updated_at":  review.UpdatedAt,
	}

	query, args, err := a.db.Insert("reviews").Rows(record).Prepared(true).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build review insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewRemoteWriteError("failed to submit review", err)
	}
	return nil
}

// ListByProvider retrieves the reviews of a provider, newest first.
func (a *ReviewAdapter) ListByProvider(ctx context.Context, providerID string) ([]*entities.Review, error) {
	query, args, err := a.db.From("reviews").
		Select("id", "provider_id", "user_id", "rating", "comment", "created_at", "updated_at").
		Where(goqu.Ex{"provider_id": providerID}).
		Order(goqu.I("created_at").Desc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build reviews query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewRemoteQueryError("failed to list reviews", err)
	}
	defer rows.Close()

	reviews := make([]*entities.Review, 0)
	for rows.Next() {
		r := &entities.Review{}
		var comment sql.NullString
		if err := rows.Scan(&r.ID, &r.ProviderID, &r.UserID, &r.Rating, &comment, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, apperrors.NewRemoteQueryError("failed to scan review", err)
		}
		r.Comment = stringPtr(comment)
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewRemoteQueryError("failed to list reviews", err)
	}
	return reviews, nil
}
