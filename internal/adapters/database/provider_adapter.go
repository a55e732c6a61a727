package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

var providerColumns = []string{
	"id", "user_id", "category_id", "business_name", "description", "photo_url",
	"phone", "whatsapp", "telegram", "address", "latitude", "longitude",
	"is_approved", "is_active", "rejection_reason", "created_at", "updated_at",
}

// ProviderAdapter implements the ProviderRepository interface
type ProviderAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProviderAdapter creates a new provider adapter
func NewProviderAdapter(client *postgres.Client) repositories.ProviderRepository {
	return &ProviderAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts a provider. New providers start unapproved and active so
// they stay out of listings until moderated.
func (a *ProviderAdapter) Create(ctx context.Context, provider *entities.Provider) error {
	if provider == nil {
		return apperrors.NewInternalError("provider is nil", fmt.Errorf("provider is nil"))
	}
	if provider.ID == "" {
		provider.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	provider.IsApproved = false
	provider.IsActive = true
	provider.RejectionReason = nil
	provider.CreatedAt = now
	provider.UpdatedAt = now

	record := goqu.Record{
		"id":            provider.ID,
		"user_id":       provider.UserID,
		"category_id":   provider.CategoryID,
		"business_name": provider.BusinessName,
		"description":   nullString(provider.Description),
		"photo_url":     nullString(provider.PhotoURL),
		"phone":         provider.Phone,
		"whatsapp":      nullString(provider.WhatsApp),
		"telegram":      nullString(provider.Telegram),
		"address":       nullString(provider.Address),
		"latitude":      nullFloat(provider.Latitude),
		"longitude":     nullFloat(provider.Longitude),
		"is_approved":   provider.IsApproved,
		"is_active":     provider.IsActive,
		"created_at":    provider.CreatedAt,
		"updated_at":    provider.UpdatedAt,
	}

	query, args, err := a.db.Insert("providers").Rows(record).Prepared(true).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build provider insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return apperrors.NewValidationError(fmt.Sprintf("unknown category %s", provider.CategoryID))
		}
		return apperrors.NewRemoteWriteError("failed to create provider", err)
	}
	return nil
}

// GetByID retrieves a provider joined with its category
func (a *ProviderAdapter) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	cols := qualified("p", providerColumns)
	cols = append(cols,
		goqu.I("c.id"), goqu.I("c.name"), goqu.I("c.name_en"), goqu.I("c.icon"), goqu.I("c.created_at"),
	)

	query, args, err := a.db.From(goqu.T("providers").As("p")).
		Select(cols...).
		LeftJoin(goqu.T("categories").As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("p.category_id")))).
		Where(goqu.I("p.id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build provider query", err)
	}

	var (
		catID, catName, catNameEn, catIcon sql.NullString
		catCreatedAt                       sql.NullTime
	)
	provider, err := scanProvider(a.client.DB().QueryRowContext(ctx, query, args...),
		&catID, &catName, &catNameEn, &catIcon, &catCreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewRemoteQueryError("failed to get provider", err)
	}

	if catID.Valid {
		provider.Category = &entities.Category{
			ID:        catID.String,
			Name:      catName.String,
			NameEn:    catNameEn.String,
			Icon:      catIcon.String,
			CreatedAt: catCreatedAt.Time,
		}
	}
	return provider, nil
}

// List retrieves providers matching the filter ordered by business name
func (a *ProviderAdapter) List(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	where := goqu.Ex{}
	if filter.CategoryID != "" {
		where["category_id"] = filter.CategoryID
	}
	if filter.IsApproved != nil {
		where["is_approved"] = *filter.IsApproved
	}
	if filter.IsActive != nil {
		where["is_active"] = *filter.IsActive
	}

	ds := a.db.From("providers").
		Select(toIdentifiers(providerColumns)...).
		Where(where).
		Order(goqu.I("business_name").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build providers query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewRemoteQueryError("failed to list providers", err)
	}
	defer rows.Close()

	providers := make([]*entities.Provider, 0)
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, apperrors.NewRemoteQueryError("failed to scan provider", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewRemoteQueryError("failed to list providers", err)
	}
	return providers, nil
}

// scanProvider reads the provider columns followed by any extra destinations
func scanProvider(row rowScanner, extra ...interface{}) (*entities.Provider, error) {
	p := &entities.Provider{}
	var (
		description, photoURL, whatsapp, telegram, address, rejection sql.NullString
		latitude, longitude                                           sql.NullFloat64
	)

	dest := []interface{}{
		&p.ID, &p.UserID, &p.CategoryID, &p.BusinessName, &description, &photoURL,
		&p.Phone, &whatsapp, &telegram, &address, &latitude, &longitude,
		&p.IsApproved, &p.IsActive, &rejection, &p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	p.Description = stringPtr(description)
	p.PhotoURL = stringPtr(photoURL)
	p.WhatsApp = stringPtr(whatsapp)
	p.Telegram = stringPtr(telegram)
	p.Address = stringPtr(address)
	p.Latitude = floatPtr(latitude)
	p.Longitude = floatPtr(longitude)
	p.RejectionReason = stringPtr(rejection)
	return p, nil
}

func toIdentifiers(cols []string) []interface{} {
	out := make([]interface{}, len(cols))
	for i, c := range cols {
		out[i] = goqu.I(c)
	}
	return out
}

func qualified(alias string, cols []string) []interface{} {
	out := make([]interface{}, len(cols))
	for i, c := range cols {
		out[i] = goqu.I(alias + "." + c)
	}
	return out
}
