package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

var profileColumns = []interface{}{"id", "email", "full_name", "phone", "avatar_url", "user_type", "created_at", "updated_at"}

// ProfileAdapter implements the ProfileRepository interface
type ProfileAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProfileAdapter creates a new profile adapter
func NewProfileAdapter(client *postgres.Client) repositories.ProfileRepository {
	return &ProfileAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a profile
func (a *ProfileAdapter) GetByID(ctx context.Context, id string) (*entities.Profile, error) {
	query, args, err := a.db.From("profiles").
		Select(profileColumns...).
		Where(goqu.Ex{"id": id}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build profile query", err)
	}

	profile, err := scanProfile(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("profile with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewRemoteQueryError("failed to get profile", err)
	}
	return profile, nil
}

// GetByIDs retrieves the profiles that exist among ids, in no particular order
func (a *ProfileAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Profile, error) {
	if len(ids) == 0 {
		return []*entities.Profile{}, nil
	}

	query, args, err := a.db.From("profiles").
		Select(profileColumns...).
		Where(goqu.Ex{"id": ids}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build profiles query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewRemoteQueryError("failed to load profiles", err)
	}
	defer rows.Close()

	profiles := make([]*entities.Profile, 0, len(ids))
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, apperrors.NewRemoteQueryError("failed to scan profile", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewRemoteQueryError("failed to load profiles", err)
	}
	return profiles, nil
}

// Upsert inserts the profile or updates the existing row with the same id.
// created_at is only written on insert.
func (a *ProfileAdapter) Upsert(ctx context.Context, profile *entities.Profile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	profile.AccountKind = profile.AccountKind.OrDefault()

	record := goqu.Record{
		"id":         profile.ID,
		"email":      nullString(profile.Email),
		"full_name":  nullString(profile.FullName),
		"phone":      nullString(profile.Phone),
		"avatar_url": nullString(profile.AvatarURL),
		"user_type":  string(profile.AccountKind),
		"created_at": profile.CreatedAt,
		"updated_at": profile.UpdatedAt,
	}

	query, args, err := a.db.Insert("profiles").
		Rows(record).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"email":      goqu.L("EXCLUDED.email"),
			"full_name":  goqu.L("EXCLUDED.full_name"),
			"phone":      goqu.L("EXCLUDED.phone"),
			"avatar_url": goqu.L("EXCLUDED.avatar_url"),
			"user_type":  goqu.L("EXCLUDED.user_type"),
			"updated_at": goqu.L("EXCLUDED.updated_at"),
		})).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build profile upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewRemoteWriteError("failed to save profile", err)
	}
	return nil
}

func scanProfile(row rowScanner) (*entities.Profile, error) {
	p := &entities.Profile{}
	var (
		email, fullName, phone, avatarURL sql.NullString
		kind                              string
	)
	if err := row.Scan(&p.ID, &email, &fullName, &phone, &avatarURL, &kind, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	accountKind, err := entities.ParseAccountKind(kind)
	if err != nil {
		return nil, err
	}

	p.Email = stringPtr(email)
	p.FullName = stringPtr(fullName)
	p.Phone = stringPtr(phone)
	p.AvatarURL = stringPtr(avatarURL)
	p.AccountKind = accountKind
	return p, nil
}
