package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

// MagicLinkAdapter stores hashed single-use sign-in tokens
type MagicLinkAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewMagicLinkAdapter creates a new magic link adapter
func NewMagicLinkAdapter(client *postgres.Client) repositories.MagicLinkRepository {
	return &MagicLinkAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create stores a token hash for email
func (a *MagicLinkAdapter) Create(ctx context.Context, tokenHash, email string, expiresAt time.Time) error {
	query, args, err := a.db.Insert("auth_magic_links").Rows(goqu.Record{
		"token_hash": tokenHash,
		"email":      email,
		"expires_at": expiresAt,
		"created_at": time.Now().UTC(),
	}).Prepared(true).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build magic link insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewRemoteWriteError("failed to store magic link", err)
	}
	return nil
}

// Consume marks an unused, unexpired token as used in a single statement
func (a *MagicLinkAdapter) Consume(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	query, args, err := a.db.Update("auth_magic_links").
		Set(goqu.Record{"used_at": now}).
		Where(
			goqu.C("token_hash").Eq(tokenHash),
			goqu.C("used_at").IsNull(),
			goqu.C("expires_at").Gt(now),
		).
		Returning("email").
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", apperrors.NewInternalError("failed to build magic link consume query", err)
	}

	var email string
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.NewNotFoundError("sign-in link is invalid or has expired")
	}
	if err != nil {
		return "", apperrors.NewRemoteWriteError("failed to consume magic link", err)
	}
	return email, nil
}
