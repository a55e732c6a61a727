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

var sessionColumns = []interface{}{"id", "user_id", "refresh_token_hash", "expires_at", "revoked_at", "created_at"}

// SessionAdapter implements the SessionRepository interface over auth_sessions
type SessionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSessionAdapter creates a new session adapter
func NewSessionAdapter(client *postgres.Client) repositories.SessionRepository {
	return &SessionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create stores a new session
func (a *SessionAdapter) Create(ctx context.Context, record *repositories.SessionRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query, args, err := a.db.Insert("auth_sessions").Rows(goqu.Record{
		"id":                 record.ID,
		"user_id":            record.UserID,
		"refresh_token_hash": record.RefreshTokenHash,
		"expires_at":         record.ExpiresAt,
		"created_at":         record.CreatedAt,
	}).Prepared(true).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build session insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewRemoteWriteError("failed to create session", err)
	}
	return nil
}

// GetByID retrieves a session, revoked or not
func (a *SessionAdapter) GetByID(ctx context.Context, id string) (*repositories.SessionRecord, error) {
	return a.get(ctx, goqu.Ex{"id": id})
}

// GetByRefreshTokenHash retrieves the session owning a refresh token
func (a *SessionAdapter) GetByRefreshTokenHash(ctx context.Context, hash string) (*repositories.SessionRecord, error) {
	return a.get(ctx, goqu.Ex{"refresh_token_hash": hash})
}

func (a *SessionAdapter) get(ctx context.Context, where goqu.Ex) (*repositories.SessionRecord, error) {
	query, args, err := a.db.From("auth_sessions").
		Select(sessionColumns...).
		Where(where).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build session query", err)
	}

	rec := &repositories.SessionRecord{}
	var revokedAt sql.NullTime
	err = a.client.DB().QueryRowContext(ctx, query, args...).
		Scan(&rec.ID, &rec.UserID, &rec.RefreshTokenHash, &rec.ExpiresAt, &revokedAt, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("session not found")
	}
	if err != nil {
		return nil, apperrors.NewRemoteQueryError("failed to get session", err)
	}
	rec.RevokedAt = timePtr(revokedAt)
	return rec, nil
}

// Rotate replaces the refresh token hash of a live session
func (a *SessionAdapter) Rotate(ctx context.Context, id, newHash string, expiresAt time.Time) error {
	query, args, err := a.db.Update("auth_sessions").
		Set(goqu.Record{"refresh_token_hash": newHash, "expires_at": expiresAt}).
		Where(goqu.Ex{"id": id, "revoked_at": nil}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build session rotate query", err)
	}
	return a.execOne(ctx, query, args, "failed to rotate session")
}

// Revoke marks a session as signed out
func (a *SessionAdapter) Revoke(ctx context.Context, id string) error {
	query, args, err := a.db.Update("auth_sessions").
		Set(goqu.Record{"revoked_at": time.Now().UTC()}).
		Where(goqu.Ex{"id": id, "revoked_at": nil}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build session revoke query", err)
	}
	return a.execOne(ctx, query, args, "failed to revoke session")
}

func (a *SessionAdapter) execOne(ctx context.Context, query string, args []interface{}, msg string) error {
	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewRemoteWriteError(msg, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewRemoteWriteError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError("session not found")
	}
	return nil
}
