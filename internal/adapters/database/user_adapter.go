package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// UserAdapter implements the UserRepository interface over auth_users
type UserAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewUserAdapter creates a new user adapter
func NewUserAdapter(client *postgres.Client) repositories.UserRepository {
	return &UserAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new user. Emails are stored lower-cased.
func (a *UserAdapter) Create(ctx context.Context, creds *entities.Credentials) error {
	if creds.ID == "" {
		creds.ID = uuid.NewString()
	}
	creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
	creds.AccountKind = creds.AccountKind.OrDefault()
	creds.CreatedAt = time.Now().UTC()

	query, args, err := a.db.Insert("auth_users").Rows(goqu.Record{
		"id":            creds.ID,
		"email":         creds.Email,
		"password_hash": nullString(creds.PasswordHash),
		"user_type":     string(creds.AccountKind),
		"created_at":    creds.CreatedAt,
	}).Prepared(true).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build user insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return apperrors.NewConflictError("an account with this email already exists")
		}
		return apperrors.NewRemoteWriteError("failed to create user", err)
	}
	return nil
}

// GetByEmail retrieves credentials by email
func (a *UserAdapter) GetByEmail(ctx context.Context, email string) (*entities.Credentials, error) {
	query, args, err := a.db.From("auth_users").
		Select("id", "email", "password_hash", "user_type", "created_at").
		Where(goqu.Ex{"email": strings.ToLower(strings.TrimSpace(email))}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build user query", err)
	}

	creds := &entities.Credentials{}
	var (
		hash sql.NullString
		kind string
	)
	err = a.client.DB().QueryRowContext(ctx, query, args...).
		Scan(&creds.ID, &creds.Email, &hash, &kind, &creds.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("user not found")
	}
	if err != nil {
		return nil, apperrors.NewRemoteQueryError("failed to get user", err)
	}

	if creds.AccountKind, err = entities.ParseAccountKind(kind); err != nil {
		return nil, apperrors.NewInternalError("invalid stored account kind", err)
	}
	creds.PasswordHash = stringPtr(hash)
	return creds, nil
}

// GetByID retrieves a user by ID
func (a *UserAdapter) GetByID(ctx context.Context, id string) (*entities.User, error) {
	query, args, err := a.db.From("auth_users").
		Select("id", "email", "user_type", "created_at").
		Where(goqu.Ex{"id": id}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build user query", err)
	}

	user := &entities.User{}
	var kind string
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.Email, &kind, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewRemoteQueryError("failed to get user", err)
	}

	if user.AccountKind, err = entities.ParseAccountKind(kind); err != nil {
		return nil, apperrors.NewInternalError("invalid stored account kind", err)
	}
	return user, nil
}
