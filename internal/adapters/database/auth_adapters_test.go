package database_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/servicemapcy/servicemap/backend/internal/adapters/database"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserAdapter_Create_DuplicateEmail(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewUserAdapter(client)

	mock.ExpectExec(`INSERT INTO "auth_users"`).WillReturnError(&pq.Error{Code: "23505"})

	err := adapter.Create(context.Background(), &entities.Credentials{User: entities.User{Email: "A@Example.com"}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}

func TestUserAdapter_Create_NormalizesEmail(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewUserAdapter(client)

	mock.ExpectExec(`INSERT INTO "auth_users"`).WillReturnResult(sqlmock.NewResult(1, 1))

	creds := &entities.Credentials{User: entities.User{Email: " Maria@Example.com "}}
	require.NoError(t, adapter.Create(context.Background(), creds))
	assert.Equal(t, "maria@example.com", creds.Email)
	assert.Equal(t, entities.AccountKindClient, creds.AccountKind)
	assert.NotEmpty(t, creds.ID)
}

func TestUserAdapter_GetByEmail(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewUserAdapter(client)

	mock.ExpectQuery(`FROM "auth_users" WHERE \("email" = \$1\)`).
		WithArgs("maria@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "user_type", "created_at"}).
			AddRow("u1", "maria@example.com", "$2a$10$hash", "client", fixedTime))

	creds, err := adapter.GetByEmail(context.Background(), "Maria@example.com")
	require.NoError(t, err)
	require.NotNil(t, creds.PasswordHash)
	assert.Equal(t, "u1", creds.ID)
}

func TestSessionAdapter_Rotate_RevokedSession(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewSessionAdapter(client)

	mock.ExpectExec(`UPDATE "auth_sessions" SET .* WHERE .*"revoked_at" IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := adapter.Rotate(context.Background(), "s1", "newhash", time.Now().Add(time.Hour))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestSessionAdapter_GetByRefreshTokenHash(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewSessionAdapter(client)

	mock.ExpectQuery(`FROM "auth_sessions" WHERE \("refresh_token_hash" = \$1\)`).
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "refresh_token_hash", "expires_at", "revoked_at", "created_at"}).
			AddRow("s1", "u1", "h1", fixedTime.Add(time.Hour), nil, fixedTime))

	rec, err := adapter.GetByRefreshTokenHash(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, "s1", rec.ID)
	assert.Nil(t, rec.RevokedAt)
}

func TestSessionAdapter_Create(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewSessionAdapter(client)

	mock.ExpectExec(`INSERT INTO "auth_sessions"`).WillReturnResult(sqlmock.NewResult(1, 1))

	rec := &repositories.SessionRecord{ID: "s1", UserID: "u1", RefreshTokenHash: "h1", ExpiresAt: fixedTime}
	require.NoError(t, adapter.Create(context.Background(), rec))
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestMagicLinkAdapter_Consume(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewMagicLinkAdapter(client)

	mock.ExpectQuery(`UPDATE "auth_magic_links" SET "used_at"=\$1 WHERE .* RETURNING "email"`).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("maria@example.com"))

	email, err := adapter.Consume(context.Background(), "hash", fixedTime)
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", email)
}

func TestMagicLinkAdapter_Consume_UsedOrExpired(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewMagicLinkAdapter(client)

	mock.ExpectQuery(`UPDATE "auth_magic_links"`).WillReturnError(sql.ErrNoRows)

	_, err := adapter.Consume(context.Background(), "hash", fixedTime)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}
