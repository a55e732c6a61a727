package repositories

import (
	"context"
	"time"

	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
)

// UserRepository defines the credential store behind authentication
type UserRepository interface {
	// Create creates a new user; a duplicate email is a conflict
	Create(ctx context.Context, creds *entities.Credentials) error

	// GetByEmail retrieves credentials by email
	GetByEmail(ctx context.Context, email string) (*entities.Credentials, error)

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*entities.User, error)
}

// SessionRecord is the durable half of a session
type SessionRecord struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	ExpiresAt        time.Time
	RevokedAt        *time.Time
	CreatedAt        time.Time
}

// SessionRepository persists sessions so that they survive restarts
type SessionRepository interface {
	Create(ctx context.Context, record *SessionRecord) error
	GetByID(ctx context.Context, id string) (*SessionRecord, error)
	GetByRefreshTokenHash(ctx context.Context, hash string) (*SessionRecord, error)
	// Rotate swaps the refresh token of a live session
	Rotate(ctx context.Context, id, newHash string, expiresAt time.Time) error
	Revoke(ctx context.Context, id string) error
}

// MagicLinkRepository stores single-use passwordless sign-in tokens
type MagicLinkRepository interface {
	Create(ctx context.Context, tokenHash, email string, expiresAt time.Time) error
	// Consume marks the token used and returns its email; unknown, used or
	// expired tokens are reported as not found
	Consume(ctx context.Context, tokenHash string, now time.Time) (string, error)
}
