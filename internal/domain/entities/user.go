package entities

import (
	"time"
)

// User is the authenticated identity behind a session
type User struct {
	ID          string      `json:"id" db:"id"`
	Email       string      `json:"email" db:"email"`
	AccountKind AccountKind `json:"user_type" db:"user_type"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// Credentials is the stored sign-in material of a user
type Credentials struct {
	User
	PasswordHash *string `db:"password_hash"`
}

// Session is an authenticated identity plus its token bundle
type Session struct {
	ID           string    `json:"id"`
	User         User      `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SessionEventType names a change of session state
type SessionEventType string

const (
	SessionEventInitial        SessionEventType = "INITIAL_SESSION"
	SessionEventSignedIn       SessionEventType = "SIGNED_IN"
	SessionEventSignedOut      SessionEventType = "SIGNED_OUT"
	SessionEventTokenRefreshed SessionEventType = "TOKEN_REFRESHED"
)

// SessionEvent is delivered to session store subscribers
type SessionEvent struct {
	Type      SessionEventType `json:"type"`
	SessionID string           `json:"session_id"`
	UserID    string           `json:"user_id"`
	Session   *Session         `json:"-"`
	At        time.Time        `json:"at"`
	Origin    string           `json:"origin,omitempty"`
}
