package entities

import (
	"fmt"
	"time"
)

// AccountKind is the closed set of account roles.
type AccountKind string

const (
	AccountKindClient   AccountKind = "client"
	AccountKindProvider AccountKind = "provider"
	AccountKindAdmin    AccountKind = "admin"
)

// ParseAccountKind converts a stored value into an AccountKind.
func ParseAccountKind(value string) (AccountKind, error) {
	switch kind := AccountKind(value); kind {
	case AccountKindClient, AccountKindProvider, AccountKindAdmin:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown account kind %q", value)
	}
}

// OrDefault returns k, or AccountKindClient when k is empty.
func (k AccountKind) OrDefault() AccountKind {
	if k == "" {
		return AccountKindClient
	}
	return k
}

// Profile is the public record of a user account. It is created lazily on
// the first save and upserted by id afterwards.
type Profile struct {
	ID          string      `json:"id" db:"id"`
	Email       *string     `json:"email" db:"email"`
	FullName    *string     `json:"full_name" db:"full_name"`
	Phone       *string     `json:"phone" db:"phone"`
	AvatarURL   *string     `json:"avatar_url" db:"avatar_url"`
	AccountKind AccountKind `json:"user_type" db:"user_type"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}
