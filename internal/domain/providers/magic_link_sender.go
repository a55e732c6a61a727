package providers

import (
	"context"
	"time"
)

// MagicLink is a passwordless sign-in link addressed to an email
type MagicLink struct {
	Email     string    `json:"email"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MagicLinkSender hands sign-in links to the delivery pipeline
type MagicLinkSender interface {
	Send(ctx context.Context, link MagicLink) error
	Close() error
}
