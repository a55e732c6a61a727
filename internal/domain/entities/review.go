package entities

import "time"

// Review is a rating left by a signed-in user for a provider. Reviews are
// append-only from the application's point of view.
type Review struct {
	ID         string    `json:"id" db:"id"`
	ProviderID string    `json:"provider_id" db:"provider_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Rating     int       `json:"rating" db:"rating"`
	Comment    *string   `json:"comment" db:"comment"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`

	// Author is the denormalized profile of the reviewer, when it exists.
	Author *Profile `json:"profile,omitempty" db:"-"`
}

const (
	MinRating = 1
	MaxRating = 5
)
