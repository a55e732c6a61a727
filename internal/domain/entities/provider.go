package entities

import "time"

// Provider is a business offering a service, owned by a user account.
type Provider struct {
	ID              string    `json:"id" db:"id"`
	UserID          string    `json:"user_id" db:"user_id"`
	CategoryID      string    `json:"category_id" db:"category_id"`
	BusinessName    string    `json:"business_name" db:"business_name"`
	Description     *string   `json:"description" db:"description"`
	PhotoURL        *string   `json:"photo_url" db:"photo_url"`
	Phone           string    `json:"phone" db:"phone"`
	WhatsApp        *string   `json:"whatsapp" db:"whatsapp"`
	Telegram        *string   `json:"telegram" db:"telegram"`
	Address         *string   `json:"address" db:"address"`
	Latitude        *float64  `json:"latitude" db:"latitude"`
	Longitude       *float64  `json:"longitude" db:"longitude"`
	IsApproved      bool      `json:"is_approved" db:"is_approved"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	RejectionReason *string   `json:"rejection_reason,omitempty" db:"rejection_reason"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`

	// Category is attached by single-provider lookups.
	Category *Category `json:"category,omitempty" db:"-"`
}

// Visible reports whether the provider may appear in listings.
func (p *Provider) Visible() bool {
	return p.IsApproved && p.IsActive
}

// Coordinates returns the provider position, or nil when it has none.
func (p *Provider) Coordinates() *Coordinates {
	if p.Latitude == nil || p.Longitude == nil {
		return nil
	}
	return &Coordinates{Latitude: *p.Latitude, Longitude: *p.Longitude}
}

// NearbyProvider is a provider row returned by the nearby procedure. The
// distance is computed server-side and rows arrive ordered by it.
type NearbyProvider struct {
	Provider
	CategoryName string  `json:"category_name" db:"category_name"`
	CategoryIcon string  `json:"category_icon" db:"category_icon"`
	DistanceKm   float64 `json:"distance_km" db:"distance_km"`
}
