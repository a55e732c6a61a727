package entities

import "time"

// Category is a fixed taxonomy bucket providers belong to. Categories are
// reference data; the application reads them and never mutates them.
type Category struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	NameEn    string    `json:"name_en" db:"name_en"`
	Icon      string    `json:"icon" db:"icon"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
