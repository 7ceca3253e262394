// internal/catalog/domain.go
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Book is a catalog entry. Available is derived state: it is true exactly
// when no open loan references the book, and only the circulation service
// flips it.
type Book struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Author        string    `json:"author" db:"author"`
	PublishedYear *int      `json:"published_year,omitempty" db:"published_year"`
	Available     bool      `json:"available" db:"available"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
