// internal/membership/domain.go
package membership

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered library user. Password material stays in the users
// relation and never leaves this package.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
