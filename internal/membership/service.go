// internal/membership/service.go
package membership

import (
	"context"

	"github.com/google/uuid"
)

// LoanChecker answers whether a user currently holds an open loan. It is
// satisfied by the circulation service.
type LoanChecker interface {
	HasOpenLoanForUser(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Service defines the interface for the membership service.
type Service interface {
	Register(ctx context.Context, name, email, password string) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, id uuid.UUID, name, email, newPassword string) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
