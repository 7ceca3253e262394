// internal/circulation/service.go
package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service defines the interface for the circulation service.
type Service interface {
	Checkout(ctx context.Context, userID, bookID uuid.UUID, issuedOn time.Time) (*Loan, error)
	Return(ctx context.Context, loanID uuid.UUID, returnedOn time.Time) (*Loan, error)
	HasOpenLoanForUser(ctx context.Context, userID uuid.UUID) (bool, error)
	HasOpenLoanForBook(ctx context.Context, bookID uuid.UUID) (bool, error)
	List(ctx context.Context) ([]*Record, error)
}
