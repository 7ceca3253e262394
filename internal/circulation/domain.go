// internal/circulation/domain.go
package circulation

import (
	"time"

	"github.com/google/uuid"
)

// Loan links a user and a book. A loan is open while ReturnedOn is nil and
// becomes returned exactly once; loans are never deleted. Those two rules
// are the whole lifecycle.
type Loan struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	BookID     uuid.UUID  `json:"book_id" db:"book_id"`
	IssuedOn   time.Time  `json:"issued_on" db:"issued_on"`
	ReturnedOn *time.Time `json:"returned_on,omitempty" db:"returned_on"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Open reports whether the book is still checked out on this loan.
func (l *Loan) Open() bool {
	return l.ReturnedOn == nil
}

// Record is a loan joined with the borrower's name and the book's title,
// as shown on the loan overview.
type Record struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	UserName   string     `json:"user_name" db:"user_name"`
	BookID     uuid.UUID  `json:"book_id" db:"book_id"`
	BookTitle  string     `json:"book_title" db:"book_title"`
	IssuedOn   time.Time  `json:"issued_on" db:"issued_on"`
	ReturnedOn *time.Time `json:"returned_on,omitempty" db:"returned_on"`
}
