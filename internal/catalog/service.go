// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"
)

// LoanChecker answers whether a book currently has an open loan. It is
// satisfied by the circulation service.
type LoanChecker interface {
	HasOpenLoanForBook(ctx context.Context, bookID uuid.UUID) (bool, error)
}

// Service defines the interface for the catalog service.
type Service interface {
	Add(ctx context.Context, title, author string, publishedYear *int) (*Book, error)
	Get(ctx context.Context, id uuid.UUID) (*Book, error)
	List(ctx context.Context) ([]*Book, error)
	ListAvailable(ctx context.Context) ([]*Book, error)
	Update(ctx context.Context, id uuid.UUID, title, author string, publishedYear *int) (*Book, error)
	Remove(ctx context.Context, id uuid.UUID) error
}
