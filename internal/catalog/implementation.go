// internal/catalog/implementation.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound     = errors.New("book not found")
	ErrHasOpenLoans = errors.New("book is currently on loan")
)

// service implements the Service interface.
type service struct {
	db    *sqlx.DB
	loans LoanChecker
}

// NewService creates a new catalog service instance.
func NewService(db *sqlx.DB, loans LoanChecker) Service {
	return &service{db: db, loans: loans}
}

// Add creates a new book. New entries are always available.
func (s *service) Add(ctx context.Context, title, author string, publishedYear *int) (*Book, error) {
	book := &Book{}
	query := `
		INSERT INTO books (id, title, author, published_year, available)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, title, author, published_year, available, created_at, updated_at
	`
	err := s.db.GetContext(ctx, book, query, uuid.New(), title, author, publishedYear)
	if err != nil {
		return nil, fmt.Errorf("failed to insert book: %w", err)
	}
	return book, nil
}

// Get retrieves a book by ID.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	book := &Book{}
	query := `
		SELECT id, title, author, published_year, available, created_at, updated_at
		FROM books
		WHERE id = $1
	`
	err := s.db.GetContext(ctx, book, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return book, nil
}

// List returns all books ordered by title.
func (s *service) List(ctx context.Context) ([]*Book, error) {
	return s.list(ctx, false)
}

// ListAvailable returns the books currently available for checkout.
func (s *service) ListAvailable(ctx context.Context) ([]*Book, error) {
	return s.list(ctx, true)
}

func (s *service) list(ctx context.Context, onlyAvailable bool) ([]*Book, error) {
	books := []*Book{}
	query := `
		SELECT id, title, author, published_year, available, created_at, updated_at
		FROM books
	`
	if onlyAvailable {
		query += ` WHERE available`
	}
	query += ` ORDER BY title`

	if err := s.db.SelectContext(ctx, &books, query); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// Update edits a book's descriptive fields. The available flag belongs to
// the circulation service and is never touched here.
func (s *service) Update(ctx context.Context, id uuid.UUID, title, author string, publishedYear *int) (*Book, error) {
	book := &Book{}
	query := `
		UPDATE books
		SET title = $1, author = $2, published_year = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING id, title, author, published_year, available, created_at, updated_at
	`
	err := s.db.GetContext(ctx, book, query, title, author, publishedYear, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update book: %w", err)
	}
	return book, nil
}

// Remove deletes a book. The loan ledger is consulted first; the DELETE
// itself re-checks for open loans so a checkout racing the delete cannot
// remove a book that just went out.
func (s *service) Remove(ctx context.Context, id uuid.UUID) error {
	hasOpen, err := s.loans.HasOpenLoanForBook(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check open loans: %w", err)
	}
	if hasOpen {
		return ErrHasOpenLoans
	}

	query := `
		DELETE FROM books
		WHERE id = $1
		AND NOT EXISTS (
			SELECT 1 FROM loans WHERE book_id = $1 AND returned_on IS NULL
		)
	`
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		hasOpen, err = s.loans.HasOpenLoanForBook(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to re-check open loans: %w", err)
		}
		if hasOpen {
			return ErrHasOpenLoans
		}
		return ErrNotFound
	}

	return nil
}
