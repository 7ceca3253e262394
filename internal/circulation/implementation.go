// internal/circulation/implementation.go
package circulation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrBookUnavailable = errors.New("book is not available")
	ErrAlreadyReturned = errors.New("loan is already returned")
)

var dialect = goqu.Dialect("postgres")

// service implements the Service interface.
type service struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

// NewService creates a new circulation service instance.
func NewService(db *sqlx.DB) Service {
	return &service{
		db:     db,
		tracer: otel.Tracer("librarium/circulation"),
	}
}

// Checkout opens a loan for a book. The availability flag is re-read under
// a row lock inside a serializable transaction, so a caller-supplied
// snapshot is never trusted: of two concurrent checkouts for the same book
// exactly one commits and the other observes ErrBookUnavailable.
func (s *service) Checkout(ctx context.Context, userID, bookID uuid.UUID, issuedOn time.Time) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.checkout",
		trace.WithAttributes(
			attribute.String("user.id", userID.String()),
			attribute.String("book.id", bookID.String()),
		),
	)
	defer span.End()

	loan := &Loan{}
	err := retrySerializable(ctx, func(ctx context.Context) error {
		tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback()

		var userExists bool
		err = tx.GetContext(ctx, &userExists,
			`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID)
		if err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if !userExists {
			return fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}

		var available bool
		err = tx.GetContext(ctx, &available,
			`SELECT available FROM books WHERE id = $1 FOR UPDATE`, bookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: book %s", ErrNotFound, bookID)
			}
			return fmt.Errorf("read availability: %w", err)
		}
		if !available {
			span.SetAttributes(attribute.Bool("checkout.lost_race", true))
			return ErrBookUnavailable
		}

		err = tx.GetContext(ctx, loan, `
			INSERT INTO loans (id, user_id, book_id, issued_on)
			VALUES ($1, $2, $3, $4)
			RETURNING id, user_id, book_id, issued_on, returned_on, created_at
		`, uuid.New(), userID, bookID, issuedOn)
		if err != nil {
			// The partial unique index on open loans turns a lost race
			// into a constraint violation.
			if isUniqueViolation(err) {
				return ErrBookUnavailable
			}
			return fmt.Errorf("insert loan: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE books SET available = FALSE, updated_at = NOW() WHERE id = $1`, bookID)
		if err != nil {
			return fmt.Errorf("flip availability: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit checkout: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}

// Return closes a loan. The second call for the same loan fails with
// ErrAlreadyReturned and changes nothing; setting returned_on and flipping
// the book back to available commit together.
func (s *service) Return(ctx context.Context, loanID uuid.UUID, returnedOn time.Time) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.return",
		trace.WithAttributes(attribute.String("loan.id", loanID.String())),
	)
	defer span.End()

	loan := &Loan{}
	err := retrySerializable(ctx, func(ctx context.Context) error {
		tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback()

		err = tx.GetContext(ctx, loan, `
			SELECT id, user_id, book_id, issued_on, returned_on, created_at
			FROM loans
			WHERE id = $1
			FOR UPDATE
		`, loanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: loan %s", ErrNotFound, loanID)
			}
			return fmt.Errorf("read loan: %w", err)
		}
		if !loan.Open() {
			return ErrAlreadyReturned
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE loans SET returned_on = $1 WHERE id = $2`, returnedOn, loanID)
		if err != nil {
			return fmt.Errorf("close loan: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE books SET available = TRUE, updated_at = NOW() WHERE id = $1`, loan.BookID)
		if err != nil {
			return fmt.Errorf("flip availability: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit return: %w", err)
		}

		loan.ReturnedOn = &returnedOn
		return nil
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}

// HasOpenLoanForUser reports whether the user currently holds an open loan.
// The membership service consults it before deleting a user.
func (s *service) HasOpenLoanForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.hasOpenLoan(ctx, "user_id", userID)
}

// HasOpenLoanForBook reports whether the book is currently checked out.
// The catalog service consults it before deleting a book.
func (s *service) HasOpenLoanForBook(ctx context.Context, bookID uuid.UUID) (bool, error) {
	return s.hasOpenLoan(ctx, "book_id", bookID)
}

func (s *service) hasOpenLoan(ctx context.Context, column string, id uuid.UUID) (bool, error) {
	query, args, err := dialect.From("loans").
		Select(goqu.L("1")).
		Where(goqu.Ex{column: id, "returned_on": nil}).
		Limit(1).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build open-loan query: %w", err)
	}

	var one int
	err = s.db.GetContext(ctx, &one, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query open loans: %w", err)
	}
	return true, nil
}

// List returns all loans joined with borrower name and book title, most
// recently issued first.
func (s *service) List(ctx context.Context) ([]*Record, error) {
	query, args, err := dialect.From(goqu.T("loans").As("l")).
		Join(goqu.T("users").As("u"), goqu.On(goqu.Ex{"l.user_id": goqu.I("u.id")})).
		Join(goqu.T("books").As("b"), goqu.On(goqu.Ex{"l.book_id": goqu.I("b.id")})).
		Select(
			goqu.I("l.id"),
			goqu.I("l.user_id"),
			goqu.I("u.name").As("user_name"),
			goqu.I("l.book_id"),
			goqu.I("b.title").As("book_title"),
			goqu.I("l.issued_on"),
			goqu.I("l.returned_on"),
		).
		Order(goqu.I("l.issued_on").Desc(), goqu.I("l.created_at").Desc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	records := []*Record{}
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return records, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
