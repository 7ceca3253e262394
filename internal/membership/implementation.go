// internal/membership/implementation.go
package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/time/rate"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrHasOpenLoans       = errors.New("user has open loans")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrRateLimited        = errors.New("rate limit exceeded")
)

const pgUniqueViolation = "23505"

// service implements the Service interface.
type service struct {
	db          *sqlx.DB
	loans       LoanChecker
	rateLimiter *rate.Limiter
}

// NewService creates a new membership service instance.
func NewService(db *sqlx.DB, loans LoanChecker) Service {
	return &service{
		db:          db,
		loans:       loans,
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 10),
	}
}

// Register creates a new user with a freshly salted Argon2id password hash.
func (s *service) Register(ctx context.Context, name, email, password string) (*User, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}
	if len(password) < 6 {
		return nil, ErrPasswordTooShort
	}

	passwordHash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{}
	query := `
		INSERT INTO users (id, name, email, password_hash, salt)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, email, created_at, updated_at
	`
	err = s.db.GetContext(ctx, user, query, uuid.New(), name, email, passwordHash, salt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return user, nil
}

// Authenticate verifies a user's credentials. Unknown email and wrong
// password both return ErrInvalidCredentials so callers cannot probe which
// addresses are registered.
func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	var row struct {
		User
		PasswordHash string `db:"password_hash"`
		Salt         string `db:"salt"`
	}
	query := `
		SELECT id, name, email, password_hash, salt, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	err := s.db.GetContext(ctx, &row, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	ok, err := verifyPassword(password, row.Salt, row.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	user := row.User
	return &user, nil
}

// Get retrieves a user by ID.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	user := &User{}
	query := `
		SELECT id, name, email, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	err := s.db.GetContext(ctx, user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// List returns all users ordered by name.
func (s *service) List(ctx context.Context) ([]*User, error) {
	users := []*User{}
	query := `
		SELECT id, name, email, created_at, updated_at
		FROM users
		ORDER BY name
	`
	if err := s.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Update edits a user's profile. An empty newPassword preserves the stored
// hash and salt; otherwise the password is re-hashed with a fresh salt.
func (s *service) Update(ctx context.Context, id uuid.UUID, name, email, newPassword string) (*User, error) {
	user := &User{}
	var err error

	if newPassword == "" {
		query := `
			UPDATE users
			SET name = $1, email = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING id, name, email, created_at, updated_at
		`
		err = s.db.GetContext(ctx, user, query, name, email, id)
	} else {
		if len(newPassword) < 6 {
			return nil, ErrPasswordTooShort
		}
		passwordHash, salt, hashErr := hashPassword(newPassword)
		if hashErr != nil {
			return nil, fmt.Errorf("failed to hash password: %w", hashErr)
		}
		query := `
			UPDATE users
			SET name = $1, email = $2, password_hash = $3, salt = $4, updated_at = NOW()
			WHERE id = $5
			RETURNING id, name, email, created_at, updated_at
		`
		err = s.db.GetContext(ctx, user, query, name, email, passwordHash, salt, id)
	}

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// Delete removes a user. The loan ledger is consulted first; the DELETE
// itself re-checks for open loans so a checkout racing the delete cannot
// orphan an active loan.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	hasOpen, err := s.loans.HasOpenLoanForUser(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check open loans: %w", err)
	}
	if hasOpen {
		return ErrHasOpenLoans
	}

	query := `
		DELETE FROM users
		WHERE id = $1
		AND NOT EXISTS (
			SELECT 1 FROM loans WHERE user_id = $1 AND returned_on IS NULL
		)
	`
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		// Either the user is gone or a loan was opened since the check.
		hasOpen, err = s.loans.HasOpenLoanForUser(ctx, id)
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

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
