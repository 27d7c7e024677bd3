package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jtmorrow/arguably/internal/domain"
)

const userColumns = `id, email, password_hash, name, COALESCE(stripe_customer_id, ''), is_admin, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.StripeCustomerID, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUserParams contains the fields for a new user row.
type CreateUserParams struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	IsAdmin      bool
}

// CreateUser inserts a user. A duplicate email surfaces as a unique violation.
func (q *Queries) CreateUser(ctx context.Context, params CreateUserParams) (*domain.User, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, password_hash, name, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		params.ID, params.Email, params.PasswordHash, params.Name, params.IsAdmin)
	return scanUser(row)
}

// GetUserByID retrieves a user by primary key.
func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUserByStripeCustomerID retrieves the user a Stripe customer belongs to.
func (q *Queries) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE stripe_customer_id = $1`, customerID)
	return scanUser(row)
}

// UpdateStripeCustomer saves the Stripe customer ID for a user.
func (q *Queries) UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET stripe_customer_id = $2, updated_at = now() WHERE id = $1`,
		userID, customerID)
	return err
}

// CreateSession inserts a session row for a hashed token.
func (q *Queries) CreateSession(ctx context.Context, s *domain.Session) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)`,
		s.ID, s.UserID, s.TokenHash, s.ExpiresAt)
	return err
}

// GetSessionByTokenHash retrieves a session by its hashed token.
func (q *Queries) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var s domain.Session
	err := q.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM sessions WHERE token_hash = $1`, tokenHash).
		Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSessionByTokenHash removes a session. Deleting a missing session is not an error.
func (q *Queries) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return err
}

// DeleteSessionsByUserID invalidates every session a user holds.
func (q *Queries) DeleteSessionsByUserID(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

// DeleteExpiredSessions removes sessions past their expiry, returning the count.
func (q *Queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
