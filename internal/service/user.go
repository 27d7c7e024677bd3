// Package service contains the business logic layer.
//
// This file implements user accounts and session authentication.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jtmorrow/arguably/internal/domain"
	"github.com/jtmorrow/arguably/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	// Cost 12 gives roughly 250ms per hash on current hardware, slow enough
	// for attackers and tolerable for login.
	BcryptCost = 12

	// SessionTokenBytes is the number of random bytes for session tokens.
	// 32 bytes = 256 bits of entropy; hex-encoded to 64 characters.
	SessionTokenBytes = 32

	// SessionDuration is how long a session remains valid.
	SessionDuration = 7 * 24 * time.Hour

	// MinPasswordLength is the minimum password length.
	MinPasswordLength = 8

	// MaxPasswordLength prevents DoS via bcrypt on very long passwords.
	// bcrypt truncates at 72 bytes anyway; capping earlier keeps it honest.
	MaxPasswordLength = 72
)

// =============================================================================
// Store Interface
// =============================================================================

// UserStore is the persistence contract for accounts and sessions.
type UserStore interface {
	CreateUser(ctx context.Context, params repository.CreateUserParams) (*domain.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error)
	UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, customerID string) error
	CreateSession(ctx context.Context, s *domain.Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// =============================================================================
// Interface Definition
// =============================================================================

// UserService defines the interface for user-related operations.
type UserService interface {
	// Register creates a new user account.
	// Returns domain.ECONFLICT if email already exists.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error)

	// Login authenticates a user and creates a new session.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)

	// Logout invalidates a session by its raw token. Idempotent.
	Logout(ctx context.Context, token string) error

	// GetByID retrieves a user by their ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetBySessionToken validates a session token and returns its user.
	// Returns domain.EUNAUTHORIZED if the token is invalid or expired.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// GetByStripeCustomerID retrieves a user by their Stripe customer ID.
	GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error)

	// UpdateStripeCustomer saves the Stripe customer ID for a user.
	UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, customerID string) error

	// DeleteExpiredSessions removes all expired sessions. Called by the
	// cleanup job.
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// =============================================================================
// Implementation
// =============================================================================

type userService struct {
	store       UserStore
	adminEmails map[string]bool
	logger      *slog.Logger
}

// NewUserService creates a new UserService. Accounts registering with an
// email on the admin allowlist are created as admins, which exempts them
// from credit metering.
func NewUserService(store UserStore, adminEmails []string, logger *slog.Logger) UserService {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return &userService{
		store:       store,
		adminEmails: admins,
		logger:      logger,
	}
}

// Register creates a new user account.
func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "user.register"

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Name = strings.TrimSpace(params.Name)

	if err := validateEmail(params.Email); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, "Invalid email address")
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, "Invalid password")
	}

	// Check availability first; hash anyway on conflict so response timing
	// does not reveal which emails are registered.
	_, err := s.store.GetUserByEmail(ctx, params.Email)
	if err == nil {
		_, _ = bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
		return nil, domain.Conflict(op, "Email already registered")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.StoreUnavailable(err, op)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	user, err := s.store.CreateUser(ctx, repository.CreateUserParams{
		ID:           uuid.New(),
		Email:        params.Email,
		PasswordHash: string(passwordHash),
		Name:         params.Name,
		IsAdmin:      s.adminEmails[params.Email],
	})
	if err != nil {
		if repository.IsUniqueViolation(err, "") {
			return nil, domain.Conflict(op, "Email already registered")
		}
		return nil, domain.StoreUnavailable(err, op)
	}

	s.logger.Info("User registered", "user_id", user.ID)
	return user, nil
}

// Login authenticates a user and creates a session.
func (s *userService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	const op = "user.login"

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		// Burn a hash so unknown emails take as long as wrong passwords.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
		return nil, domain.Unauthorized(op, "Invalid email or password")
	}
	if err != nil {
		return nil, domain.StoreUnavailable(err, op)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, "Invalid email or password")
	}

	token, tokenHash, err := newSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create session")
	}

	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(SessionDuration),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, domain.StoreUnavailable(err, op)
	}

	return &domain.LoginResult{User: user, Token: token}, nil
}

// Logout invalidates a session. Unknown tokens are not an error.
func (s *userService) Logout(ctx context.Context, token string) error {
	const op = "user.logout"

	if err := s.store.DeleteSessionByTokenHash(ctx, hashToken(token)); err != nil {
		return domain.StoreUnavailable(err, op)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "user.get_by_id"

	user, err := s.store.GetUserByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound(op, "user", id.String())
	}
	if err != nil {
		return nil, domain.StoreUnavailable(err, op)
	}
	return user, nil
}

// GetBySessionToken validates a token and returns the session's user.
func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "user.get_by_session"

	if token == "" {
		return nil, domain.Unauthorized(op, "Authentication required")
	}

	session, err := s.store.GetSessionByTokenHash(ctx, hashToken(token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Unauthorized(op, "Invalid or expired session")
	}
	if err != nil {
		return nil, domain.StoreUnavailable(err, op)
	}
	if session.IsExpired() {
		return nil, domain.Unauthorized(op, "Invalid or expired session")
	}

	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, domain.Unauthorized(op, "Invalid or expired session")
	}
	return user, nil
}

// GetByStripeCustomerID retrieves a user by their Stripe customer ID.
func (s *userService) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	const op = "user.get_by_stripe_customer"

	user, err := s.store.GetUserByStripeCustomerID(ctx, customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound(op, "user", customerID)
	}
	if err != nil {
		return nil, domain.StoreUnavailable(err, op)
	}
	return user, nil
}

// UpdateStripeCustomer saves the Stripe customer ID for a user.
func (s *userService) UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	const op = "user.update_stripe_customer"

	if err := s.store.UpdateStripeCustomer(ctx, userID, customerID); err != nil {
		return domain.StoreUnavailable(err, op)
	}
	return nil
}

// DeleteExpiredSessions removes expired sessions.
func (s *userService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	const op = "user.delete_expired_sessions"

	n, err := s.store.DeleteExpiredSessions(ctx, time.Now())
	if err != nil {
		return 0, domain.StoreUnavailable(err, op)
	}
	return n, nil
}

// =============================================================================
// Helpers
// =============================================================================

func newSessionToken() (token, tokenHash string, err error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(buf)
	return token, hashToken(token), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return errors.New("email format is invalid")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return errors.New("password is too long")
	}
	return nil
}
