package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jtmorrow/arguably/internal/domain"
	"github.com/jtmorrow/arguably/internal/repository"
)

// fakeUserStore is an in-memory account and session store.
type fakeUserStore struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*domain.User
	byEmail   map[string]*domain.User
	sessions  map[string]*domain.Session
	customers map[string]uuid.UUID
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byID:      make(map[uuid.UUID]*domain.User),
		byEmail:   make(map[string]*domain.User),
		sessions:  make(map[string]*domain.Session),
		customers: make(map[string]uuid.UUID),
	}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, params repository.CreateUserParams) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[params.Email]; ok {
		return nil, &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	}
	u := &domain.User{
		ID:           params.ID,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Name:         params.Name,
		IsAdmin:      params.IsAdmin,
		CreatedAt:    time.Now(),
	}
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
	return u, nil
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.customers[customerID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *f.byID[id]
	return &cp, nil
}

func (f *fakeUserStore) UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[userID]; !ok {
		return sql.ErrNoRows
	}
	f.customers[customerID] = userID
	return nil
}

func (f *fakeUserStore) CreateSession(ctx context.Context, s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.sessions[s.TokenHash] = &cp
	return nil
}

func (f *fakeUserStore) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[tokenHash]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeUserStore) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, tokenHash)
	return nil
}

func (f *fakeUserStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for hash, s := range f.sessions {
		if now.After(s.ExpiresAt) {
			delete(f.sessions, hash)
			n++
		}
	}
	return n, nil
}

func TestUserService_Register(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, []string{"admin@arguably.app"}, discardLogger())

	user, err := svc.Register(context.Background(), domain.RegisterParams{
		Email:    "  Alex@Example.com ",
		Password: "correct horse battery",
		Name:     "Alex",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Email != "alex@example.com" {
		t.Errorf("Email = %q, want normalized %q", user.Email, "alex@example.com")
	}
	if user.IsAdmin {
		t.Error("IsAdmin = true for a non-allowlisted email")
	}
	if user.PasswordHash == "correct horse battery" {
		t.Error("password stored in plain text")
	}

	// Same email again conflicts, regardless of case.
	_, err = svc.Register(context.Background(), domain.RegisterParams{
		Email:    "ALEX@example.com",
		Password: "another password",
	})
	if got := domain.ErrorCode(err); got != domain.ECONFLICT {
		t.Errorf("duplicate Register() error code = %q, want %q", got, domain.ECONFLICT)
	}
}

func TestUserService_Register_AdminAllowlist(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, []string{" Admin@Arguably.app "}, discardLogger())

	user, err := svc.Register(context.Background(), domain.RegisterParams{
		Email:    "admin@arguably.app",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !user.IsAdmin {
		t.Error("IsAdmin = false for an allowlisted email")
	}
}

func TestUserService_Register_Validation(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, nil, discardLogger())

	tests := []struct {
		name   string
		params domain.RegisterParams
	}{
		{"empty email", domain.RegisterParams{Email: "", Password: "long enough"}},
		{"no at sign", domain.RegisterParams{Email: "nope", Password: "long enough"}},
		{"no domain dot", domain.RegisterParams{Email: "a@b", Password: "long enough"}},
		{"short password", domain.RegisterParams{Email: "a@b.com", Password: "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.params)
			if got := domain.ErrorCode(err); got != domain.EINVALID {
				t.Errorf("Register() error code = %q, want %q", got, domain.EINVALID)
			}
		})
	}
}

func TestUserService_LoginAndSessions(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, nil, discardLogger())

	registered, err := svc.Register(context.Background(), domain.RegisterParams{
		Email:    "alex@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "alex@example.com", "wrong password")
		if got := domain.ErrorCode(err); got != domain.EUNAUTHORIZED {
			t.Errorf("Login() error code = %q, want %q", got, domain.EUNAUTHORIZED)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "nobody@example.com", "correct horse battery")
		if got := domain.ErrorCode(err); got != domain.EUNAUTHORIZED {
			t.Errorf("Login() error code = %q, want %q", got, domain.EUNAUTHORIZED)
		}
	})

	res, err := svc.Login(context.Background(), "alex@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.Token == "" {
		t.Fatal("Login() returned an empty token")
	}

	// The raw token is never stored.
	if _, ok := store.sessions[res.Token]; ok {
		t.Error("session keyed by raw token; tokens must be stored hashed")
	}

	user, err := svc.GetBySessionToken(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("GetBySessionToken() error = %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("session resolved to user %v, want %v", user.ID, registered.ID)
	}

	if err := svc.Logout(context.Background(), res.Token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	_, err = svc.GetBySessionToken(context.Background(), res.Token)
	if got := domain.ErrorCode(err); got != domain.EUNAUTHORIZED {
		t.Errorf("GetBySessionToken() after logout error code = %q, want %q", got, domain.EUNAUTHORIZED)
	}

	// Logging out again is not an error.
	if err := svc.Logout(context.Background(), res.Token); err != nil {
		t.Errorf("repeated Logout() error = %v", err)
	}
}

func TestUserService_ExpiredSession(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, nil, discardLogger())

	user, err := svc.Register(context.Background(), domain.RegisterParams{
		Email:    "alex@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	token, tokenHash, err := newSessionToken()
	if err != nil {
		t.Fatalf("newSessionToken() error = %v", err)
	}
	store.sessions[tokenHash] = &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	_, err = svc.GetBySessionToken(context.Background(), token)
	if got := domain.ErrorCode(err); got != domain.EUNAUTHORIZED {
		t.Errorf("GetBySessionToken() error code = %q, want %q", got, domain.EUNAUTHORIZED)
	}

	n, err := svc.DeleteExpiredSessions(context.Background())
	if err != nil {
		t.Fatalf("DeleteExpiredSessions() error = %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteExpiredSessions() = %d, want 1", n)
	}
}
