// Package service contains the business logic layer.
//
// This file implements argument document operations. Saving a NEW document
// is gated through the credit service's new-document category; updates and
// reads are not gated.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jtmorrow/arguably/internal/domain"
)

// MaxTitleLength caps argument titles.
const MaxTitleLength = 200

// =============================================================================
// Store Interface
// =============================================================================

// ArgumentStore is the persistence contract for argument documents.
type ArgumentStore interface {
	CreateArgument(ctx context.Context, a *domain.Argument) (*domain.Argument, error)
	GetArgumentByID(ctx context.Context, id uuid.UUID) (*domain.Argument, error)
	ListArgumentsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Argument, error)
	UpdateArgument(ctx context.Context, a *domain.Argument) (*domain.Argument, error)
	DeleteArgument(ctx context.Context, id, ownerID uuid.UUID) (bool, error)
	DecrementSavedArguments(ctx context.Context, userID uuid.UUID) error
}

// =============================================================================
// Interface Definition
// =============================================================================

// ArgumentService defines operations on argument documents.
type ArgumentService interface {
	// Create saves a new argument. This is the credit-gated path: it fails
	// with EDOCLIMIT when the owner is at the tier's saved document cap.
	// The returned balance reflects the consumed slot.
	Create(ctx context.Context, user *domain.User, params domain.CreateArgumentParams) (*domain.Argument, domain.Balance, error)

	// Get retrieves one of the user's arguments.
	Get(ctx context.Context, user *domain.User, id uuid.UUID) (*domain.Argument, error)

	// List returns the user's arguments, newest first.
	List(ctx context.Context, user *domain.User) ([]*domain.Argument, error)

	// Update replaces an existing argument's title and blocks. Not gated.
	Update(ctx context.Context, user *domain.User, params domain.UpdateArgumentParams) (*domain.Argument, error)

	// Delete removes an argument and releases its saved-document slot.
	Delete(ctx context.Context, user *domain.User, id uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

type argumentService struct {
	store   ArgumentStore
	credits CreditService
	logger  *slog.Logger
}

// NewArgumentService creates a new ArgumentService.
func NewArgumentService(store ArgumentStore, credits CreditService, logger *slog.Logger) ArgumentService {
	return &argumentService{
		store:   store,
		credits: credits,
		logger:  logger,
	}
}

func validateArgument(op, title string, blocks []domain.Block) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Invalid(op, "Title is required")
	}
	if len(title) > MaxTitleLength {
		return domain.Invalid(op, "Title is too long")
	}
	for _, b := range blocks {
		if !b.Type.Valid() {
			return domain.Invalid(op, "Unknown block type")
		}
	}
	return nil
}

// Create consumes a saved-document slot, then persists the document. If the
// insert fails after the slot was consumed, the slot is released so a
// storage error does not silently shrink the user's allowance.
func (s *argumentService) Create(ctx context.Context, user *domain.User, params domain.CreateArgumentParams) (*domain.Argument, domain.Balance, error) {
	const op = "argument.create"

	if err := validateArgument(op, params.Title, params.Blocks); err != nil {
		return nil, domain.Balance{}, err
	}

	sub, err := s.credits.Consume(ctx, user, domain.CreditNewDocument)
	if err != nil {
		return nil, domain.Balance{}, err
	}

	arg := &domain.Argument{
		ID:      uuid.New(),
		OwnerID: user.ID,
		Title:   strings.TrimSpace(params.Title),
		Blocks:  normalizeBlocks(params.Blocks),
	}

	created, err := s.store.CreateArgument(ctx, arg)
	if err != nil {
		if derr := s.store.DecrementSavedArguments(ctx, user.ID); derr != nil {
			s.logger.Error("Failed to release saved-document slot", "user_id", user.ID, "error", derr)
		}
		return nil, domain.Balance{}, domain.StoreUnavailable(err, op)
	}

	return created, domain.BalanceOf(sub), nil
}

// Get retrieves an argument, refusing access to other users' documents.
func (s *argumentService) Get(ctx context.Context, user *domain.User, id uuid.UUID) (*domain.Argument, error) {
	const op = "argument.get"

	arg, err := s.store.GetArgumentByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound(op, "argument", id.String())
	}
	if err != nil {
		return nil, domain.StoreUnavailable(err, op)
	}
	if arg.OwnerID != user.ID {
		return nil, domain.NotFound(op, "argument", id.String())
	}
	return arg, nil
}

// List returns the user's arguments.
func (s *argumentService) List(ctx context.Context, user *domain.User) ([]*domain.Argument, error) {
	const op = "argument.list"

	args, err := s.store.ListArgumentsByOwner(ctx, user.ID)
	if err != nil {
		return nil, domain.StoreUnavailable(err, op)
	}
	return args, nil
}

// Update replaces an existing document. Not credit-gated.
func (s *argumentService) Update(ctx context.Context, user *domain.User, params domain.UpdateArgumentParams) (*domain.Argument, error) {
	const op = "argument.update"

	if err := validateArgument(op, params.Title, params.Blocks); err != nil {
		return nil, err
	}

	arg := &domain.Argument{
		ID:      params.ID,
		OwnerID: user.ID,
		Title:   strings.TrimSpace(params.Title),
		Blocks:  normalizeBlocks(params.Blocks),
	}

	updated, err := s.store.UpdateArgument(ctx, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound(op, "argument", params.ID.String())
	}
	if err != nil {
		return nil, domain.StoreUnavailable(err, op)
	}
	return updated, nil
}

// Delete removes a document and releases its slot.
func (s *argumentService) Delete(ctx context.Context, user *domain.User, id uuid.UUID) error {
	const op = "argument.delete"

	deleted, err := s.store.DeleteArgument(ctx, id, user.ID)
	if err != nil {
		return domain.StoreUnavailable(err, op)
	}
	if !deleted {
		return domain.NotFound(op, "argument", id.String())
	}

	if err := s.store.DecrementSavedArguments(ctx, user.ID); err != nil {
		s.logger.Error("Failed to release saved-document slot on delete", "user_id", user.ID, "error", err)
	}
	return nil
}

// normalizeBlocks assigns IDs to new blocks and rewrites positions to match
// the submitted order.
func normalizeBlocks(blocks []domain.Block) []domain.Block {
	out := make([]domain.Block, len(blocks))
	for i, b := range blocks {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		b.Position = i
		out[i] = b
	}
	return out
}
