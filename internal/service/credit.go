// Package service contains the business logic layer.
//
// Services orchestrate interactions between the store, external APIs, and
// domain logic. They are responsible for input validation, business rule
// enforcement, and error translation (store errors -> domain errors).
//
// This file implements the credit gate: the decision function that
// determines whether a credit-gated action is permitted and performs the
// consumption.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jtmorrow/arguably/internal/domain"
	"github.com/jtmorrow/arguably/internal/metrics"
)

// =============================================================================
// Store Interface
// =============================================================================

// EntitlementStore is the persistence contract the credit gate mutates.
// The store is the only source of truth for balances: every check re-reads
// it, and guarded mutations are evaluated at the row, never against an
// earlier read.
type EntitlementStore interface {
	// GetSubscription returns a user's entitlement record, creating the
	// implicit free-tier default on first lookup.
	GetSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)

	// DecrementCredit atomically decrements one credit of the given kind.
	// Returns the updated record and true, or nil and false when the
	// balance was already zero at the moment of decrement.
	DecrementCredit(ctx context.Context, userID uuid.UUID, kind domain.CreditKind) (*domain.Subscription, bool, error)

	// IncrementSavedArguments atomically increments the saved document
	// count while it is below max. Returns false without mutating at max.
	IncrementSavedArguments(ctx context.Context, userID uuid.UUID, max int) (*domain.Subscription, bool, error)
}

// =============================================================================
// Interface Definition
// =============================================================================

// CreditService is the credit gate.
//
// CheckEligible is a fast-path UX hint; Consume is the sole source of truth
// for balance enforcement. Callers must never treat a cached eligibility
// result as permission to mutate.
type CreditService interface {
	// CheckEligible reports whether the user could currently perform an
	// action in the category. Returns nil if eligible, or an error carrying
	// the specific reason (ECREDITS, EDOCLIMIT).
	CheckEligible(ctx context.Context, user *domain.User, category domain.CreditCategory) error

	// Consume performs the guarded consumption for the category and returns
	// the post-mutation entitlement snapshot. It fails with ECREDITS (or
	// EDOCLIMIT for new documents) when the balance is already exhausted at
	// the moment of decrement, leaving it unchanged.
	//
	// For unlimited identities (enterprise tier, admins) Consume is a no-op
	// that returns the current snapshot.
	Consume(ctx context.Context, user *domain.User, category domain.CreditCategory) (*domain.Subscription, error)

	// Balance returns the user's current entitlement snapshot for UI refresh.
	Balance(ctx context.Context, user *domain.User) (*domain.Subscription, error)
}

// =============================================================================
// Implementation
// =============================================================================

type creditService struct {
	store  EntitlementStore
	logger *slog.Logger
}

// NewCreditService creates a new CreditService.
func NewCreditService(store EntitlementStore, logger *slog.Logger) CreditService {
	return &creditService{
		store:  store,
		logger: logger,
	}
}

// unlimited reports whether the identity bypasses metering entirely.
func unlimited(user *domain.User, sub *domain.Subscription) bool {
	return user.IsAdmin || sub.IsUnlimited()
}

// CheckEligible reads a fresh store snapshot and checks the relevant counter.
func (s *creditService) CheckEligible(ctx context.Context, user *domain.User, category domain.CreditCategory) error {
	const op = "credit.check_eligible"

	if !category.Valid() {
		return domain.Invalid(op, "Unknown credit category")
	}

	sub, err := s.store.GetSubscription(ctx, user.ID)
	if err != nil {
		return domain.StoreUnavailable(err, op)
	}

	if unlimited(user, sub) {
		return nil
	}

	switch category {
	case domain.CreditBasic:
		if sub.BasicCreditsRemaining <= 0 {
			return domain.InsufficientCredits(op, category)
		}
	case domain.CreditAdvanced:
		if sub.AdvancedCreditsRemaining <= 0 {
			return domain.InsufficientCredits(op, category)
		}
	case domain.CreditNewDocument:
		max := domain.GetTier(sub.Tier).MaxSavedArguments
		if sub.SavedArgumentCount >= max {
			return domain.Errorf(domain.EDOCLIMIT, op,
				"Saved argument limit reached (%d). Upgrade your plan to save more.", max)
		}
	}

	return nil
}

// Consume performs the guarded decrement (or guarded increment, for new
// documents). The guard is evaluated inside the store mutation itself, so
// two concurrent requests racing over the last credit cannot both succeed.
func (s *creditService) Consume(ctx context.Context, user *domain.User, category domain.CreditCategory) (*domain.Subscription, error) {
	const op = "credit.consume"

	if !category.Valid() {
		return nil, domain.Invalid(op, "Unknown credit category")
	}

	// GetSubscription also guarantees the row exists before the guarded
	// UPDATE, covering a user's very first gated action.
	sub, err := s.store.GetSubscription(ctx, user.ID)
	if err != nil {
		return nil, domain.StoreUnavailable(err, op)
	}

	if unlimited(user, sub) {
		return sub, nil
	}

	switch category {
	case domain.CreditBasic, domain.CreditAdvanced:
		kind := domain.CreditKindBasic
		if category == domain.CreditAdvanced {
			kind = domain.CreditKindAdvanced
		}

		updated, ok, err := s.store.DecrementCredit(ctx, user.ID, kind)
		if err != nil {
			return nil, domain.StoreUnavailable(err, op)
		}
		if !ok {
			s.logger.Info("Credit consume refused",
				"user_id", user.ID,
				"category", category,
			)
			return nil, domain.InsufficientCredits(op, category)
		}
		metrics.CreditsConsumed.WithLabelValues(string(category)).Inc()
		return updated, nil

	case domain.CreditNewDocument:
		max := domain.GetTier(sub.Tier).MaxSavedArguments
		updated, ok, err := s.store.IncrementSavedArguments(ctx, user.ID, max)
		if err != nil {
			return nil, domain.StoreUnavailable(err, op)
		}
		if !ok {
			s.logger.Info("Saved argument limit reached",
				"user_id", user.ID,
				"tier", sub.Tier,
				"limit", max,
			)
			return nil, domain.Errorf(domain.EDOCLIMIT, op,
				"Saved argument limit reached (%d). Upgrade your plan to save more.", max)
		}
		metrics.CreditsConsumed.WithLabelValues(string(category)).Inc()
		return updated, nil
	}

	return nil, domain.Invalid(op, "Unknown credit category")
}

// Balance returns the current entitlement snapshot.
func (s *creditService) Balance(ctx context.Context, user *domain.User) (*domain.Subscription, error) {
	const op = "credit.balance"

	sub, err := s.store.GetSubscription(ctx, user.ID)
	if err != nil {
		return nil, domain.StoreUnavailable(err, op)
	}
	return sub, nil
}
