// Package service contains the business logic layer.
//
// This file implements the billing-confirmation side of the entitlement
// record: setting a tier and resetting its credit allotments. No core logic
// inspects payment internals; the payment processor is an opaque callback
// that eventually lands here.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jtmorrow/arguably/internal/domain"
)

// =============================================================================
// Store Interface
// =============================================================================

// TierStore is the slice of the entitlement store billing confirmation uses.
type TierStore interface {
	GetSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
	SetSubscriptionTier(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier, basic, advanced int) (*domain.Subscription, error)
}

// =============================================================================
// Interface Definition
// =============================================================================

// SubscriptionService applies confirmed billing events to entitlements.
type SubscriptionService interface {
	// ActivateTier sets the user's tier and resets both credit counters to
	// the tier's monthly allotment. Unknown tiers resolve to free.
	ActivateTier(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) (*domain.Subscription, error)

	// Deactivate returns the user to the free tier with zero credits.
	// Saved documents are kept; only new saves beyond the free cap are
	// blocked afterwards.
	Deactivate(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)

	// RefillCredits resets an active subscriber's counters to the monthly
	// allotment without changing the tier. Used by the monthly refill job.
	RefillCredits(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
}

// =============================================================================
// Implementation
// =============================================================================

type subscriptionService struct {
	store  TierStore
	logger *slog.Logger
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(store TierStore, logger *slog.Logger) SubscriptionService {
	return &subscriptionService{
		store:  store,
		logger: logger,
	}
}

// ActivateTier applies a confirmed tier change.
func (s *subscriptionService) ActivateTier(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) (*domain.Subscription, error) {
	const op = "subscription.activate_tier"

	if !tier.Valid() {
		tier = domain.TierFree
	}
	t := domain.GetTier(tier)

	// Ensure the row exists before the reset.
	if _, err := s.store.GetSubscription(ctx, userID); err != nil {
		return nil, domain.StoreUnavailable(err, op)
	}

	sub, err := s.store.SetSubscriptionTier(ctx, userID, t.ID, t.MonthlyBasic, t.MonthlyAdvanced)
	if err != nil {
		return nil, domain.StoreUnavailable(err, op)
	}

	s.logger.Info("Subscription tier activated",
		"user_id", userID,
		"tier", t.ID,
		"basic_credits", t.MonthlyBasic,
		"advanced_credits", t.MonthlyAdvanced,
	)
	return sub, nil
}

// Deactivate drops the user back to free.
func (s *subscriptionService) Deactivate(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	return s.ActivateTier(ctx, userID, domain.TierFree)
}

// RefillCredits resets the counters for the user's current tier.
func (s *subscriptionService) RefillCredits(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	const op = "subscription.refill_credits"

	sub, err := s.store.GetSubscription(ctx, userID)
	if err != nil {
		return nil, domain.StoreUnavailable(err, op)
	}

	t := domain.GetTier(sub.Tier)
	if t.Unlimited {
		return sub, nil
	}

	updated, err := s.store.SetSubscriptionTier(ctx, userID, sub.Tier, t.MonthlyBasic, t.MonthlyAdvanced)
	if err != nil {
		return nil, domain.StoreUnavailable(err, op)
	}
	return updated, nil
}
