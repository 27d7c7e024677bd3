// Package jobs contains the background job handlers executed by the worker.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jtmorrow/arguably/internal/domain"
	"github.com/jtmorrow/arguably/internal/repository"
	"github.com/jtmorrow/arguably/internal/service"
	"github.com/jtmorrow/arguably/internal/worker"
)

// RefillCreditsHandler resets every paid metered subscription's credit
// counters to its tier's monthly allotment. Stripe renewal webhooks refill
// subscribers as invoices land; this job is the safety net for missed
// webhooks.
type RefillCreditsHandler struct {
	queries       *repository.Queries
	subscriptions service.SubscriptionService
	logger        *slog.Logger
}

// NewRefillCreditsHandler creates a new handler for the monthly credit refill job.
func NewRefillCreditsHandler(queries *repository.Queries, subscriptions service.SubscriptionService, logger *slog.Logger) *RefillCreditsHandler {
	return &RefillCreditsHandler{
		queries:       queries,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// Type returns the job type identifier.
func (h *RefillCreditsHandler) Type() string {
	return worker.JobTypeRefillCredits
}

// Handle refills every metered subscription. Per-user failures are logged
// and skipped; the job only fails when listing the subscriptions does, so a
// retry never blocks on one broken row.
func (h *RefillCreditsHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.RefillCreditsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	// Enterprise is unmetered and free has a zero allotment, so only the
	// paid metered tiers are refilled.
	userIDs, err := h.queries.ListSubscriptionsByTiers(ctx, []domain.SubscriptionTier{
		domain.TierBasic, domain.TierPremium,
	})
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}

	refilled := 0
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := h.subscriptions.RefillCredits(ctx, userID); err != nil {
			h.logger.Error("Credit refill failed for user", "user_id", userID, "error", err)
			continue
		}
		refilled++
	}

	h.logger.Info("Monthly credit refill complete",
		"subscriptions", len(userIDs),
		"refilled", refilled,
	)
	return nil
}
