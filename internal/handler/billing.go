// Package handler contains the HTTP handlers for the Arguably API.
//
// This file implements the billing endpoints: starting a Stripe Checkout
// session for a paid tier and opening the Customer Portal. Tier changes are
// never applied here; they land through the webhook once Stripe confirms
// payment.
//
// Routes (all require auth):
//   - POST /api/billing/checkout -> HandleCheckout
//   - POST /api/billing/portal   -> HandlePortal
package handler

import (
	"log/slog"
	"net/http"

	"github.com/jtmorrow/arguably/internal/billing"
	"github.com/jtmorrow/arguably/internal/domain"
	"github.com/jtmorrow/arguably/internal/middleware"
	"github.com/jtmorrow/arguably/internal/service"
)

// BillingHandler handles billing endpoints.
type BillingHandler struct {
	billing billing.Service
	users   service.UserService
	prices  billing.PriceConfig
	baseURL string
	logger  *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
// billingService may be nil when Stripe is not configured; the endpoints
// then answer 503.
func NewBillingHandler(billingService billing.Service, users service.UserService, prices billing.PriceConfig, baseURL string, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		billing: billingService,
		users:   users,
		prices:  prices,
		baseURL: baseURL,
		logger:  logger,
	}
}

// priceFor resolves a tier and interval to a configured Stripe price ID.
func (h *BillingHandler) priceFor(tier domain.SubscriptionTier, interval string) string {
	yearly := interval == "yearly"
	switch tier {
	case domain.TierBasic:
		if yearly {
			return h.prices.BasicYearlyPriceID
		}
		return h.prices.BasicMonthlyPriceID
	case domain.TierPremium:
		if yearly {
			return h.prices.PremiumYearlyPriceID
		}
		return h.prices.PremiumMonthlyPriceID
	}
	return ""
}

// ensureCustomer returns the user's Stripe customer ID, creating the
// customer on first use.
func (h *BillingHandler) ensureCustomer(r *http.Request, user *domain.User) (string, error) {
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}

	customerID, err := h.billing.CreateCustomer(user.Email, user.Name)
	if err != nil {
		return "", domain.Internal(err, "billing.ensure_customer", "Failed to create billing customer")
	}
	if err := h.users.UpdateStripeCustomer(r.Context(), user.ID, customerID); err != nil {
		return "", err
	}
	return customerID, nil
}

// HandleCheckout starts a Stripe Checkout session for a paid tier.
func (h *BillingHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	if h.billing == nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EUNAVAILABLE, "billing.checkout", "Billing is not configured"))
		return
	}

	var req struct {
		Tier     string `json:"tier"`
		Interval string `json:"interval,omitempty"` // "monthly" (default) or "yearly"
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	priceID := h.priceFor(domain.SubscriptionTier(req.Tier), req.Interval)
	if priceID == "" {
		badRequest(w, r, h.logger, "Unknown plan")
		return
	}

	customerID, err := h.ensureCustomer(r, user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	url, err := h.billing.CreateCheckoutSession(
		customerID,
		priceID,
		h.baseURL+"/settings/billing?success=1",
		h.baseURL+"/settings/billing?canceled=1",
	)
	if err != nil {
		h.logger.Error("checkout session failed", "error", err, "user_id", user.ID)
		ErrorResponse(w, r, h.logger, domain.Internal(err, "billing.checkout", "Failed to start checkout"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// HandlePortal opens the Stripe Customer Portal for the current user.
func (h *BillingHandler) HandlePortal(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	if h.billing == nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EUNAVAILABLE, "billing.portal", "Billing is not configured"))
		return
	}
	if user.StripeCustomerID == "" {
		badRequest(w, r, h.logger, "No billing account yet")
		return
	}

	url, err := h.billing.CreatePortalSession(user.StripeCustomerID, h.baseURL+"/settings/billing")
	if err != nil {
		h.logger.Error("portal session failed", "error", err, "user_id", user.ID)
		ErrorResponse(w, r, h.logger, domain.Internal(err, "billing.portal", "Failed to open billing portal"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
