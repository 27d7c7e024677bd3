// Package handler contains the HTTP handlers for the Arguably API.
//
// This file implements the Stripe webhook handler. Confirmed billing events
// are the only path that changes a user's tier: activation resets the credit
// counters to the tier allotment, cancellation drops the user back to free.
//
// Route:
//   - POST /webhooks/stripe -> HandleStripeWebhook
//
// This route is PUBLIC (no auth middleware) because Stripe calls it directly.
// Authentication is via the Stripe webhook signature verification.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/jtmorrow/arguably/internal/billing"
	"github.com/jtmorrow/arguably/internal/domain"
	"github.com/jtmorrow/arguably/internal/service"
	"github.com/stripe/stripe-go/v79"
)

// WebhookHandler handles incoming webhook events from Stripe.
type WebhookHandler struct {
	billing       billing.Service
	users         service.UserService
	subscriptions service.SubscriptionService
	logger        *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
// billingService may be nil when Stripe is not configured.
func NewWebhookHandler(billingService billing.Service, users service.UserService, subscriptions service.SubscriptionService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		billing:       billingService,
		users:         users,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// HandleStripeWebhook processes incoming Stripe webhook events.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	// Read body (limit to 64KB)
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	event, err := h.billing.VerifyWebhookSignature(body, signature)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("stripe webhook received", "type", event.Type, "id", event.ID)

	switch event.Type {
	case "customer.subscription.created":
		h.processSubscriptionEvent(event, "created")
	case "customer.subscription.updated":
		h.processSubscriptionEvent(event, "updated")
	case "customer.subscription.deleted":
		h.handleSubscriptionDeleted(event)
	case "invoice.payment_succeeded":
		h.handlePaymentSucceeded(event)
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

// processSubscriptionEvent applies a created or updated subscription: the
// price on the subscription decides the tier, and activation resets the
// credit counters to that tier's monthly allotment.
func (h *WebhookHandler) processSubscriptionEvent(event stripe.Event, action string) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription event", "error", err, "action", action)
		return
	}

	if sub.Customer == nil {
		h.logger.Warn("subscription event missing customer", "subscription_id", sub.ID, "action", action)
		return
	}

	user, err := h.users.GetByStripeCustomerID(webhookCtx(), sub.Customer.ID)
	if err != nil {
		h.logger.Warn("user not found for subscription event",
			"customer_id", sub.Customer.ID, "subscription_id", sub.ID, "action", action)
		return
	}

	// Anything not active or trialing does not grant entitlements.
	if sub.Status != stripe.SubscriptionStatusActive && sub.Status != stripe.SubscriptionStatusTrialing {
		h.logger.Info("subscription not active, skipping tier change",
			"user_id", user.ID, "status", sub.Status, "action", action)
		return
	}

	tier := domain.TierFree
	if len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		tier = h.billing.TierForPriceID(sub.Items.Data[0].Price.ID)
	}
	if tier == domain.TierFree {
		h.logger.Warn("subscription price maps to no paid tier",
			"user_id", user.ID, "subscription_id", sub.ID, "action", action)
		return
	}

	if _, err := h.subscriptions.ActivateTier(webhookCtx(), user.ID, tier); err != nil {
		h.logger.Error("failed to activate tier", "error", err, "user_id", user.ID, "action", action)
		return
	}

	h.logger.Info("subscription event processed",
		"user_id", user.ID, "action", action, "tier", tier)
}

// handleSubscriptionDeleted returns the user to the free tier.
func (h *WebhookHandler) handleSubscriptionDeleted(event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription deleted event", "error", err)
		return
	}

	if sub.Customer == nil {
		h.logger.Warn("subscription deleted event missing customer", "subscription_id", sub.ID)
		return
	}

	user, err := h.users.GetByStripeCustomerID(webhookCtx(), sub.Customer.ID)
	if err != nil {
		h.logger.Warn("user not found for subscription deletion", "customer_id", sub.Customer.ID)
		return
	}

	if _, err := h.subscriptions.Deactivate(webhookCtx(), user.ID); err != nil {
		h.logger.Error("failed to deactivate subscription", "error", err, "user_id", user.ID)
		return
	}

	h.logger.Info("subscription deleted", "user_id", user.ID, "subscription_id", sub.ID)
}

// handlePaymentSucceeded refills the counters on a renewal invoice. The
// initial invoice is covered by the subscription.created activation; billing
// reason distinguishes the two.
func (h *WebhookHandler) handlePaymentSucceeded(event stripe.Event) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("failed to parse invoice payment succeeded event", "error", err)
		return
	}

	if invoice.Customer == nil {
		return
	}
	if invoice.BillingReason != stripe.InvoiceBillingReasonSubscriptionCycle {
		return
	}

	user, err := h.users.GetByStripeCustomerID(webhookCtx(), invoice.Customer.ID)
	if err != nil {
		h.logger.Debug("user not found for payment succeeded", "customer_id", invoice.Customer.ID)
		return
	}

	if _, err := h.subscriptions.RefillCredits(webhookCtx(), user.ID); err != nil {
		h.logger.Error("failed to refill credits on renewal", "error", err, "user_id", user.ID)
		return
	}

	h.logger.Info("credits refilled on renewal", "user_id", user.ID)
}

// webhookCtx returns a background context for webhook processing. Webhooks
// are async events and don't carry a user session.
func webhookCtx() context.Context {
	return context.Background()
}
