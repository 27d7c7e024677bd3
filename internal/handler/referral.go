// Package handler contains the HTTP handlers for the Arguably API.
//
// This file implements the referral endpoints: fetching the caller's
// shareable code and redeeming someone else's.
//
// Routes (all require auth):
//   - GET  /api/referral        -> HandleGetCode
//   - POST /api/referral/redeem -> HandleRedeem
package handler

import (
	"log/slog"
	"net/http"

	"github.com/jtmorrow/arguably/internal/middleware"
	"github.com/jtmorrow/arguably/internal/service"
)

// ReferralHandler handles referral endpoints.
type ReferralHandler struct {
	referrals service.ReferralService
	logger    *slog.Logger
}

// NewReferralHandler creates a new ReferralHandler.
func NewReferralHandler(referrals service.ReferralService, logger *slog.Logger) *ReferralHandler {
	return &ReferralHandler{
		referrals: referrals,
		logger:    logger,
	}
}

// HandleGetCode returns the caller's referral code, creating it on first
// request, along with whether the caller has already redeemed one.
func (h *ReferralHandler) HandleGetCode(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	code, err := h.referrals.GetOrCreateCode(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	redeemed, err := h.referrals.HasRedeemed(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"code":     code,
		"redeemed": redeemed,
	})
}

// HandleRedeem applies a referral code for the caller. On success both
// parties receive the bonus and the caller's fresh balance is returned.
func (h *ReferralHandler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.Code == "" {
		badRequest(w, r, h.logger, "Referral code is required")
		return
	}

	result, err := h.referrals.Redeem(r.Context(), req.Code, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"code":    result.Code,
		"balance": result.Balance,
	})
}
