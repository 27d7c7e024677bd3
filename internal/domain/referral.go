// Package domain contains core business types and interfaces.
//
// This file defines the referral ledger types: one code per user, one
// redemption per redeeming account, ever.
package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// ReferralBonusBasic is the basic credit bonus each party receives on a
	// successful redemption.
	ReferralBonusBasic = 2

	// ReferralBonusAdvanced is the advanced credit bonus each party receives.
	ReferralBonusAdvanced = 1
)

// ReferralCode is a user's shareable referral code.
//
// Invariants: at most one code per owner, and codes are unique across all
// users. Generation is lazy: the row is created on first request.
type ReferralCode struct {
	OwnerUserID uuid.UUID
	Code        string
	CreatedAt   time.Time
}

// ReferralRedemption records that an account redeemed a code.
//
// A given redeeming user appears at most once across all redemptions: the
// one-time-ever constraint belongs to the redeemer, not the code. A code may
// legitimately be redeemed by many distinct users.
type ReferralRedemption struct {
	Code            string
	RedeemingUserID uuid.UUID
	RedeemedAt      time.Time
}

// RedemptionResult is returned on a successful redemption, carrying the
// redeemer's fresh balance for UI refresh.
type RedemptionResult struct {
	Code        string
	OwnerUserID uuid.UUID
	Balance     Balance
}
