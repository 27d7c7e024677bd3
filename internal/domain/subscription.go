// Package domain contains core business types and interfaces.
//
// This file defines the entitlement record and the closed credit category
// type used by the credit gate.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// CreditCategory identifies which counter a gated action draws from.
//
// The set is closed: basic AI suggestions, advanced analysis, and saving a
// new argument document. Anything else is a programming error, and switches
// over the type handle every member explicitly.
type CreditCategory string

const (
	CreditBasic       CreditCategory = "basic"
	CreditAdvanced    CreditCategory = "advanced"
	CreditNewDocument CreditCategory = "new_document"
)

// Valid checks if the credit category is a known member.
func (c CreditCategory) Valid() bool {
	switch c {
	case CreditBasic, CreditAdvanced, CreditNewDocument:
		return true
	default:
		return false
	}
}

// CreditKind is the persisted counter a decrement targets.
// new_document consumption is tracked through saved_argument_count instead,
// so only basic and advanced map to kinds.
type CreditKind string

const (
	CreditKindBasic    CreditKind = "basic"
	CreditKindAdvanced CreditKind = "advanced"
)

// Subscription is the per-user entitlement record.
//
// It is the single mutable shared resource in the core: the credit gate
// decrements it, the referral ledger increments it, and billing confirmation
// resets it to the tier allotment. Nothing else writes entitlement fields,
// and balances are never cached across requests.
type Subscription struct {
	UserID                   uuid.UUID
	Tier                     SubscriptionTier
	BasicCreditsRemaining    int
	AdvancedCreditsRemaining int
	SavedArgumentCount       int
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// IsUnlimited returns true if the subscription bypasses credit checks entirely.
func (s *Subscription) IsUnlimited() bool {
	return s.Tier == TierEnterprise
}

// Remaining returns the counter for a consumable credit kind.
func (s *Subscription) Remaining(kind CreditKind) int {
	if kind == CreditKindAdvanced {
		return s.AdvancedCreditsRemaining
	}
	return s.BasicCreditsRemaining
}

// FeatureFlags are the tier-derived capabilities surfaced to the client.
type FeatureFlags struct {
	Export           bool `json:"export"`
	PremiumTemplates bool `json:"premiumTemplates"`
}

// Flags resolves the subscription's feature flags from the tier catalog.
func (s *Subscription) Flags() FeatureFlags {
	t := GetTier(s.Tier)
	return FeatureFlags{
		Export:           t.ExportEnabled,
		PremiumTemplates: t.PremiumTemplates,
	}
}

// Balance is the snapshot of spendable counters returned by every mutating
// entitlement operation, so callers thread fresh values to the UI instead of
// holding a global subscription snapshot.
type Balance struct {
	Basic     int  `json:"basicCredits"`
	Advanced  int  `json:"advancedCredits"`
	Saved     int  `json:"savedArguments"`
	Unlimited bool `json:"unlimited"`
}

// BalanceOf extracts a balance snapshot from a subscription.
func BalanceOf(s *Subscription) Balance {
	return Balance{
		Basic:     s.BasicCreditsRemaining,
		Advanced:  s.AdvancedCreditsRemaining,
		Saved:     s.SavedArgumentCount,
		Unlimited: s.IsUnlimited(),
	}
}
