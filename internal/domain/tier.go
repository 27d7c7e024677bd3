// Package domain contains core business types and interfaces.
//
// This file defines the subscription tier catalog: the static mapping from
// tier identifiers to monthly credit allotments, feature flags, and pricing.
package domain

// SubscriptionTier represents the pricing tier of a subscription.
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierBasic      SubscriptionTier = "basic"
	TierPremium    SubscriptionTier = "premium"
	TierEnterprise SubscriptionTier = "enterprise"
)

// Valid checks if the tier is a known catalog entry.
func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierFree, TierBasic, TierPremium, TierEnterprise:
		return true
	default:
		return false
	}
}

// Tier describes one catalog row: the monthly allotments and capabilities
// a subscription at that tier receives.
type Tier struct {
	ID                SubscriptionTier
	Name              string
	MonthlyBasic      int  // Basic AI credits granted per billing cycle
	MonthlyAdvanced   int  // Advanced analysis credits granted per billing cycle
	MaxSavedArguments int  // Cap on saved argument documents
	ExportEnabled     bool
	PremiumTemplates  bool
	Unlimited         bool // Enterprise: no metering at all
	PriceCents        int  // Monthly price; 0 for free and enterprise (custom)
}

// Catalog maps tier identifiers to their entitlements.
// A subscription's tier always resolves to one of these rows; unknown values
// fall back to free.
var Catalog = map[SubscriptionTier]Tier{
	TierFree: {
		ID:                TierFree,
		Name:              "Free",
		MonthlyBasic:      0,
		MonthlyAdvanced:   0,
		MaxSavedArguments: 3,
	},
	TierBasic: {
		ID:                TierBasic,
		Name:              "Basic",
		MonthlyBasic:      50,
		MonthlyAdvanced:   10,
		MaxSavedArguments: 25,
		ExportEnabled:     true,
		PriceCents:        900,
	},
	TierPremium: {
		ID:                TierPremium,
		Name:              "Premium",
		MonthlyBasic:      200,
		MonthlyAdvanced:   50,
		MaxSavedArguments: 100,
		ExportEnabled:     true,
		PremiumTemplates:  true,
		PriceCents:        2900,
	},
	TierEnterprise: {
		ID:               TierEnterprise,
		Name:             "Enterprise",
		ExportEnabled:    true,
		PremiumTemplates: true,
		Unlimited:        true,
	},
}

// GetTier returns the catalog row for a tier, defaulting to free for unknown tiers.
func GetTier(tier SubscriptionTier) Tier {
	if t, ok := Catalog[tier]; ok {
		return t
	}
	return Catalog[TierFree]
}
