package plans

import "strings"

const (
	TierNone    = "none"
	TierBasic   = "basic"
	TierPremium = "premium"
)

// PlanTier returns the effective tier for a plan.
// Priority:
// 1. Explicit Tier stored in DB
// 2. Fallback inference by price (plans synced before tiers were tagged)
func PlanTier(p *Plan) string {
	if p == nil {
		return TierNone
	}

	tier := strings.ToLower(strings.TrimSpace(p.Tier))
	switch tier {
	case TierBasic, TierPremium:
		return tier
	}

	return inferTierFromPrice(p.PriceEUR)
}

// IsPremium reports whether the plan unlocks premium content.
func IsPremium(p *Plan) bool {
	return PlanTier(p) == TierPremium
}

func inferTierFromPrice(priceEUR float64) string {
	switch {
	case priceEUR >= 9:
		return TierPremium
	case priceEUR > 0:
		return TierBasic
	default:
		return TierNone
	}
}
