package access

import (
	"time"

	"content-gate/internal/domain/plans"
	"content-gate/internal/domain/users"
	"content-gate/internal/infra/stripe"
)

// ComputeEffectiveAccessState interprets a user's trial and subscription
// fields: trial|full|limited|locked.
func ComputeEffectiveAccessState(now time.Time, u users.User) AccessState {
	if u.TrialEndAt != nil && now.Before(*u.TrialEndAt) {
		return AccessTrial
	}

	if u.SubscriptionId == nil || *u.SubscriptionId == "" {
		return AccessLocked
	}

	switch stripe.NormalizeStripeStatus(u.StripeSubscriptionStatus) {
	case "active", "trialing":
		if plans.IsPremium(u.Plan) {
			return AccessFull
		}
		return AccessLimited

	case "past_due":
		return AccessLimited

	case "canceled":
		// access continues until the paid-through date
		if u.CurrentPeriodEnd != nil && now.Before(*u.CurrentPeriodEnd) {
			if plans.IsPremium(u.Plan) {
				return AccessFull
			}
			return AccessLimited
		}
		return AccessLocked

	default:
		return AccessLocked
	}
}

// RolesFor derives the engine roles of a user. Staff roles come from the
// account role column; premium_user follows a full or trial subscription.
func RolesFor(now time.Time, u users.User) []RoleName {
	roles := make([]RoleName, 0, 2)
	switch u.Role {
	case users.RoleSuperAdmin:
		roles = append(roles, RoleSuperAdmin, RoleAdmin)
	case users.RoleAdmin:
		roles = append(roles, RoleAdmin)
	}

	switch ComputeEffectiveAccessState(now, u) {
	case AccessFull, AccessTrial:
		roles = append(roles, RolePremiumUser)
	default:
		roles = append(roles, RoleFreeUser)
	}
	return roles
}
