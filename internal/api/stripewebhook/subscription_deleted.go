package stripewebhooks

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v75"

	"content-gate/internal/domain/users"
)

// handleSubscriptionDeleted marks the subscription ended. Premium access
// lapses once the paid-through date passes.
func (h *Handler) handleSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) (uint, error) {
	if sub.ID == "" {
		return 0, nil
	}
	db := h.db.WithContext(ctx)

	user, err := h.findUser(db, sub)
	if err != nil || user.ID == 0 {
		return 0, err
	}

	periodEnd := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	updates := map[string]interface{}{
		"stripe_subscription_status": string(sub.Status),
		"subscription_end":           periodEnd,
		"current_period_end":         periodEnd,
	}
	if err := db.Model(&users.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return 0, err
	}
	return user.ID, nil
}
