package stripewebhooks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v75"
	"gorm.io/gorm"

	"content-gate/internal/domain/plans"
	"content-gate/internal/domain/users"
)

// handleSubscriptionUpdated records the plan, status and paid-through date of
// a subscription. It returns the id of the user it changed, or 0 when the
// event concerns no known user or plan; those are acknowledged, not retried.
func (h *Handler) handleSubscriptionUpdated(ctx context.Context, sub *stripe.Subscription) (uint, error) {
	if sub.ID == "" || sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return 0, fmt.Errorf("subscription missing id/items/price")
	}
	db := h.db.WithContext(ctx)

	user, err := h.findUser(db, sub)
	if err != nil || user.ID == 0 {
		return 0, err
	}

	var plan plans.Plan
	if err := db.Where("stripe_price_id = ?", sub.Items.Data[0].Price.ID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}

	periodEnd := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	updates := map[string]interface{}{
		"plan_id":                    plan.ID,
		"subscription_end":           periodEnd,
		"current_period_end":         periodEnd,
		"stripe_subscription_status": string(sub.Status),
		"subscription_id":            sub.ID,
	}
	if err := db.Model(&users.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return 0, err
	}
	return user.ID, nil
}

// findUser prefers the user_id set in subscription metadata at checkout and
// falls back to the stored subscription id.
func (h *Handler) findUser(db *gorm.DB, sub *stripe.Subscription) (users.User, error) {
	var user users.User
	if id := userIDFromMetadata(sub.Metadata); id != 0 {
		err := db.Where("id = ?", id).First(&user).Error
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return users.User{}, err
		}
	}
	err := db.Where("subscription_id = ?", sub.ID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return users.User{}, nil
	}
	return user, err
}

func userIDFromMetadata(md map[string]string) uint {
	if md == nil {
		return 0
	}
	s := md["user_id"]
	if s == "" {
		return 0
	}
	uid, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(uid)
}
