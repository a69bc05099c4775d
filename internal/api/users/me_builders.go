package users

import (
	"time"

	"content-gate/internal/domain/plans"
	"content-gate/internal/domain/users"
	"content-gate/internal/infra/stripe"
)

func BuildPlanDTO(p *plans.Plan) *PlanDTO {
	if p == nil {
		return nil
	}
	return &PlanDTO{
		ID:       p.ID,
		Key:      p.Name,
		Interval: p.Interval,
		PriceEUR: p.PriceEUR,
		Tier:     plans.PlanTier(p),
	}
}

func BuildSubscriptionDTO(u users.User) *SubscriptionDTO {
	if u.SubscriptionId == nil || *u.SubscriptionId == "" {
		return nil
	}
	return &SubscriptionDTO{
		Status:           stripe.NormalizeStripeStatus(u.StripeSubscriptionStatus),
		StartsAt:         u.SubscriptionStart,
		CurrentPeriodEnd: u.CurrentPeriodEnd,
	}
}

func BuildTrialDTO(now time.Time, start, end *time.Time) *TrialDTO {
	if start == nil || end == nil {
		return nil
	}

	d := 0
	if now.Before(*end) {
		d = int(end.Sub(now).Hours() / 24)
	}

	return &TrialDTO{
		StartsAt: start,
		EndsAt:   end,
		DaysLeft: &d,
	}
}
