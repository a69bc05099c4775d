package users

import "time"

type MeResponse struct {
	User    UserDTO    `json:"user"`
	Billing BillingDTO `json:"billing"`
	Access  AccessDTO  `json:"access"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	Plan         *PlanDTO         `json:"plan"`
	Subscription *SubscriptionDTO `json:"subscription"`
	Trial        *TrialDTO        `json:"trial"`
}

type PlanDTO struct {
	ID       uint    `json:"id"`
	Key      string  `json:"key"`
	Interval string  `json:"interval"`
	PriceEUR float64 `json:"price_eur"`
	Tier     string  `json:"tier"`
}

type SubscriptionDTO struct {
	Status           string     `json:"status"`
	StartsAt         *time.Time `json:"starts_at"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
}

type TrialDTO struct {
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
	DaysLeft *int       `json:"days_left"`
}

/* ---------- ACCESS ---------- */

type AccessDTO struct {
	State          string   `json:"state"` // trial|full|limited|locked
	Roles          []string `json:"roles"`
	PreviewSeconds int      `json:"preview_seconds"`
}
