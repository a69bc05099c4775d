package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"content-gate/internal/domain/plans"
	"content-gate/internal/domain/users"
)

func ptr[T any](v T) *T { return &v }

func TestComputeEffectiveAccessState(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	premium := &plans.Plan{Tier: plans.TierPremium}
	basic := &plans.Plan{Tier: plans.TierBasic}

	cases := []struct {
		name string
		user users.User
		want AccessState
	}{
		{"active trial", users.User{TrialEndAt: ptr(now.Add(time.Hour))}, AccessTrial},
		{"no subscription", users.User{TrialEndAt: ptr(now.Add(-time.Hour))}, AccessLocked},
		{"active premium", users.User{SubscriptionId: ptr("sub_1"), StripeSubscriptionStatus: ptr("active"), Plan: premium}, AccessFull},
		{"active basic", users.User{SubscriptionId: ptr("sub_1"), StripeSubscriptionStatus: ptr("active"), Plan: basic}, AccessLimited},
		{"unpaid", users.User{SubscriptionId: ptr("sub_1"), StripeSubscriptionStatus: ptr("unpaid"), Plan: premium}, AccessLimited},
		{"canceled paid through", users.User{SubscriptionId: ptr("sub_1"), StripeSubscriptionStatus: ptr("canceled"), Plan: premium, CurrentPeriodEnd: ptr(now.Add(24 * time.Hour))}, AccessFull},
		{"canceled expired", users.User{SubscriptionId: ptr("sub_1"), StripeSubscriptionStatus: ptr("canceled"), Plan: premium, CurrentPeriodEnd: ptr(now.Add(-time.Hour))}, AccessLocked},
		{"unknown status", users.User{SubscriptionId: ptr("sub_1"), StripeSubscriptionStatus: ptr("paused")}, AccessLocked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeEffectiveAccessState(now, tc.user))
		})
	}
}

func TestRolesFor(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	premium := users.User{SubscriptionId: ptr("sub_1"), StripeSubscriptionStatus: ptr("active"), Plan: &plans.Plan{Tier: plans.TierPremium}}

	assert.Equal(t, []RoleName{RoleFreeUser}, RolesFor(now, users.User{Role: users.RoleUser}))
	assert.Equal(t, []RoleName{RolePremiumUser}, RolesFor(now, premium))
	assert.Equal(t, []RoleName{RoleAdmin, RoleFreeUser}, RolesFor(now, users.User{Role: users.RoleAdmin}))
	assert.Equal(t, []RoleName{RoleSuperAdmin, RoleAdmin, RoleFreeUser}, RolesFor(now, users.User{Role: users.RoleSuperAdmin}))
}
