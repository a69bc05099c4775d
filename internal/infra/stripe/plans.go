package stripe

import (
	"context"
	"fmt"

	stripeapi "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/price"
	"gorm.io/gorm"

	"content-gate/internal/domain/plans"
)

// SyncResult counts what a plan-catalog sync changed.
type SyncResult struct {
	Synced  int `json:"synced"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// SyncPlans mirrors active recurring EUR prices of productID into the plans
// table. The price (or product) metadata key "tier" decides which plans
// unlock premium content.
func SyncPlans(ctx context.Context, db *gorm.DB, secretKey, productID string) (SyncResult, error) {
	var res SyncResult
	if secretKey == "" {
		return res, fmt.Errorf("stripe: secret key not configured")
	}
	stripeapi.Key = secretKey

	params := &stripeapi.PriceListParams{}
	params.Context = ctx
	params.Active = stripeapi.Bool(true)
	params.Type = stripeapi.String("recurring")
	params.AddExpand("data.product")

	it := price.List(params)
	for it.Next() {
		candidate, ok := PlanFromPrice(it.Price(), productID)
		if !ok {
			res.Skipped++
			continue
		}

		var existing plans.Plan
		err := db.WithContext(ctx).Where("stripe_price_id = ?", candidate.StripePriceID).First(&existing).Error
		if err != nil {
			if err := db.WithContext(ctx).Create(&candidate).Error; err != nil {
				return res, fmt.Errorf("stripe: create plan %s: %w", candidate.StripePriceID, err)
			}
			res.Created++
		} else {
			existing.Name = candidate.Name
			existing.PriceEUR = candidate.PriceEUR
			existing.Interval = candidate.Interval
			if candidate.Tier != "" {
				existing.Tier = candidate.Tier
			}
			if err := db.WithContext(ctx).Save(&existing).Error; err != nil {
				return res, fmt.Errorf("stripe: update plan %s: %w", candidate.StripePriceID, err)
			}
			res.Updated++
		}
		res.Synced++
	}
	if err := it.Err(); err != nil {
		return res, fmt.Errorf("stripe: list prices: %w", err)
	}
	return res, nil
}

// PlanFromPrice converts a Stripe price into a plan row, or reports false when
// the price does not belong in the catalog.
func PlanFromPrice(p *stripeapi.Price, productID string) (plans.Plan, bool) {
	if p == nil || !p.Active || p.Recurring == nil || p.Product == nil || !p.Product.Active {
		return plans.Plan{}, false
	}
	if productID != "" && p.Product.ID != productID {
		return plans.Plan{}, false
	}
	if string(p.Currency) != "eur" {
		return plans.Plan{}, false
	}
	if p.Metadata["visible"] == "false" {
		return plans.Plan{}, false
	}

	name := p.Product.Name
	if v := p.Metadata["plan"]; v != "" {
		name = v
	}
	tier := p.Metadata["tier"]
	if tier == "" {
		tier = p.Product.Metadata["tier"]
	}

	return plans.Plan{
		Name:          name,
		PriceEUR:      float64(p.UnitAmount) / 100.0,
		StripePriceID: p.ID,
		Interval:      string(p.Recurring.Interval),
		Tier:          tier,
	}, true
}
