package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Plan is a named subscription tier with a fixed monthly price and credit allotment.
type Plan struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	Credits      int64           `json:"credits"`
	Tier         string          `json:"tier"`
}

var plans = []Plan{
	{ID: "starter", Name: "Starter", MonthlyPrice: decimal.RequireFromString("9.99"), Credits: 500, Tier: TierPro},
	{ID: "creator", Name: "Creator", MonthlyPrice: decimal.RequireFromString("24.99"), Credits: 1500, Tier: TierPro},
	{ID: "pro", Name: "Pro", MonthlyPrice: decimal.RequireFromString("49.99"), Credits: 4000, Tier: TierPro},
	{ID: "enterprise", Name: "Enterprise", MonthlyPrice: decimal.RequireFromString("199.99"), Credits: 12000, Tier: TierEnterprise},
}

// Plans returns the catalog in display order.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// LookupPlan finds a plan by id. Ids are matched case-insensitively.
func LookupPlan(id string) (Plan, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
