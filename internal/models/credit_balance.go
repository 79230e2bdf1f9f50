package models

import (
	"time"
)

const (
	TierFree       = "free"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

// CreditBalance is created lazily on the first credit-affecting event.
// Non-negativity is checked by SpendCredits only; grants never go below zero.
type CreditBalance struct {
	BaseModel

	UserID             string     `json:"user_id" gorm:"size:36;uniqueIndex;not null"`
	Credits            int64      `json:"credits" gorm:"not null;default:0"`
	Tier               string     `json:"tier" gorm:"size:20;not null;default:'free'"`
	SubscriptionStatus string     `json:"subscription_status" gorm:"size:20"`
	RenewsAt           *time.Time `json:"renews_at"`
	TrialEndsAt        *time.Time `json:"trial_ends_at"`
}

func (CreditBalance) TableName() string {
	return "credit_balances"
}
