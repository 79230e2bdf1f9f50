package models

import (
	"time"
)

const (
	SubscriptionTrialing = "trialing"
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
)

// Subscription holds one user's plan state. Rows are never deleted; status
// transitions instead.
type Subscription struct {
	BaseModel

	UserID string `json:"user_id" gorm:"size:36;uniqueIndex;not null"`
	PlanID string `json:"plan_id" gorm:"size:32;not null"`
	Status string `json:"status" gorm:"size:20;not null;index"` // trialing, active, canceled

	CurrentPeriodStart time.Time  `json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `json:"current_period_end"`
	TrialStart         *time.Time `json:"trial_start"`
	TrialEnd           *time.Time `json:"trial_end"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
