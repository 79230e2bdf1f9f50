package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	PurchasePending   = "pending"
	PurchaseCompleted = "completed"
	PurchaseFailed    = "failed"
	PurchaseRefunded  = "refunded"
)

// Purchase records a single buy attempt of a credit package.
type Purchase struct {
	BaseModel

	UserID         string            `json:"user_id" gorm:"size:36;not null;index"`
	PackageID      string            `json:"package_id" gorm:"size:64;not null;index"`
	Amount         decimal.Decimal   `json:"amount" gorm:"type:numeric(12,2);not null"`
	Credits        int64             `json:"credits" gorm:"not null"`
	Status         string            `json:"status" gorm:"size:20;not null;index"` // pending, completed, failed, refunded
	PaymentMethod  string            `json:"payment_method" gorm:"size:32;not null"`
	PaymentDetails datatypes.JSONMap `json:"payment_details,omitempty"`
	TransactionID  *string           `json:"transaction_id,omitempty" gorm:"size:128;index"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
}

func (Purchase) TableName() string {
	return "purchases"
}
