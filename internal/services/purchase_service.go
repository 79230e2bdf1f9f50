package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studio-api/internal/models"
	"studio-api/pkg/logging"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPurchaseLimit = 50
	maxPurchaseLimit     = 500
	revenueBatchSize     = 500
)

// PurchaseInput is the data needed to open a pending purchase
type PurchaseInput struct {
	UserID         string
	PackageID      string
	Amount         decimal.Decimal
	Credits        int64
	PaymentMethod  string
	PaymentDetails map[string]interface{}
}

func (in PurchaseInput) validate() error {
	switch {
	case strings.TrimSpace(in.UserID) == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	case strings.TrimSpace(in.PackageID) == "":
		return fmt.Errorf("%w: package id is required", ErrInvalidInput)
	case strings.TrimSpace(in.PaymentMethod) == "":
		return fmt.Errorf("%w: payment method is required", ErrInvalidInput)
	case in.Credits <= 0:
		return fmt.Errorf("%w: credits must be positive", ErrInvalidInput)
	case in.Amount.IsNegative():
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	return nil
}

// PackageRevenue is one row of the per-package revenue breakdown
type PackageRevenue struct {
	Count   int64           `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

// RevenueStats aggregates all completed purchases
type RevenueStats struct {
	TotalRevenue       decimal.Decimal           `json:"total_revenue"`
	TotalCreditsIssued int64                     `json:"total_credits_issued"`
	TotalPurchases     int64                     `json:"total_purchases"`
	RevenueByPackage   map[string]PackageRevenue `json:"revenue_by_package"`
}

// CreatePurchase records a pending purchase and returns its id. No payment
// gateway is contacted here.
func (s *LedgerService) CreatePurchase(ctx context.Context, in PurchaseInput) (uint, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}

	purchase := models.Purchase{
		UserID:        strings.TrimSpace(in.UserID),
		PackageID:     strings.TrimSpace(in.PackageID),
		Amount:        in.Amount.Round(2),
		Credits:       in.Credits,
		Status:        models.PurchasePending,
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
	}
	if len(in.PaymentDetails) > 0 {
		purchase.PaymentDetails = datatypes.JSONMap(in.PaymentDetails)
	}

	if err := s.db.WithContext(ctx).Create(&purchase).Error; err != nil {
		return 0, fmt.Errorf("failed to create purchase: %w", err)
	}

	logging.Infof("Purchase created - id: %d, user_id: %s, package: %s, credits: %d",
		purchase.ID, purchase.UserID, purchase.PackageID, purchase.Credits)
	return purchase.ID, nil
}

// CompletePurchase marks a purchase completed and credits its owner. A second
// completion is rejected with ErrPurchaseCompleted and credits nothing. It is
// reachable only from the admin surface; buyers settle through the signed
// payment callback.
func (s *LedgerService) CompletePurchase(ctx context.Context, purchaseID uint, transactionID string) (*models.Purchase, error) {
	return s.completePurchase(ctx, completion{
		PurchaseID:    purchaseID,
		TransactionID: transactionID,
	})
}

// AddCreditsInternal is the payment processor path: it credits userID with
// credits and marks the purchase completed, under the same guard as CompletePurchase.
func (s *LedgerService) AddCreditsInternal(ctx context.Context, userID string, credits int64, purchaseID uint, transactionID string) (*models.Purchase, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if credits <= 0 {
		return nil, fmt.Errorf("%w: credits must be positive", ErrInvalidInput)
	}
	return s.completePurchase(ctx, completion{
		PurchaseID:    purchaseID,
		TransactionID: transactionID,
		OwnerID:       userID,
		Credits:       credits,
	})
}

type completion struct {
	PurchaseID    uint
	TransactionID string
	OwnerID       string // if set, the purchase must belong to this user
	Credits       int64  // if set, overrides the purchase's credit quantity
}

func (s *LedgerService) completePurchase(ctx context.Context, c completion) (*models.Purchase, error) {
	var (
		purchase models.Purchase
		credited int64
	)
	now := s.now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&purchase, c.PurchaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPurchaseNotFound
			}
			return err
		}
		if c.OwnerID != "" && purchase.UserID != c.OwnerID {
			return ErrPurchaseNotFound
		}
		switch purchase.Status {
		case models.PurchaseCompleted:
			return ErrPurchaseCompleted
		case models.PurchaseRefunded:
			return ErrPurchaseNotPending
		}

		var txnID *string
		if t := strings.TrimSpace(c.TransactionID); t != "" {
			txnID = &t
		}
		credited = purchase.Credits
		if c.Credits > 0 {
			credited = c.Credits
		}

		// Conditional write: only one completion can flip the status.
		res := tx.Model(&models.Purchase{}).
			Where("id = ? AND status <> ?", purchase.ID, models.PurchaseCompleted).
			Updates(map[string]interface{}{
				"status":         models.PurchaseCompleted,
				"credits":        credited,
				"transaction_id": txnID,
				"completed_at":   now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete purchase: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrPurchaseCompleted
		}

		purchase.Status = models.PurchaseCompleted
		purchase.Credits = credited
		purchase.TransactionID = txnID
		purchase.CompletedAt = &now

		return upsertCredits(tx, creditGrant{UserID: purchase.UserID, Credits: credited}, now)
	})
	if err != nil {
		return nil, err
	}

	logging.Infof("Purchase completed - id: %d, user_id: %s, credits: %d", purchase.ID, purchase.UserID, credited)
	s.notify(LedgerEvent{
		Event:      EventPurchaseCompleted,
		UserID:     purchase.UserID,
		PurchaseID: purchase.ID,
		PackageID:  purchase.PackageID,
		Credits:    credited,
		Status:     purchase.Status,
	})
	return &purchase, nil
}

// FailPurchase moves a pending purchase to failed
func (s *LedgerService) FailPurchase(ctx context.Context, purchaseID uint, reason string) error {
	res := s.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ? AND status = ?", purchaseID, models.PurchasePending).
		Update("status", models.PurchaseFailed)
	if res.Error != nil {
		return fmt.Errorf("failed to mark purchase failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Purchase{}).Where("id = ?", purchaseID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrPurchaseNotFound
		}
		return ErrPurchaseNotPending
	}

	logging.Infof("Purchase failed - id: %d, reason: %s", purchaseID, reason)
	return nil
}

// RefundPurchase moves a completed purchase to refunded and takes back its
// credits. The balance never drops below zero.
func (s *LedgerService) RefundPurchase(ctx context.Context, purchaseID uint) (*models.Purchase, error) {
	var purchase models.Purchase
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&purchase, purchaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPurchaseNotFound
			}
			return err
		}

		res := tx.Model(&models.Purchase{}).
			Where("id = ? AND status = ?", purchase.ID, models.PurchaseCompleted).
			Update("status", models.PurchaseRefunded)
		if res.Error != nil {
			return fmt.Errorf("failed to refund purchase: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrPurchaseNotRefundable
		}
		purchase.Status = models.PurchaseRefunded

		return tx.Model(&models.CreditBalance{}).
			Where("user_id = ?", purchase.UserID).
			Update("credits", gorm.Expr("CASE WHEN credits > ? THEN credits - ? ELSE 0 END", purchase.Credits, purchase.Credits)).Error
	})
	if err != nil {
		return nil, err
	}

	logging.Infof("Purchase refunded - id: %d, user_id: %s, credits: %d", purchase.ID, purchase.UserID, purchase.Credits)
	s.notify(LedgerEvent{
		Event:      EventPurchaseRefunded,
		UserID:     purchase.UserID,
		PurchaseID: purchase.ID,
		PackageID:  purchase.PackageID,
		Credits:    purchase.Credits,
		Status:     purchase.Status,
	})
	return &purchase, nil
}

// GetUserPurchases returns the user's purchases, newest first
func (s *LedgerService) GetUserPurchases(ctx context.Context, userID string, limit int) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(clampLimit(limit)).
		Find(&purchases).Error
	return purchases, err
}

// GetAllPurchases returns purchases across all users, newest first
func (s *LedgerService) GetAllPurchases(ctx context.Context, limit int) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(clampLimit(limit)).
		Find(&purchases).Error
	return purchases, err
}

// GetRevenueStats scans completed purchases in batches and aggregates them
func (s *LedgerService) GetRevenueStats(ctx context.Context) (*RevenueStats, error) {
	stats := &RevenueStats{
		TotalRevenue:     decimal.Zero,
		RevenueByPackage: make(map[string]PackageRevenue),
	}

	var batch []models.Purchase
	res := s.db.WithContext(ctx).
		Where("status = ?", models.PurchaseCompleted).
		FindInBatches(&batch, revenueBatchSize, func(tx *gorm.DB, _ int) error {
			for _, p := range batch {
				stats.TotalRevenue = stats.TotalRevenue.Add(p.Amount)
				stats.TotalCreditsIssued += p.Credits
				stats.TotalPurchases++

				pkg := stats.RevenueByPackage[p.PackageID]
				pkg.Count++
				pkg.Revenue = pkg.Revenue.Add(p.Amount)
				stats.RevenueByPackage[p.PackageID] = pkg
			}
			return nil
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", res.Error)
	}
	return stats, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPurchaseLimit
	}
	if limit > maxPurchaseLimit {
		return maxPurchaseLimit
	}
	return limit
}
