package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studio-api/internal/models"
	"studio-api/pkg/logging"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TrialDuration is the length of every plan trial.
const TrialDuration = 7 * 24 * time.Hour

// EventNotifier receives ledger events after the owning transaction commits.
type EventNotifier interface {
	Notify(event LedgerEvent)
}

// LedgerService owns subscriptions, credit balances and purchases.
type LedgerService struct {
	db       *gorm.DB
	notifier EventNotifier
	now      func() time.Time
}

// NewLedgerService creates a ledger service. notifier may be nil.
func NewLedgerService(db *gorm.DB, notifier EventNotifier) *LedgerService {
	return &LedgerService{
		db:       db,
		notifier: notifier,
		now:      time.Now,
	}
}

// TrialResult is returned by StartSubscriptionTrial
type TrialResult struct {
	Success  bool      `json:"success"`
	PlanID   string    `json:"plan_id"`
	Credits  int64     `json:"credits_granted"`
	TrialEnd time.Time `json:"trial_end"`
}

// StartSubscriptionTrial puts the caller on a 7-day trial of planID and grants
// the plan's credits right away. Repeating it while the subscription is still
// trialing grants the credits again; only an active subscription is rejected.
func (s *LedgerService) StartSubscriptionTrial(ctx context.Context, userID, planID string) (*TrialResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	plan, ok := models.LookupPlan(planID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, planID)
	}

	now := s.now().UTC()
	trialEnd := now.Add(TrialDuration)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := models.Subscription{
			UserID:             userID,
			PlanID:             plan.ID,
			Status:             models.SubscriptionTrialing,
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   trialEnd,
			TrialStart:         &now,
			TrialEnd:           &trialEnd,
			CancelAtPeriodEnd:  false,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"plan_id",
				"status",
				"current_period_start",
				"current_period_end",
				"trial_start",
				"trial_end",
				"cancel_at_period_end",
				"updated_at",
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "subscriptions.status <> ?", Vars: []interface{}{models.SubscriptionActive}},
			}},
		}).Create(&sub)
		if res.Error != nil {
			return fmt.Errorf("upsert subscription: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrSubscriptionActive
		}

		return upsertCredits(tx, creditGrant{
			UserID:      userID,
			Credits:     plan.Credits,
			Tier:        plan.Tier,
			Status:      models.SubscriptionTrialing,
			RenewsAt:    &trialEnd,
			TrialEndsAt: &trialEnd,
			Overwrite:   true,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	logging.Infof("Trial started - user_id: %s, plan: %s, credits: %d, trial_end: %s",
		userID, plan.ID, plan.Credits, trialEnd.Format(time.RFC3339))
	s.notify(LedgerEvent{
		Event:     EventTrialStarted,
		UserID:    userID,
		PlanID:    plan.ID,
		Credits:   plan.Credits,
		Status:    models.SubscriptionTrialing,
		ExpiresAt: &trialEnd,
	})

	return &TrialResult{Success: true, PlanID: plan.ID, Credits: plan.Credits, TrialEnd: trialEnd}, nil
}

// CancelSubscription marks the caller's subscription canceled at period end.
func (s *LedgerService) CancelSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUnauthenticated
	}

	var (
		sub     models.Subscription
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubscriptionNotFound
			}
			return err
		}
		if sub.Status == models.SubscriptionCanceled {
			return nil
		}

		if err := tx.Model(&sub).Updates(map[string]interface{}{
			"status":               models.SubscriptionCanceled,
			"cancel_at_period_end": true,
		}).Error; err != nil {
			return fmt.Errorf("cancel subscription: %w", err)
		}
		sub.Status = models.SubscriptionCanceled
		sub.CancelAtPeriodEnd = true
		changed = true
		return tx.Model(&models.CreditBalance{}).
			Where("user_id = ?", userID).
			Update("subscription_status", models.SubscriptionCanceled).Error
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return &sub, nil
	}

	logging.Infof("Subscription canceled - user_id: %s, plan: %s", userID, sub.PlanID)
	s.notify(LedgerEvent{
		Event:     EventSubscriptionCanceled,
		UserID:    userID,
		PlanID:    sub.PlanID,
		Status:    sub.Status,
		ExpiresAt: &sub.CurrentPeriodEnd,
	})
	return &sub, nil
}

// GetSubscription returns the user's subscription record
func (s *LedgerService) GetSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// GetCreditBalance returns the user's balance. Users without a record get an
// unsaved zero free-tier balance.
func (s *LedgerService) GetCreditBalance(ctx context.Context, userID string) (*models.CreditBalance, error) {
	var balance models.CreditBalance
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.CreditBalance{UserID: userID, Tier: models.TierFree}, nil
	}
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// SpendCredits deducts amount for one generation action and returns the new balance.
func (s *LedgerService) SpendCredits(ctx context.Context, userID string, amount int64, reason string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrUnauthenticated
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	var remaining int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CreditBalance{}).
			Where("user_id = ? AND credits >= ?", userID, amount).
			Update("credits", gorm.Expr("credits - ?", amount))
		if res.Error != nil {
			return fmt.Errorf("spend credits: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientCredits
		}
		return tx.Model(&models.CreditBalance{}).
			Where("user_id = ?", userID).
			Pluck("credits", &remaining).Error
	})
	if err != nil {
		return 0, err
	}

	logging.Infof("Credits spent - user_id: %s, amount: %d, reason: %s, remaining: %d", userID, amount, reason, remaining)
	return remaining, nil
}

// BulkGrantCredits adds credits to every listed user in one transaction and
// returns the number of distinct users credited.
func (s *LedgerService) BulkGrantCredits(ctx context.Context, userIDs []string, credits int64) (int, error) {
	if credits <= 0 {
		return 0, fmt.Errorf("%w: credits must be positive", ErrInvalidInput)
	}

	seen := make(map[string]struct{}, len(userIDs))
	ids := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no user ids", ErrInvalidInput)
	}

	now := s.now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			if err := upsertCredits(tx, creditGrant{UserID: id, Credits: credits}, now); err != nil {
				return fmt.Errorf("grant credits to %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logging.Infof("Bulk credit grant - users: %d, credits: %d", len(ids), credits)
	return len(ids), nil
}

// ListPlans returns the plan catalog
func (s *LedgerService) ListPlans() []models.Plan {
	return models.Plans()
}

func (s *LedgerService) notify(event LedgerEvent) {
	if s.notifier == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	s.notifier.Notify(event)
}

// creditGrant describes one credit balance upsert. Overwrite also replaces
// the tier and subscription fields on an existing record.
type creditGrant struct {
	UserID      string
	Credits     int64
	Tier        string
	Status      string
	RenewsAt    *time.Time
	TrialEndsAt *time.Time
	Overwrite   bool
}

// upsertCredits inserts the balance or adds to it in a single statement.
func upsertCredits(tx *gorm.DB, g creditGrant, now time.Time) error {
	tier := g.Tier
	if tier == "" {
		tier = models.TierFree
	}
	row := models.CreditBalance{
		UserID:             g.UserID,
		Credits:            g.Credits,
		Tier:               tier,
		SubscriptionStatus: g.Status,
		RenewsAt:           g.RenewsAt,
		TrialEndsAt:        g.TrialEndsAt,
	}

	assignments := map[string]interface{}{
		"credits":    gorm.Expr("credit_balances.credits + ?", g.Credits),
		"updated_at": now,
	}
	if g.Overwrite {
		assignments["tier"] = tier
		assignments["subscription_status"] = g.Status
		assignments["renews_at"] = g.RenewsAt
		assignments["trial_ends_at"] = g.TrialEndsAt
	}

	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("upsert credit balance: %w", err)
	}
	return nil
}
