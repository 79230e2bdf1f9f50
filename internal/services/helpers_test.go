package services

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"studio-api/internal/database"
	"studio-api/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2025, time.March, 3, 9, 30, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.OpenDB("", filepath.Join(t.TempDir(), "ledger.db"), logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// recordingNotifier keeps every event it is handed
type recordingNotifier struct {
	mu     sync.Mutex
	events []LedgerEvent
}

func (r *recordingNotifier) Notify(event LedgerEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) Events() []LedgerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LedgerEvent, len(r.events))
	copy(out, r.events)
	return out
}

func newTestLedger(t *testing.T) (*LedgerService, *recordingNotifier, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewLedgerService(db, notifier)
	svc.now = func() time.Time { return testNow }
	return svc, notifier, db
}

func loadBalance(t *testing.T, db *gorm.DB, userID string) models.CreditBalance {
	t.Helper()
	var balance models.CreditBalance
	require.NoError(t, db.Where("user_id = ?", userID).First(&balance).Error)
	return balance
}
