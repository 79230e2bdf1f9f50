package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"studio-api/internal/database"
	"studio-api/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestContext(t *testing.T) (*commandContext, *gorm.DB) {
	t.Helper()
	db, err := database.OpenDB("", filepath.Join(t.TempDir(), "admin.db"), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &commandContext{openDB: func() (*gorm.DB, error) { return db, nil }}, db
}

func runCommand(t *testing.T, ctx *commandContext, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(ctx)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateAndGrant(t *testing.T) {
	ctx, db := newTestContext(t)

	out, err := runCommand(t, ctx, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Migration complete")
	assert.True(t, db.Migrator().HasTable("credit_balances"))

	out, err = runCommand(t, ctx, "grant", "--credits", "75", "user-1", "user-2", "user-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Granted 75 credits to 2 users")

	ledger := services.NewLedgerService(db, nil)
	balance, err := ledger.GetCreditBalance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(75), balance.Credits)

	_, err = runCommand(t, ctx, "grant", "user-1")
	assert.Error(t, err, "--credits is required")
}

func TestRevenueAndPurchases(t *testing.T) {
	ctx, db := newTestContext(t)
	require.NoError(t, database.Migrate(db))

	out, err := runCommand(t, ctx, "purchases")
	require.NoError(t, err)
	assert.Contains(t, out, "No purchases")

	ledger := services.NewLedgerService(db, nil)
	for _, amount := range []string{"9.99", "24.99"} {
		id, err := ledger.CreatePurchase(context.Background(), services.PurchaseInput{
			UserID:        "user-1",
			PackageID:     "pack_" + amount,
			Amount:        decimal.RequireFromString(amount),
			Credits:       100,
			PaymentMethod: "card",
		})
		require.NoError(t, err)
		_, err = ledger.CompletePurchase(context.Background(), id, "")
		require.NoError(t, err)
	}

	out, err = runCommand(t, ctx, "revenue")
	require.NoError(t, err)
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "34.98")
	assert.Contains(t, out, "Credits issued: 200")

	out, err = runCommand(t, ctx, "purchases", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "pack_24.99")
	assert.NotContains(t, out, "pack_9.99")
}

func TestDatabaseErrorsSurface(t *testing.T) {
	ctx := &commandContext{openDB: func() (*gorm.DB, error) { return nil, errors.New("no database") }}

	_, err := runCommand(t, ctx, "revenue")
	assert.EqualError(t, err, "no database")
}

func TestRenderTable(t *testing.T) {
	assert.Empty(t, renderTable(nil, nil, nil))

	out := renderTable([]string{"A", "B"}, [][]string{{"1"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "1")
}
