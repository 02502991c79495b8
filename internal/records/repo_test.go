package records

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dcrespo-dev/orderstream/pkg/db/models"
	pkgerrors "github.com/dcrespo-dev/orderstream/pkg/errors"
	"github.com/dcrespo-dev/orderstream/pkg/types"
)

func setupRecordsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS order_records (
  order_id TEXT PRIMARY KEY,
  customer_ref TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  items TEXT,
  occurred_at DATETIME,
  ingested_at DATETIME NOT NULL,
  truncated INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec("DELETE FROM order_records").Error)

	return db
}

func sampleRecord(orderID string, amount string) *models.OrderRecord {
	amt, _ := decimal.NewFromString(amount)
	return &models.OrderRecord{
		OrderID:     orderID,
		CustomerRef: "cust-1",
		Amount:      amt,
		Currency:    "USD",
		Items:       types.OrderItems{{SKU: "sku-1", Qty: 2}},
		IngestedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestUpsertInsertsNewRecord(t *testing.T) {
	db := setupRecordsTestDB(t)
	repository := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repository.Upsert(ctx, sampleRecord("ord-1", "25.00")))

	found, err := repository.FindByOrderID(ctx, "ord-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "cust-1", found.CustomerRef)
	assert.Equal(t, "25.00", found.Amount.StringFixed(2))
	assert.Len(t, found.Items, 1)
}

func TestUpsertIsIdempotentPerOrderID(t *testing.T) {
	db := setupRecordsTestDB(t)
	repository := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repository.Upsert(ctx, sampleRecord("ord-1", "25.00")))

	updated := sampleRecord("ord-1", "30.00")
	updated.CustomerRef = "cust-2"
	updated.Truncated = true
	require.NoError(t, repository.Upsert(ctx, updated))

	var count int64
	require.NoError(t, db.Model(&models.OrderRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "repeated writes for one order_id must not duplicate")

	found, err := repository.FindByOrderID(ctx, "ord-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "30.00", found.Amount.StringFixed(2))
	assert.Equal(t, "cust-2", found.CustomerRef)
	assert.True(t, found.Truncated)
}

func TestUpsertConvergesUnderRepeatedDelivery(t *testing.T) {
	db := setupRecordsTestDB(t)
	repository := NewRepository(db)
	ctx := context.Background()

	record := sampleRecord("ord-1", "25.00")
	for i := 0; i < 5; i++ {
		require.NoError(t, repository.Upsert(ctx, record))
	}

	var count int64
	require.NoError(t, db.Model(&models.OrderRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertRejectsNilRecord(t *testing.T) {
	db := setupRecordsTestDB(t)
	repository := NewRepository(db)

	err := repository.Upsert(context.Background(), nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInternal, typed.Code())
}

func TestFindByOrderIDMissingReturnsNil(t *testing.T) {
	db := setupRecordsTestDB(t)
	repository := NewRepository(db)

	found, err := repository.FindByOrderID(context.Background(), "no-such-order")
	require.NoError(t, err)
	assert.Nil(t, found)
}
