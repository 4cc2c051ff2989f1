package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// In-memory sqlite gives each connection its own database; pin the
	// pool to one connection so transactions see the same data.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&StockRecord{}, &StockMovement{}))
	return db
}

func seedStock(t *testing.T, db *gorm.DB, variantID uint, available int) *StockRecord {
	t.Helper()

	record := StockRecord{
		ProductVariantID:  variantID,
		QuantityAvailable: available,
		QuantityMinimum:   2,
	}
	require.NoError(t, db.Create(&record).Error)
	return &record
}

func TestDecrementHappyPath(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &config.Config{})
	seedStock(t, db, 1, 10)

	tx := db.Begin()
	require.NoError(t, svc.Decrement(tx, 1, 3, 100, "Widget"))
	require.NoError(t, tx.Commit().Error)

	var record StockRecord
	require.NoError(t, db.Where("product_variant_id = ?", 1).First(&record).Error)
	assert.Equal(t, 7, record.QuantityAvailable)
	assert.NotNil(t, record.LastOutboundAt)

	var movement StockMovement
	require.NoError(t, db.Where("product_variant_id = ?", 1).First(&movement).Error)
	assert.Equal(t, MovementTypeOutbound, movement.MovementType)
	assert.Equal(t, ReasonSale, movement.Reason)
	assert.Equal(t, -3, movement.Delta)
	assert.Equal(t, 10, movement.QuantityBefore)
	assert.Equal(t, 7, movement.QuantityAfter)
	require.NotNil(t, movement.OrderID)
	assert.Equal(t, uint(100), *movement.OrderID)
}

func TestDecrementInsufficientStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &config.Config{})
	seedStock(t, db, 1, 2)

	tx := db.Begin()
	err := svc.Decrement(tx, 1, 3, 100, "Widget")
	tx.Rollback()

	assert.True(t, apperrors.IsConflict(err))
	assert.Contains(t, err.Error(), "Widget")

	// The guarded update must leave the quantity untouched.
	var record StockRecord
	require.NoError(t, db.Where("product_variant_id = ?", 1).First(&record).Error)
	assert.Equal(t, 2, record.QuantityAvailable)
}

func TestDecrementExactRemainingStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &config.Config{})
	seedStock(t, db, 1, 3)

	tx := db.Begin()
	require.NoError(t, svc.Decrement(tx, 1, 3, 100, "Widget"))
	require.NoError(t, tx.Commit().Error)

	var record StockRecord
	require.NoError(t, db.Where("product_variant_id = ?", 1).First(&record).Error)
	assert.Equal(t, 0, record.QuantityAvailable)
}

func TestDecrementRejectsNonPositiveQuantity(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &config.Config{})
	seedStock(t, db, 1, 10)

	tx := db.Begin()
	defer tx.Rollback()

	assert.True(t, apperrors.IsValidation(svc.Decrement(tx, 1, 0, 100, "Widget")))
	assert.True(t, apperrors.IsValidation(svc.Decrement(tx, 1, -5, 100, "Widget")))
}

func TestRestockReturnsQuantityAndLedgers(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &config.Config{})
	seedStock(t, db, 1, 5)

	actor := uint(9)
	tx := db.Begin()
	require.NoError(t, svc.Restock(tx, 1, 4, 100, &actor))
	require.NoError(t, tx.Commit().Error)

	var record StockRecord
	require.NoError(t, db.Where("product_variant_id = ?", 1).First(&record).Error)
	assert.Equal(t, 9, record.QuantityAvailable)
	assert.NotNil(t, record.LastInboundAt)

	var movement StockMovement
	require.NoError(t, db.Where("product_variant_id = ?", 1).First(&movement).Error)
	assert.Equal(t, MovementTypeInbound, movement.MovementType)
	assert.Equal(t, ReasonCancelation, movement.Reason)
	assert.Equal(t, 4, movement.Delta)
}

func TestAdjustSetsAbsoluteQuantity(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &config.Config{})
	seedStock(t, db, 1, 10)

	record, err := svc.Adjust(&AdjustStockRequest{
		ProductVariantID: 1,
		NewQuantity:      4,
		Reason:           "cycle count correction",
	}, 7)
	require.NoError(t, err)
	assert.Equal(t, 4, record.QuantityAvailable)

	var movement StockMovement
	require.NoError(t, db.Where("product_variant_id = ?", 1).First(&movement).Error)
	assert.Equal(t, MovementTypeAdjustment, movement.MovementType)
	assert.Equal(t, -6, movement.Delta)
	assert.Equal(t, "cycle count correction", movement.Notes)
	require.NotNil(t, movement.ActorID)
	assert.Equal(t, uint(7), *movement.ActorID)
}

func TestAdjustUnknownVariant(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &config.Config{})

	_, err := svc.Adjust(&AdjustStockRequest{
		ProductVariantID: 99,
		NewQuantity:      4,
		Reason:           "x",
	}, 7)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListLowStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &config.Config{})
	seedStock(t, db, 1, 1) // at or below minimum of 2
	seedStock(t, db, 2, 50)

	records, err := svc.ListLowStock()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint(1), records[0].ProductVariantID)
}

func TestGetMovementsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &config.Config{})
	seedStock(t, db, 1, 10)

	tx := db.Begin()
	require.NoError(t, svc.Decrement(tx, 1, 1, 100, "Widget"))
	require.NoError(t, svc.Decrement(tx, 1, 2, 101, "Widget"))
	require.NoError(t, tx.Commit().Error)

	movements, err := svc.GetMovements(1, 10)
	require.NoError(t, err)
	require.Len(t, movements, 2)
}
