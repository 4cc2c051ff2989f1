package cart

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
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

	require.NoError(t, db.AutoMigrate(
		&catalog.Product{},
		&catalog.ProductVariant{},
		&inventory.StockRecord{},
		&Cart{},
		&CartLine{},
	))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Checkout: config.CheckoutConfig{
			Currency: "PEN",
			CartTTL:  7 * 24 * time.Hour,
		},
	}
}

func seedVariant(t *testing.T, db *gorm.DB, sku string, price float64, stock int) *catalog.ProductVariant {
	t.Helper()

	product := catalog.Product{Name: "Widget " + sku, Slug: "widget-" + sku, IsActive: true}
	require.NoError(t, db.Create(&product).Error)

	variant := catalog.ProductVariant{
		ProductID: product.ID,
		SKU:       sku,
		Name:      "Widget " + sku,
		SalePrice: decimal.NewFromFloat(price),
		IsActive:  true,
	}
	require.NoError(t, db.Create(&variant).Error)

	require.NoError(t, db.Create(&inventory.StockRecord{
		ProductVariantID:  variant.ID,
		QuantityAvailable: stock,
	}).Error)

	return &variant
}

func TestGetOrCreateActiveCartCreatesLazily(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, testConfig())

	first, err := svc.GetOrCreateActiveCart(7)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, first.Status)
	assert.True(t, first.ExpiresAt.After(time.Now()))

	second, err := svc.GetOrCreateActiveCart(7)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "repeated calls return the same active cart")
}

func TestGetOrCreateActiveCartReplacesExpired(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, testConfig())

	stale, err := svc.GetOrCreateActiveCart(7)
	require.NoError(t, err)
	require.NoError(t, db.Model(stale).Update("expires_at", time.Now().UTC().Add(-time.Hour)).Error)

	fresh, err := svc.GetOrCreateActiveCart(7)
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, fresh.ID)

	var old Cart
	require.NoError(t, db.First(&old, stale.ID).Error)
	assert.Equal(t, StatusExpired, old.Status)
}

func TestAddLineSnapshotsPrice(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, testConfig())
	variant := seedVariant(t, db, "SKU-1", 25.50, 10)

	snapshot, err := svc.AddLine(7, &AddLineRequest{ProductVariantID: variant.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, snapshot.Lines, 1)
	assert.True(t, snapshot.Lines[0].UnitPrice.Equal(decimal.NewFromFloat(25.50)))
	assert.True(t, snapshot.Subtotal.Equal(decimal.NewFromFloat(51.00)))

	// A later catalog price change must not move the cart.
	require.NoError(t, db.Model(variant).Update("sale_price", decimal.NewFromInt(99)).Error)

	snapshot, err = svc.GetSnapshot(7)
	require.NoError(t, err)
	assert.True(t, snapshot.Lines[0].UnitPrice.Equal(decimal.NewFromFloat(25.50)))
}

func TestAddLineMergesExistingVariant(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, testConfig())
	variant := seedVariant(t, db, "SKU-1", 10, 10)

	_, err := svc.AddLine(7, &AddLineRequest{ProductVariantID: variant.ID, Quantity: 2})
	require.NoError(t, err)
	snapshot, err := svc.AddLine(7, &AddLineRequest{ProductVariantID: variant.ID, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, snapshot.Lines, 1, "same variant merges into one line")
	assert.Equal(t, 5, snapshot.Lines[0].Quantity)
}

func TestAddLineValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, testConfig())
	variant := seedVariant(t, db, "SKU-1", 10, 3)

	_, err := svc.AddLine(7, &AddLineRequest{ProductVariantID: variant.ID, Quantity: 0})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.AddLine(7, &AddLineRequest{ProductVariantID: 999, Quantity: 1})
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.AddLine(7, &AddLineRequest{ProductVariantID: variant.ID, Quantity: 4})
	assert.True(t, apperrors.IsConflict(err), "requesting beyond stock is a conflict")
}

func TestAddLineInactiveVariant(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, testConfig())
	variant := seedVariant(t, db, "SKU-1", 10, 5)
	require.NoError(t, db.Model(variant).Update("is_active", false).Error)

	_, err := svc.AddLine(7, &AddLineRequest{ProductVariantID: variant.ID, Quantity: 1})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateLineQuantity(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, testConfig())
	variant := seedVariant(t, db, "SKU-1", 10, 10)

	snapshot, err := svc.AddLine(7, &AddLineRequest{ProductVariantID: variant.ID, Quantity: 2})
	require.NoError(t, err)
	lineID := snapshot.Lines[0].LineID

	snapshot, err = svc.UpdateLineQuantity(7, lineID, &UpdateQuantityRequest{Quantity: 6})
	require.NoError(t, err)
	assert.Equal(t, 6, snapshot.Lines[0].Quantity)

	_, err = svc.UpdateLineQuantity(7, lineID, &UpdateQuantityRequest{Quantity: 0})
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdateLineQuantityOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, testConfig())
	variant := seedVariant(t, db, "SKU-1", 10, 10)

	snapshot, err := svc.AddLine(7, &AddLineRequest{ProductVariantID: variant.ID, Quantity: 2})
	require.NoError(t, err)
	lineID := snapshot.Lines[0].LineID

	// Another user cannot touch the line; it reads as not found.
	_, err = svc.UpdateLineQuantity(8, lineID, &UpdateQuantityRequest{Quantity: 1})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRemoveLineAndClear(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, testConfig())
	v1 := seedVariant(t, db, "SKU-1", 10, 10)
	v2 := seedVariant(t, db, "SKU-2", 20, 10)

	snapshot, err := svc.AddLine(7, &AddLineRequest{ProductVariantID: v1.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddLine(7, &AddLineRequest{ProductVariantID: v2.ID, Quantity: 1})
	require.NoError(t, err)

	snapshot, err = svc.RemoveLine(7, snapshot.Lines[0].LineID)
	require.NoError(t, err)
	require.Len(t, snapshot.Lines, 1)

	snapshot, err = svc.Clear(7)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Lines)
	assert.True(t, snapshot.Subtotal.IsZero())
}
