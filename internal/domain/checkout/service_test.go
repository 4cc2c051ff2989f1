package checkout

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/coupon"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fixture wires the full service graph against an in-memory database
type fixture struct {
	db       *gorm.DB
	cfg      *config.Config
	carts    *cart.Service
	checkout *Service

	userID   uint
	address  *user.Address
	method   *payment.Method
	variant  *catalog.ProductVariant
	variant2 *catalog.ProductVariant
}

func newFixture(t *testing.T) *fixture {
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
		&user.User{},
		&user.Address{},
		&catalog.Product{},
		&catalog.ProductVariant{},
		&inventory.StockRecord{},
		&inventory.StockMovement{},
		&cart.Cart{},
		&cart.CartLine{},
		&coupon.Coupon{},
		&coupon.Redemption{},
		&payment.Method{},
		&payment.Payment{},
		&order.Order{},
		&order.OrderLine{},
	))

	cfg := &config.Config{
		Checkout: config.CheckoutConfig{
			Currency:              "PEN",
			FreeShippingThreshold: decimal.NewFromInt(100),
			FlatShippingRate:      decimal.NewFromInt(15),
			CartTTL:               7 * 24 * time.Hour,
			OrderNumberPrefix:     "ORD",
		},
	}

	carts := cart.NewService(db, cfg)
	svc := NewService(
		db,
		cfg,
		carts,
		pricing.NewCalculator(cfg),
		coupon.NewValidator(db, cfg),
		payment.NewSimulator(db, cfg),
		inventory.NewService(db, cfg),
		user.NewAddressService(db, cfg),
	)

	f := &fixture{db: db, cfg: cfg, carts: carts, checkout: svc}
	f.seed(t)
	return f
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()

	u := user.User{Email: "shopper@example.com", Password: "x", IsActive: true}
	require.NoError(t, f.db.Create(&u).Error)
	f.userID = u.ID

	addr := user.Address{
		UserID:       u.ID,
		AddressLine1: "Av. Principal 123",
		AddressLine2: "Dpto 4B",
		City:         "Lima",
		Region:       "Lima",
		PostalCode:   "15001",
		Country:      "PE",
		Phone:        "+51999888777",
		IsDefault:    true,
		IsActive:     true,
	}
	require.NoError(t, f.db.Create(&addr).Error)
	f.address = &addr

	method := payment.Method{
		Name:       "Credit Card",
		Kind:       "card",
		FeePercent: decimal.NewFromFloat(3.5),
		FeeFixed:   decimal.NewFromFloat(0.30),
		IsActive:   true,
	}
	require.NoError(t, f.db.Create(&method).Error)
	f.method = &method

	f.variant = f.seedVariant(t, "SKU-1", 40, 10)
	f.variant2 = f.seedVariant(t, "SKU-2", 80, 5)
}

func (f *fixture) seedVariant(t *testing.T, sku string, price float64, stock int) *catalog.ProductVariant {
	t.Helper()

	product := catalog.Product{Name: "Widget " + sku, Slug: "widget-" + strings.ToLower(sku), IsActive: true}
	require.NoError(t, f.db.Create(&product).Error)

	variant := catalog.ProductVariant{
		ProductID: product.ID,
		SKU:       sku,
		Name:      "Widget " + sku,
		SalePrice: decimal.NewFromFloat(price),
		IsActive:  true,
	}
	require.NoError(t, f.db.Create(&variant).Error)

	require.NoError(t, f.db.Create(&inventory.StockRecord{
		ProductVariantID:  variant.ID,
		QuantityAvailable: stock,
	}).Error)

	return &variant
}

func (f *fixture) addToCart(t *testing.T, variantID uint, quantity int) {
	t.Helper()
	_, err := f.carts.AddLine(f.userID, &cart.AddLineRequest{ProductVariantID: variantID, Quantity: quantity})
	require.NoError(t, err)
}

func (f *fixture) checkoutRequest() *CheckoutRequest {
	return &CheckoutRequest{
		AddressID:       f.address.ID,
		PaymentMethodID: f.method.ID,
	}
}

func TestQuoteDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, f.variant.ID, 1) // 40 < 100, shipping applies

	quote, err := f.checkout.Quote(f.userID, "")
	require.NoError(t, err)
	assert.True(t, quote.Subtotal.Equal(decimal.NewFromInt(40)))
	assert.True(t, quote.ShippingCost.Equal(decimal.NewFromInt(15)))
	assert.True(t, quote.Total.Equal(decimal.NewFromInt(55)))

	var orders int64
	f.db.Model(&order.Order{}).Count(&orders)
	assert.Zero(t, orders)

	var record inventory.StockRecord
	require.NoError(t, f.db.Where("product_variant_id = ?", f.variant.ID).First(&record).Error)
	assert.Equal(t, 10, record.QuantityAvailable, "quoting must not touch stock")
}

func TestQuoteEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.checkout.Quote(f.userID, "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestCheckoutHappyPath(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, f.variant.ID, 1)  // 40
	f.addToCart(t, f.variant2.ID, 1) // 80, subtotal 120 ships free

	result, err := f.checkout.Checkout(f.userID, f.checkoutRequest())
	require.NoError(t, err)

	o := result.Order
	assert.Equal(t, order.StatusConfirmed, o.Status)
	assert.Equal(t, order.PaymentStatusCompleted, o.PaymentStatus)
	assert.True(t, o.Subtotal.Equal(decimal.NewFromInt(120)))
	assert.True(t, o.ShippingCost.IsZero())
	assert.True(t, o.Total.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, "PEN", o.Currency)
	assert.NotNil(t, o.ConfirmedAt)
	assert.NotNil(t, o.PaidAt)
	require.Len(t, o.Lines, 2)

	// Order number carries the date prefix and a daily sequence.
	prefix := "ORD-" + time.Now().UTC().Format("20060102") + "-"
	assert.True(t, strings.HasPrefix(o.OrderNumber, prefix))
	assert.True(t, strings.HasSuffix(o.OrderNumber, "0001"))

	// Address snapshot is frozen on the order.
	assert.Equal(t, "Av. Principal 123, Dpto 4B", o.ShippingAddress)
	assert.Equal(t, "Lima", o.ShippingCity)
	assert.Equal(t, "+51999888777", o.ContactPhone)

	// Payment captured synchronously with fee and net amount.
	pay := result.Payment
	require.NotNil(t, pay)
	assert.Equal(t, payment.StatusCompleted, pay.Status)
	assert.True(t, pay.Amount.Equal(decimal.NewFromInt(120)))
	assert.True(t, pay.Fee.Equal(decimal.NewFromFloat(4.50))) // 120*3.5% + 0.30
	assert.True(t, pay.NetAmount.Equal(decimal.NewFromFloat(115.50)))
	assert.Contains(t, pay.TxReference, "TXN-")

	// Stock decremented and movements ledgered.
	var record inventory.StockRecord
	require.NoError(t, f.db.Where("product_variant_id = ?", f.variant.ID).First(&record).Error)
	assert.Equal(t, 9, record.QuantityAvailable)

	// Cart converted; a fresh active cart appears on next access.
	var converted cart.Cart
	require.NoError(t, f.db.Where("user_id = ? AND status = ?", f.userID, cart.StatusConverted).First(&converted).Error)
	fresh, err := f.carts.GetOrCreateActiveCart(f.userID)
	require.NoError(t, err)
	assert.NotEqual(t, converted.ID, fresh.ID)

	// Sales counters bumped on the variant.
	var v catalog.ProductVariant
	require.NoError(t, f.db.First(&v, f.variant.ID).Error)
	assert.Equal(t, 1, v.SoldCount)
	assert.NotNil(t, v.LastSoldAt)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.checkout.Checkout(f.userID, f.checkoutRequest())
	assert.True(t, apperrors.IsValidation(err))
}

func TestCheckoutForeignAddress(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, f.variant.ID, 1)

	other := user.User{Email: "other@example.com", Password: "x", IsActive: true}
	require.NoError(t, f.db.Create(&other).Error)
	foreign := user.Address{UserID: other.ID, AddressLine1: "Elsewhere 1", City: "Cusco", Country: "PE", IsActive: true}
	require.NoError(t, f.db.Create(&foreign).Error)

	req := f.checkoutRequest()
	req.AddressID = foreign.ID
	_, err := f.checkout.Checkout(f.userID, req)
	assert.True(t, apperrors.IsNotFound(err), "another user's address reads as not found")
}

func TestCheckoutInactivePaymentMethod(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, f.variant.ID, 1)
	require.NoError(t, f.db.Model(f.method).Update("is_active", false).Error)

	_, err := f.checkout.Checkout(f.userID, f.checkoutRequest())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCheckoutInsufficientStockRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, f.variant.ID, 2)
	f.addToCart(t, f.variant2.ID, 3)

	// Stock shrinks between add-to-cart and checkout.
	require.NoError(t, f.db.Model(&inventory.StockRecord{}).
		Where("product_variant_id = ?", f.variant2.ID).
		Update("quantity_available", 1).Error)

	_, err := f.checkout.Checkout(f.userID, f.checkoutRequest())
	assert.True(t, apperrors.IsConflict(err))

	// Nothing may survive the rollback.
	var orders, lines, payments, movements int64
	f.db.Model(&order.Order{}).Count(&orders)
	f.db.Model(&order.OrderLine{}).Count(&lines)
	f.db.Model(&payment.Payment{}).Count(&payments)
	f.db.Model(&inventory.StockMovement{}).Count(&movements)
	assert.Zero(t, orders)
	assert.Zero(t, lines)
	assert.Zero(t, payments)
	assert.Zero(t, movements)

	// First variant's stock untouched even though it was decremented first.
	var record inventory.StockRecord
	require.NoError(t, f.db.Where("product_variant_id = ?", f.variant.ID).First(&record).Error)
	assert.Equal(t, 10, record.QuantityAvailable)

	// Cart still active with its lines.
	snapshot, err := f.carts.GetSnapshot(f.userID)
	require.NoError(t, err)
	assert.Len(t, snapshot.Lines, 2)
}

func TestCheckoutWithPercentageCoupon(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, f.variant2.ID, 2) // 160

	now := time.Now().UTC()
	c := coupon.Coupon{
		Code:     "SAVE10",
		Type:     coupon.TypePercentage,
		Value:    decimal.NewFromInt(10),
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(time.Hour),
		IsActive: true,
	}
	require.NoError(t, f.db.Create(&c).Error)

	req := f.checkoutRequest()
	req.CouponCode = "SAVE10"
	result, err := f.checkout.Checkout(f.userID, req)
	require.NoError(t, err)

	o := result.Order
	assert.True(t, o.DiscountTotal.Equal(decimal.NewFromInt(16)))
	assert.True(t, o.Total.Equal(decimal.NewFromInt(144)))
	assert.Equal(t, "SAVE10", o.CouponCode)

	var reloaded coupon.Coupon
	require.NoError(t, f.db.First(&reloaded, c.ID).Error)
	assert.Equal(t, 1, reloaded.UsesSoFar)

	var redemption coupon.Redemption
	require.NoError(t, f.db.Where("coupon_id = ? AND order_id = ?", c.ID, o.ID).First(&redemption).Error)
	assert.True(t, redemption.DiscountAmount.Equal(decimal.NewFromInt(16)))
}

func TestCheckoutIneligibleCouponBlocks(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, f.variant.ID, 1)

	req := f.checkoutRequest()
	req.CouponCode = "NOPE"
	_, err := f.checkout.Checkout(f.userID, req)
	assert.True(t, apperrors.IsConflict(err))

	var orders int64
	f.db.Model(&order.Order{}).Count(&orders)
	assert.Zero(t, orders)
}

func TestCheckoutIdempotencyReplay(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, f.variant.ID, 1)

	req := f.checkoutRequest()
	req.IdempotencyKey = "key-123"
	first, err := f.checkout.Checkout(f.userID, req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	// Cart items again, same key: the original order comes back untouched.
	f.addToCart(t, f.variant.ID, 1)
	second, err := f.checkout.Checkout(f.userID, req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, first.Order.OrderNumber, second.Order.OrderNumber)

	var orders int64
	f.db.Model(&order.Order{}).Count(&orders)
	assert.Equal(t, int64(1), orders, "replay must not create a second order")
}

func TestCheckoutDistinctKeysCreateDistinctOrders(t *testing.T) {
	f := newFixture(t)

	f.addToCart(t, f.variant.ID, 1)
	req := f.checkoutRequest()
	req.IdempotencyKey = "key-1"
	first, err := f.checkout.Checkout(f.userID, req)
	require.NoError(t, err)

	f.addToCart(t, f.variant.ID, 1)
	req2 := f.checkoutRequest()
	req2.IdempotencyKey = "key-2"
	second, err := f.checkout.Checkout(f.userID, req2)
	require.NoError(t, err)

	assert.NotEqual(t, first.Order.ID, second.Order.ID)
	assert.True(t, strings.HasSuffix(second.Order.OrderNumber, "0002"), "daily sequence advances")
}

func TestCheckoutTotalsInvariant(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, f.variant.ID, 1) // 40, below threshold

	result, err := f.checkout.Checkout(f.userID, f.checkoutRequest())
	require.NoError(t, err)

	o := result.Order
	expected := o.Subtotal.Sub(o.DiscountTotal).Add(o.ShippingCost)
	assert.True(t, o.Total.Equal(expected), "total = subtotal - discount + shipping")
	assert.True(t, o.ShippingCost.Equal(decimal.NewFromInt(15)))
}
