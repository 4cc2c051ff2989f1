package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/user"
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
		&user.User{},
		&Coupon{},
		&Redemption{},
		&order.Order{},
	))

	return db
}

func seedUser(t *testing.T, db *gorm.DB, registeredAt time.Time) *user.User {
	t.Helper()

	u := user.User{
		Email:    "shopper@example.com",
		Password: "x",
		IsActive: true,
	}
	require.NoError(t, db.Create(&u).Error)
	require.NoError(t, db.Model(&u).Update("created_at", registeredAt).Error)
	u.CreatedAt = registeredAt
	return &u
}

func seedCoupon(t *testing.T, db *gorm.DB, mutate func(*Coupon)) *Coupon {
	t.Helper()

	now := time.Now().UTC()
	c := Coupon{
		Code:     "SAVE10",
		Type:     TypePercentage,
		Value:    decimal.NewFromInt(10),
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(time.Hour),
		IsActive: true,
	}
	if mutate != nil {
		mutate(&c)
	}
	require.NoError(t, db.Create(&c).Error)
	return &c
}

func newValidator(db *gorm.DB) *Validator {
	return NewValidator(db, &config.Config{})
}

func TestValidateHappyPath(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, time.Now().UTC())
	seedCoupon(t, db, nil)

	got, err := newValidator(db).Validate("SAVE10", u.ID, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", got.Code)
}

func TestValidateCodeIsCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, time.Now().UTC())
	seedCoupon(t, db, nil)

	got, err := newValidator(db).Validate("save10", u.ID, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", got.Code)
}

func TestValidateUnknownCode(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, time.Now().UTC())

	_, err := newValidator(db).Validate("NOPE", u.ID, decimal.NewFromInt(50))
	assert.True(t, apperrors.IsConflict(err))
}

func TestValidateInactiveCoupon(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, time.Now().UTC())
	seedCoupon(t, db, func(c *Coupon) { c.IsActive = false })

	_, err := newValidator(db).Validate("SAVE10", u.ID, decimal.NewFromInt(50))
	assert.True(t, apperrors.IsConflict(err))
}

func TestValidateOutsideValidityWindow(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, time.Now().UTC())

	// Not started yet
	seedCoupon(t, db, func(c *Coupon) {
		c.Code = "FUTURE"
		c.StartsAt = time.Now().UTC().Add(time.Hour)
		c.EndsAt = time.Now().UTC().Add(2 * time.Hour)
	})
	_, err := newValidator(db).Validate("FUTURE", u.ID, decimal.NewFromInt(50))
	assert.True(t, apperrors.IsConflict(err))

	// Already ended; ends_at is exclusive
	seedCoupon(t, db, func(c *Coupon) {
		c.Code = "PAST"
		c.StartsAt = time.Now().UTC().Add(-2 * time.Hour)
		c.EndsAt = time.Now().UTC().Add(-time.Hour)
	})
	_, err = newValidator(db).Validate("PAST", u.ID, decimal.NewFromInt(50))
	assert.True(t, apperrors.IsConflict(err))
}

func TestValidateMinPurchase(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, time.Now().UTC())
	min := decimal.NewFromInt(100)
	seedCoupon(t, db, func(c *Coupon) { c.MinPurchase = &min })

	_, err := newValidator(db).Validate("SAVE10", u.ID, decimal.NewFromFloat(99.99))
	assert.True(t, apperrors.IsConflict(err))

	_, err = newValidator(db).Validate("SAVE10", u.ID, decimal.NewFromInt(100))
	assert.NoError(t, err)
}

func TestValidateTotalUsageCap(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, time.Now().UTC())
	max := 5
	seedCoupon(t, db, func(c *Coupon) {
		c.MaxTotalUses = &max
		c.UsesSoFar = 5
	})

	_, err := newValidator(db).Validate("SAVE10", u.ID, decimal.NewFromInt(50))
	assert.True(t, apperrors.IsConflict(err))
}

func TestValidatePerUserCap(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, time.Now().UTC())
	perUser := 1
	c := seedCoupon(t, db, func(c *Coupon) { c.MaxUsesPerUser = &perUser })

	require.NoError(t, db.Create(&Redemption{
		CouponID:       c.ID,
		OrderID:        1,
		UserID:         u.ID,
		DiscountAmount: decimal.NewFromInt(5),
	}).Error)

	_, err := newValidator(db).Validate("SAVE10", u.ID, decimal.NewFromInt(50))
	assert.True(t, apperrors.IsConflict(err))
}

func TestValidateNewUsersOnly(t *testing.T) {
	db := newTestDB(t)
	oldUser := seedUser(t, db, time.Now().UTC().Add(-30*24*time.Hour))
	seedCoupon(t, db, func(c *Coupon) { c.NewUsersOnly = true })

	_, err := newValidator(db).Validate("SAVE10", oldUser.ID, decimal.NewFromInt(50))
	assert.True(t, apperrors.IsConflict(err))
}

func TestValidateFirstPurchaseOnly(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, time.Now().UTC())
	seedCoupon(t, db, func(c *Coupon) { c.FirstPurchaseOnly = true })

	// A cancelled order does not count as a purchase.
	require.NoError(t, db.Create(&order.Order{
		OrderNumber: "ORD-20260101-0001",
		UserID:      u.ID,
		Status:      order.StatusCancelled,
		Currency:    "PEN",
	}).Error)

	_, err := newValidator(db).Validate("SAVE10", u.ID, decimal.NewFromInt(50))
	assert.NoError(t, err)

	require.NoError(t, db.Create(&order.Order{
		OrderNumber: "ORD-20260101-0002",
		UserID:      u.ID,
		Status:      order.StatusConfirmed,
		Currency:    "PEN",
	}).Error)

	_, err = newValidator(db).Validate("SAVE10", u.ID, decimal.NewFromInt(50))
	assert.True(t, apperrors.IsConflict(err))
}

func TestRedeemIncrementsUsageAndRecordsRedemption(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, time.Now().UTC())
	max := 2
	c := seedCoupon(t, db, func(c *Coupon) { c.MaxTotalUses = &max })

	tx := db.Begin()
	require.NoError(t, newValidator(db).Redeem(tx, c, u.ID, 42, decimal.NewFromInt(5)))
	require.NoError(t, tx.Commit().Error)

	var reloaded Coupon
	require.NoError(t, db.First(&reloaded, c.ID).Error)
	assert.Equal(t, 1, reloaded.UsesSoFar)

	var redemptions int64
	db.Model(&Redemption{}).Where("coupon_id = ? AND order_id = ?", c.ID, 42).Count(&redemptions)
	assert.Equal(t, int64(1), redemptions)
}

func TestRedeemRefusesToExceedCap(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, time.Now().UTC())
	max := 1
	c := seedCoupon(t, db, func(c *Coupon) {
		c.MaxTotalUses = &max
		c.UsesSoFar = 1
	})

	tx := db.Begin()
	err := newValidator(db).Redeem(tx, c, u.ID, 43, decimal.NewFromInt(5))
	tx.Rollback()

	assert.True(t, apperrors.IsConflict(err))
}
