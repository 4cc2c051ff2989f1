// internal/domain/coupon/validator.go
package coupon

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// newUserWindow is how recently a user must have registered to count as a
// new user for coupon eligibility.
const newUserWindow = 7 * 24 * time.Hour

// Validator runs the eligibility rule chain for a coupon code. Checks are
// ordered and short-circuiting; each failure carries a distinct reason.
type Validator struct {
	db     *gorm.DB
	config *config.Config
}

// NewValidator creates a new coupon validator
func NewValidator(db *gorm.DB, cfg *config.Config) *Validator {
	return &Validator{
		db:     db,
		config: cfg,
	}
}

// Validate checks a coupon code against the caller and the order subtotal and
// returns the coupon for discount computation if every rule passes.
func (v *Validator) Validate(code string, userID uint, subtotal decimal.Decimal) (*Coupon, error) {
	// 1. Code exists (case-insensitive) and is active
	var c Coupon
	err := v.db.Where("UPPER(code) = UPPER(?)", code).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Conflict("coupon code '%s' is not valid", code)
		}
		return nil, apperrors.Infrastructure("retrieve coupon", err)
	}
	if !c.IsActive {
		return nil, apperrors.Conflict("coupon '%s' is no longer active", c.Code)
	}

	// 2. Current time inside [starts_at, ends_at)
	now := time.Now().UTC()
	if now.Before(c.StartsAt) || !now.Before(c.EndsAt) {
		return nil, apperrors.Conflict("coupon '%s' is outside its validity period", c.Code)
	}

	// 3. Minimum purchase
	if c.MinPurchase != nil && subtotal.LessThan(*c.MinPurchase) {
		return nil, apperrors.Conflict("coupon requires a minimum purchase of %s", c.MinPurchase.StringFixed(2))
	}

	// 4. Total usage cap
	if c.MaxTotalUses != nil && c.UsesSoFar >= *c.MaxTotalUses {
		return nil, apperrors.Conflict("coupon has reached its usage limit")
	}

	// 5. Per-user usage cap
	if c.MaxUsesPerUser != nil {
		var used int64
		err := v.db.Model(&Redemption{}).
			Where("coupon_id = ? AND user_id = ?", c.ID, userID).
			Count(&used).Error
		if err != nil {
			return nil, apperrors.Infrastructure("count coupon redemptions", err)
		}
		if used >= int64(*c.MaxUsesPerUser) {
			return nil, apperrors.Conflict("you have already used this coupon the maximum number of times")
		}
	}

	// 6. New users only: registered within the last 7 days
	if c.NewUsersOnly {
		var u user.User
		if err := v.db.First(&u, userID).Error; err != nil {
			return nil, apperrors.Infrastructure("retrieve user", err)
		}
		if !u.RegisteredWithin(newUserWindow) {
			return nil, apperrors.Conflict("coupon is only available to new users")
		}
	}

	// 7. First purchase only: no prior non-cancelled orders
	if c.FirstPurchaseOnly {
		var prior int64
		err := v.db.Table("orders").
			Where("user_id = ? AND status <> ?", userID, "cancelled").
			Count(&prior).Error
		if err != nil {
			return nil, apperrors.Infrastructure("count prior orders", err)
		}
		if prior > 0 {
			return nil, apperrors.Conflict("coupon is only valid on your first purchase")
		}
	}

	return &c, nil
}

// Redeem records a coupon use for an order and bumps the usage counter, all
// inside the caller's transaction. The counter increment is conditional on
// the cap so two concurrent checkouts cannot push uses past the maximum.
func (v *Validator) Redeem(tx *gorm.DB, c *Coupon, userID, orderID uint, discount decimal.Decimal) error {
	redemption := Redemption{
		CouponID:       c.ID,
		OrderID:        orderID,
		UserID:         userID,
		DiscountAmount: discount,
	}
	if err := tx.Create(&redemption).Error; err != nil {
		return apperrors.Infrastructure("record coupon redemption", err)
	}

	query := tx.Model(&Coupon{}).Where("id = ?", c.ID)
	if c.MaxTotalUses != nil {
		query = query.Where("uses_so_far < ?", *c.MaxTotalUses)
	}
	result := query.Update("uses_so_far", gorm.Expr("uses_so_far + 1"))
	if result.Error != nil {
		return apperrors.Infrastructure("increment coupon uses", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Conflict("coupon has reached its usage limit")
	}

	return nil
}
