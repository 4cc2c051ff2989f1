// internal/domain/coupon/entity.go
package coupon

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Type represents the coupon discount type
type Type string

const (
	TypePercentage   Type = "percentage"
	TypeFixedAmount  Type = "fixed_amount"
	TypeFreeShipping Type = "free_shipping"
)

// Coupon is a code-activated discount with eligibility rules and usage caps.
// Codes are matched case-insensitively. UsesSoFar only grows and never
// exceeds MaxTotalUses.
type Coupon struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	Code              string           `gorm:"uniqueIndex;not null;size:50" json:"code"`
	Name              string           `gorm:"size:255" json:"name"`
	Description       string           `gorm:"type:text" json:"description"`
	Type              Type             `gorm:"not null;size:20" json:"type"`
	Value             decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"value"` // percent or flat amount
	MinPurchase       *decimal.Decimal `gorm:"type:decimal(12,2)" json:"min_purchase,omitempty"`
	MaxTotalUses      *int             `json:"max_total_uses,omitempty"`
	MaxUsesPerUser    *int             `json:"max_uses_per_user,omitempty"`
	UsesSoFar         int              `gorm:"not null;default:0" json:"uses_so_far"`
	NewUsersOnly      bool             `gorm:"default:false" json:"new_users_only"`
	FirstPurchaseOnly bool             `gorm:"default:false" json:"first_purchase_only"`
	StartsAt          time.Time        `gorm:"not null" json:"starts_at"`
	EndsAt            time.Time        `gorm:"not null" json:"ends_at"` // exclusive
	IsActive          bool             `gorm:"default:true" json:"is_active"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	DeletedAt         gorm.DeletedAt   `gorm:"index" json:"-"`
}

// Redemption records one use of a coupon by one order. At most one per
// (coupon, order) pair.
type Redemption struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	CouponID       uint            `gorm:"not null;index:idx_redemption_coupon_order,unique" json:"coupon_id"`
	OrderID        uint            `gorm:"not null;index:idx_redemption_coupon_order,unique" json:"order_id"`
	UserID         uint            `gorm:"not null;index" json:"user_id"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TableName overrides the table name
func (Coupon) TableName() string {
	return "coupons"
}

// TableName overrides the table name
func (Redemption) TableName() string {
	return "coupon_redemptions"
}

// IsFreeShipping reports whether the coupon zeroes the shipping cost
func (c *Coupon) IsFreeShipping() bool {
	return c.Type == TypeFreeShipping
}

// Discount computes the coupon's discount for a given subtotal. Percentage
// and fixed discounts are capped at the subtotal; free shipping contributes
// no discount amount (it zeroes the shipping cost instead).
func (c *Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	switch c.Type {
	case TypePercentage:
		discount := subtotal.Mul(c.Value).Div(decimal.NewFromInt(100)).Round(2)
		if discount.GreaterThan(subtotal) {
			return subtotal
		}
		return discount
	case TypeFixedAmount:
		if c.Value.GreaterThan(subtotal) {
			return subtotal
		}
		return c.Value
	default:
		return decimal.Zero
	}
}
