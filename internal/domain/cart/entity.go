// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the cart lifecycle state
type Status string

const (
	StatusActive    Status = "active"
	StatusConverted Status = "converted" // terminal, set once by checkout
	StatusAbandoned Status = "abandoned"
	StatusExpired   Status = "expired"
)

// Cart is the mutable pre-order basket. A user has at most one active cart at
// a time; it is created lazily and becomes converted exactly once on a
// successful checkout.
type Cart struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Status    Status    `gorm:"not null;default:'active';size:20" json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Lines []CartLine `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"lines,omitempty"`
}

// CartLine is one product variant in a cart. UnitPrice is snapshotted at
// add-time so later catalog price changes do not move the basket.
type CartLine struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	CartID           uint            `gorm:"not null;index" json:"cart_id"`
	ProductVariantID uint            `gorm:"not null;index" json:"product_variant_id"`
	Quantity         int             `gorm:"not null" json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName overrides the table name
func (Cart) TableName() string {
	return "carts"
}

// TableName overrides the table name
func (CartLine) TableName() string {
	return "cart_lines"
}

// IsExpired reports whether the cart passed its expiry
func (c *Cart) IsExpired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().UTC().After(c.ExpiresAt)
}
