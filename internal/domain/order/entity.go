// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the order status
type Status string

const (
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
	StatusProcessing          Status = "processing"
	StatusShipped             Status = "shipped"
	StatusDelivered           Status = "delivered"
	StatusCancelled           Status = "cancelled"
	StatusRefunded            Status = "refunded"
)

// PaymentStatus represents the payment state carried on the order
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusProcessing        PaymentStatus = "processing"
	PaymentStatusCompleted         PaymentStatus = "completed"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRejected          PaymentStatus = "rejected"
	PaymentStatusCancelled         PaymentStatus = "cancelled"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// Order records a purchase. Monetary fields and the shipping snapshot are
// immutable after creation; only the status fields transition.
type Order struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	OrderNumber   string        `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID        uint          `gorm:"not null;index" json:"user_id"`
	CartID        *uint         `gorm:"index" json:"cart_id,omitempty"`
	Status        Status        `gorm:"not null;default:'pending_confirmation';size:30" json:"status"`
	PaymentStatus PaymentStatus `gorm:"not null;default:'pending';size:30" json:"payment_status"`

	// Monetary fields
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	DiscountTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_total"`
	ShippingCost  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"shipping_cost"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`

	// Shipping address snapshot, frozen at checkout time. Stays valid even
	// if the live address is later edited or deleted.
	ShippingAddress string `gorm:"size:512;not null" json:"shipping_address"` // line1, line2
	ShippingCity    string `gorm:"size:100" json:"shipping_city"`
	ShippingRegion  string `gorm:"size:100" json:"shipping_region"`
	ShippingPostal  string `gorm:"size:20" json:"shipping_postal"`
	ContactPhone    string `gorm:"size:20" json:"contact_phone"`

	CouponCode     string  `gorm:"size:50" json:"coupon_code,omitempty"`
	Notes          string  `gorm:"type:text" json:"notes"`
	IdempotencyKey *string `gorm:"size:64;uniqueIndex:idx_orders_user_idem_key" json:"-"`
	// UserID participates in the idempotency uniqueness
	IdemUserID *uint `gorm:"uniqueIndex:idx_orders_user_idem_key" json:"-"`

	ConfirmedAt *time.Time `json:"confirmed_at"`
	PaidAt      *time.Time `json:"paid_at"`
	ShippedAt   *time.Time `json:"shipped_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relationships
	Lines []OrderLine `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"lines,omitempty"`
}

// OrderLine is one purchased variant with its full price snapshot. Created
// once, never mutated.
type OrderLine struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	OrderID          uint            `gorm:"not null;index" json:"order_id"`
	ProductVariantID uint            `gorm:"not null;index" json:"product_variant_id"`
	ProductName      string          `gorm:"not null;size:255" json:"product_name"`
	SKU              string          `gorm:"not null;size:100" json:"sku"`
	Quantity         int             `gorm:"not null" json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	UnitDiscount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"unit_discount"`
	FinalPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"final_price"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	CreatedAt        time.Time       `json:"created_at"`
}

// TableName overrides the table name
func (Order) TableName() string {
	return "orders"
}

// TableName overrides the table name
func (OrderLine) TableName() string {
	return "order_lines"
}

// validStatusTransitions encodes the order state machine: the main flow plus
// the cancellation side branch from confirmed/processing.
var validStatusTransitions = map[Status][]Status{
	StatusPendingConfirmation: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:           {StatusProcessing, StatusCancelled},
	StatusProcessing:          {StatusShipped, StatusCancelled},
	StatusShipped:             {StatusDelivered},
	StatusCancelled:           {StatusRefunded},
}

// validPaymentTransitions encodes the payment state machine carried on the order.
var validPaymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRejected, PaymentStatusCancelled},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRejected, PaymentStatusCancelled},
	PaymentStatusCompleted:  {PaymentStatusRefunded, PaymentStatusPartiallyRefunded},
}

// CanTransitionTo reports whether the order status may change to target
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range validStatusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the payment status may change to target
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, allowed := range validPaymentTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CanBeCancelled reports whether the order may enter the cancellation branch
func (o *Order) CanBeCancelled() bool {
	return o.Status.CanTransitionTo(StatusCancelled)
}
