// internal/domain/payment/entity.go
package payment

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Status represents the payment status
type Status string

const (
	StatusPending           Status = "pending"
	StatusProcessing        Status = "processing"
	StatusCompleted         Status = "completed"
	StatusFailed            Status = "failed"
	StatusRejected          Status = "rejected"
	StatusCancelled         Status = "cancelled"
	StatusRefunded          Status = "refunded"
	StatusPartiallyRefunded Status = "partially_refunded"
)

// Method is a payment option with its fee schedule
type Method struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"not null;size:100" json:"name"`
	Kind         string          `gorm:"not null;size:50" json:"kind"` // card, wallet, transfer, cod
	Description  string          `gorm:"type:text" json:"description"`
	FeePercent   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"fee_percent"`
	FeeFixed     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"fee_fixed"`
	DisplayOrder int             `gorm:"default:0" json:"display_order"`
	IsActive     bool            `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

// Payment records one capture attempt for an order. Created once per order;
// refund flows live outside this core.
type Payment struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	OrderID      uint            `gorm:"not null;index" json:"order_id"`
	MethodID     uint            `gorm:"not null;index" json:"method_id"`
	TxReference  string          `gorm:"uniqueIndex;not null;size:50" json:"tx_reference"`
	Status       Status          `gorm:"not null;size:20" json:"status"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Fee          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"fee"`
	NetAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"net_amount"`
	Currency     string          `gorm:"size:3;not null" json:"currency"`
	Provider     string          `gorm:"size:50" json:"provider"`
	CapturedAt   *time.Time      `json:"captured_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	// Relationships
	Method Method `gorm:"foreignKey:MethodID" json:"method,omitempty"`
}

// TableName overrides the table name
func (Method) TableName() string {
	return "payment_methods"
}

// TableName overrides the table name
func (Payment) TableName() string {
	return "payments"
}

// Fee computes the method's fee for a given amount
func (m *Method) CalculateFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(m.FeePercent).Div(decimal.NewFromInt(100)).Add(m.FeeFixed).Round(2)
}
