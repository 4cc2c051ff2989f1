// internal/domain/inventory/entity.go
package inventory

import (
	"time"
)

// MovementType represents the type of inventory movement
type MovementType string

const (
	MovementTypeInbound    MovementType = "inbound"    // restock, order cancellation
	MovementTypeOutbound   MovementType = "outbound"   // sale
	MovementTypeAdjustment MovementType = "adjustment" // manual correction
)

// MovementReason represents the reason for an inventory movement
type MovementReason string

const (
	ReasonSale        MovementReason = "sale"
	ReasonCancelation MovementReason = "order_cancelled"
	ReasonRestock     MovementReason = "restock"
	ReasonAdjustment  MovementReason = "manual_adjustment"
)

// StockRecord is the authoritative available quantity for a product variant.
// QuantityAvailable must never go negative; every change to it is serialized
// through a conditional update and ledgered as a StockMovement.
type StockRecord struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	ProductVariantID  uint       `gorm:"uniqueIndex;not null" json:"product_variant_id"`
	QuantityAvailable int        `gorm:"not null;default:0" json:"quantity_available"`
	QuantityMinimum   int        `gorm:"not null;default:0" json:"quantity_minimum"`
	Location          string     `gorm:"size:100" json:"location"` // aisle/shelf
	LastInboundAt     *time.Time `json:"last_inbound_at"`
	LastOutboundAt    *time.Time `json:"last_outbound_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Relationships
	Movements []StockMovement `gorm:"foreignKey:StockRecordID" json:"movements,omitempty"`
}

// StockMovement is an append-only audit entry for every stock change,
// including manual adjustments. Never updated or deleted.
type StockMovement struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	StockRecordID    uint           `gorm:"not null;index" json:"stock_record_id"`
	ProductVariantID uint           `gorm:"not null;index" json:"product_variant_id"`
	MovementType     MovementType   `gorm:"not null;size:20" json:"movement_type"`
	Reason           MovementReason `gorm:"not null;size:50" json:"reason"`
	Delta            int            `gorm:"not null" json:"delta"` // signed quantity change
	QuantityBefore   int            `gorm:"not null" json:"quantity_before"`
	QuantityAfter    int            `gorm:"not null" json:"quantity_after"`
	OrderID          *uint          `gorm:"index" json:"order_id,omitempty"`
	ActorID          *uint          `gorm:"index" json:"actor_id,omitempty"`
	Notes            string         `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time      `json:"created_at"`
}

// TableName overrides the table name
func (StockRecord) TableName() string {
	return "stock_records"
}

// TableName overrides the table name
func (StockMovement) TableName() string {
	return "stock_movements"
}

// IsLowStock checks whether available stock is at or below the minimum
func (r *StockRecord) IsLowStock() bool {
	return r.QuantityAvailable <= r.QuantityMinimum
}

// CanFulfill checks whether there is enough stock for a requested quantity
func (r *StockRecord) CanFulfill(quantity int) bool {
	return r.QuantityAvailable >= quantity
}
