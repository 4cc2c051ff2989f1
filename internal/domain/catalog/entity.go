// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a sellable product. The storefront catalog (search,
// categories, images, reviews) lives outside this core; checkout only needs
// the identity and the active flag.
type Product struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string         `gorm:"type:text" json:"description"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// ProductVariant is the purchasable unit. Its sale price is the source of the
// unit-price snapshot taken when a line is added to a cart; per-product
// promotions are already baked into SalePrice.
type ProductVariant struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ProductID  uint            `gorm:"not null;index" json:"product_id"`
	SKU        string          `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name       string          `gorm:"not null;size:255" json:"name"`
	SalePrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"sale_price"`
	IsActive   bool            `gorm:"default:true" json:"is_active"`
	SoldCount  int             `gorm:"default:0" json:"sold_count"`
	LastSoldAt *time.Time      `json:"last_sold_at"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName overrides the table name
func (Product) TableName() string {
	return "products"
}

// TableName overrides the table name
func (ProductVariant) TableName() string {
	return "product_variants"
}
