// internal/domain/cart/service.go
package cart

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles cart business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new cart service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// AddLineRequest represents add-to-cart data
type AddLineRequest struct {
	ProductVariantID uint `json:"product_variant_id" binding:"required"`
	Quantity         int  `json:"quantity" binding:"required"`
}

// UpdateQuantityRequest represents a quantity change for an existing line
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// LineView is a cart line joined with live catalog and stock data for display
type LineView struct {
	LineID           uint            `json:"line_id"`
	ProductVariantID uint            `json:"product_variant_id"`
	ProductID        uint            `json:"product_id"`
	Name             string          `json:"name"`
	SKU              string          `json:"sku"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Quantity         int             `json:"quantity"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	StockAvailable   int             `json:"stock_available"`
}

// Snapshot represents a cart with its lines and computed totals
type Snapshot struct {
	CartID     uint            `json:"cart_id"`
	UserID     uint            `json:"user_id"`
	Status     Status          `json:"status"`
	Lines      []LineView      `json:"lines"`
	TotalItems int             `json:"total_items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	ExpiresAt  time.Time       `json:"expires_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// GetOrCreateActiveCart returns the user's active cart, creating one with the
// configured TTL if none exists. An expired cart is closed and replaced.
func (s *Service) GetOrCreateActiveCart(userID uint) (*Cart, error) {
	var cart Cart
	err := s.db.Where("user_id = ? AND status = ?", userID, StatusActive).First(&cart).Error
	if err == nil {
		if cart.IsExpired() {
			if err := s.db.Model(&cart).Update("status", StatusExpired).Error; err != nil {
				return nil, apperrors.Infrastructure("expire cart", err)
			}
		} else {
			return &cart, nil
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Infrastructure("retrieve cart", err)
	}

	cart = Cart{
		UserID:    userID,
		Status:    StatusActive,
		ExpiresAt: time.Now().UTC().Add(s.config.Checkout.CartTTL),
	}
	if err := s.db.Create(&cart).Error; err != nil {
		return nil, apperrors.Infrastructure("create cart", err)
	}

	return &cart, nil
}

// GetSnapshot returns the user's active cart joined with live stock
func (s *Service) GetSnapshot(userID uint) (*Snapshot, error) {
	cart, err := s.GetOrCreateActiveCart(userID)
	if err != nil {
		return nil, err
	}
	return s.buildSnapshot(cart)
}

// AddLine adds a variant to the user's active cart, snapshotting the current
// sale price. Adding a variant already in the cart increases its quantity.
func (s *Service) AddLine(userID uint, req *AddLineRequest) (*Snapshot, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.Validation("quantity must be greater than 0")
	}

	var variant catalog.ProductVariant
	err := s.db.Where("id = ? AND is_active = ?", req.ProductVariantID, true).First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product variant")
		}
		return nil, apperrors.Infrastructure("retrieve product variant", err)
	}

	cart, err := s.GetOrCreateActiveCart(userID)
	if err != nil {
		return nil, err
	}

	var line CartLine
	err = s.db.Where("cart_id = ? AND product_variant_id = ?", cart.ID, req.ProductVariantID).First(&line).Error
	newQuantity := req.Quantity
	if err == nil {
		newQuantity += line.Quantity
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Infrastructure("retrieve cart line", err)
	}

	if err := s.checkStock(req.ProductVariantID, newQuantity); err != nil {
		return nil, err
	}

	if line.ID != 0 {
		if err := s.db.Model(&line).Update("quantity", newQuantity).Error; err != nil {
			return nil, apperrors.Infrastructure("update cart line", err)
		}
	} else {
		line = CartLine{
			CartID:           cart.ID,
			ProductVariantID: req.ProductVariantID,
			Quantity:         req.Quantity,
			UnitPrice:        variant.SalePrice,
		}
		if err := s.db.Create(&line).Error; err != nil {
			return nil, apperrors.Infrastructure("create cart line", err)
		}
	}

	s.touch(cart)
	return s.buildSnapshot(cart)
}

// UpdateLineQuantity changes the quantity of a line in the user's active cart
func (s *Service) UpdateLineQuantity(userID, lineID uint, req *UpdateQuantityRequest) (*Snapshot, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.Validation("quantity must be greater than 0")
	}

	cart, line, err := s.findOwnedLine(userID, lineID)
	if err != nil {
		return nil, err
	}

	if err := s.checkStock(line.ProductVariantID, req.Quantity); err != nil {
		return nil, err
	}

	if err := s.db.Model(line).Update("quantity", req.Quantity).Error; err != nil {
		return nil, apperrors.Infrastructure("update cart line", err)
	}

	s.touch(cart)
	return s.buildSnapshot(cart)
}

// RemoveLine deletes a line from the user's active cart
func (s *Service) RemoveLine(userID, lineID uint) (*Snapshot, error) {
	cart, line, err := s.findOwnedLine(userID, lineID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Delete(line).Error; err != nil {
		return nil, apperrors.Infrastructure("remove cart line", err)
	}

	s.touch(cart)
	return s.buildSnapshot(cart)
}

// Clear removes every line from the user's active cart
func (s *Service) Clear(userID uint) (*Snapshot, error) {
	cart, err := s.GetOrCreateActiveCart(userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Where("cart_id = ?", cart.ID).Delete(&CartLine{}).Error; err != nil {
		return nil, apperrors.Infrastructure("clear cart", err)
	}

	s.touch(cart)
	return s.buildSnapshot(cart)
}

// GetLines returns the raw lines of a cart
func (s *Service) GetLines(cartID uint) ([]CartLine, error) {
	var lines []CartLine
	if err := s.db.Where("cart_id = ?", cartID).Order("id").Find(&lines).Error; err != nil {
		return nil, apperrors.Infrastructure("retrieve cart lines", err)
	}
	return lines, nil
}

// Private helpers

func (s *Service) findOwnedLine(userID, lineID uint) (*Cart, *CartLine, error) {
	cart, err := s.GetOrCreateActiveCart(userID)
	if err != nil {
		return nil, nil, err
	}

	var line CartLine
	err = s.db.Where("id = ? AND cart_id = ?", lineID, cart.ID).First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.NotFound("cart line")
		}
		return nil, nil, apperrors.Infrastructure("retrieve cart line", err)
	}

	return cart, &line, nil
}

func (s *Service) checkStock(variantID uint, requested int) error {
	var record inventory.StockRecord
	err := s.db.Where("product_variant_id = ?", variantID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Conflict("product is out of stock")
		}
		return apperrors.Infrastructure("check stock", err)
	}

	if !record.CanFulfill(requested) {
		return apperrors.Conflict("insufficient stock, available: %d", record.QuantityAvailable)
	}

	return nil
}

func (s *Service) touch(cart *Cart) {
	s.db.Model(cart).Update("updated_at", time.Now().UTC())
}

func (s *Service) buildSnapshot(cart *Cart) (*Snapshot, error) {
	var views []LineView
	err := s.db.Table("cart_lines").
		Select(`cart_lines.id AS line_id,
			cart_lines.product_variant_id,
			product_variants.product_id,
			products.name,
			product_variants.sku,
			cart_lines.unit_price,
			cart_lines.quantity,
			COALESCE(stock_records.quantity_available, 0) AS stock_available`).
		Joins("JOIN product_variants ON product_variants.id = cart_lines.product_variant_id").
		Joins("JOIN products ON products.id = product_variants.product_id").
		Joins("LEFT JOIN stock_records ON stock_records.product_variant_id = cart_lines.product_variant_id").
		Where("cart_lines.cart_id = ?", cart.ID).
		Order("cart_lines.id").
		Scan(&views).Error
	if err != nil {
		return nil, apperrors.Infrastructure("load cart snapshot", err)
	}

	subtotal := decimal.Zero
	totalItems := 0
	for i := range views {
		views[i].Subtotal = views[i].UnitPrice.Mul(decimal.NewFromInt(int64(views[i].Quantity)))
		subtotal = subtotal.Add(views[i].Subtotal)
		totalItems += views[i].Quantity
	}

	return &Snapshot{
		CartID:     cart.ID,
		UserID:     cart.UserID,
		Status:     cart.Status,
		Lines:      views,
		TotalItems: totalItems,
		Subtotal:   subtotal,
		ExpiresAt:  cart.ExpiresAt,
		UpdatedAt:  cart.UpdatedAt,
	}, nil
}
