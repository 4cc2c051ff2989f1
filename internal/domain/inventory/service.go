// internal/domain/inventory/service.go
package inventory

import (
	"errors"
	"time"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles inventory business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// AdjustStockRequest represents an administrative stock correction
type AdjustStockRequest struct {
	ProductVariantID uint   `json:"product_variant_id" binding:"required"`
	NewQuantity      int    `json:"new_quantity" binding:"min=0"`
	Reason           string `json:"reason" binding:"required"`
}

// GetByVariant retrieves the stock record for a product variant
func (s *Service) GetByVariant(variantID uint) (*StockRecord, error) {
	var record StockRecord
	err := s.db.Where("product_variant_id = ?", variantID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("stock record")
		}
		return nil, apperrors.Infrastructure("retrieve stock record", err)
	}
	return &record, nil
}

// Decrement subtracts quantity sold from a variant's stock inside the given
// transaction. The subtraction is a single conditional update guarded by
// "quantity_available >= qty"; a zero affected-row count means the stock
// cannot cover the order and the whole checkout must roll back. Reading the
// quantity first and updating second would allow two concurrent checkouts to
// both pass the read and oversell.
func (s *Service) Decrement(tx *gorm.DB, variantID uint, quantity int, orderID uint, productName string) error {
	if quantity <= 0 {
		return apperrors.Validation("quantity must be greater than 0")
	}

	now := time.Now().UTC()
	result := tx.Model(&StockRecord{}).
		Where("product_variant_id = ? AND quantity_available >= ?", variantID, quantity).
		Updates(map[string]interface{}{
			"quantity_available": gorm.Expr("quantity_available - ?", quantity),
			"last_outbound_at":   now,
		})
	if result.Error != nil {
		return apperrors.Infrastructure("decrement stock", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Conflict("insufficient stock for '%s'", productName)
	}

	// Ledger the movement with the post-update quantity read inside the
	// same transaction.
	var record StockRecord
	if err := tx.Where("product_variant_id = ?", variantID).First(&record).Error; err != nil {
		return apperrors.Infrastructure("reload stock record", err)
	}

	movement := StockMovement{
		StockRecordID:    record.ID,
		ProductVariantID: variantID,
		MovementType:     MovementTypeOutbound,
		Reason:           ReasonSale,
		Delta:            -quantity,
		QuantityBefore:   record.QuantityAvailable + quantity,
		QuantityAfter:    record.QuantityAvailable,
		OrderID:          &orderID,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return apperrors.Infrastructure("record stock movement", err)
	}

	return nil
}

// Restock returns quantity to a variant's stock inside the given transaction,
// used when a confirmed order is cancelled.
func (s *Service) Restock(tx *gorm.DB, variantID uint, quantity int, orderID uint, actorID *uint) error {
	if quantity <= 0 {
		return apperrors.Validation("quantity must be greater than 0")
	}

	now := time.Now().UTC()
	result := tx.Model(&StockRecord{}).
		Where("product_variant_id = ?", variantID).
		Updates(map[string]interface{}{
			"quantity_available": gorm.Expr("quantity_available + ?", quantity),
			"last_inbound_at":    now,
		})
	if result.Error != nil {
		return apperrors.Infrastructure("restock", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("stock record")
	}

	var record StockRecord
	if err := tx.Where("product_variant_id = ?", variantID).First(&record).Error; err != nil {
		return apperrors.Infrastructure("reload stock record", err)
	}

	movement := StockMovement{
		StockRecordID:    record.ID,
		ProductVariantID: variantID,
		MovementType:     MovementTypeInbound,
		Reason:           ReasonCancelation,
		Delta:            quantity,
		QuantityBefore:   record.QuantityAvailable - quantity,
		QuantityAfter:    record.QuantityAvailable,
		OrderID:          &orderID,
		ActorID:          actorID,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return apperrors.Infrastructure("record stock movement", err)
	}

	return nil
}

// Adjust sets a variant's stock to an absolute quantity as an administrative
// correction. The change is ledgered like every other movement.
func (s *Service) Adjust(req *AdjustStockRequest, actorID uint) (*StockRecord, error) {
	if req.NewQuantity < 0 {
		return nil, apperrors.Validation("quantity cannot be negative")
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var record StockRecord
	err := tx.Where("product_variant_id = ?", req.ProductVariantID).First(&record).Error
	if err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("stock record")
		}
		return nil, apperrors.Infrastructure("retrieve stock record", err)
	}

	before := record.QuantityAvailable
	if err := tx.Model(&record).Update("quantity_available", req.NewQuantity).Error; err != nil {
		tx.Rollback()
		return nil, apperrors.Infrastructure("adjust stock", err)
	}

	movement := StockMovement{
		StockRecordID:    record.ID,
		ProductVariantID: req.ProductVariantID,
		MovementType:     MovementTypeAdjustment,
		Reason:           ReasonAdjustment,
		Delta:            req.NewQuantity - before,
		QuantityBefore:   before,
		QuantityAfter:    req.NewQuantity,
		ActorID:          &actorID,
		Notes:            req.Reason,
	}
	if err := tx.Create(&movement).Error; err != nil {
		tx.Rollback()
		return nil, apperrors.Infrastructure("record stock movement", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.Infrastructure("commit stock adjustment", err)
	}

	record.QuantityAvailable = req.NewQuantity
	return &record, nil
}

// GetMovements lists the movement ledger for a variant, newest first
func (s *Service) GetMovements(variantID uint, limit int) ([]StockMovement, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var movements []StockMovement
	err := s.db.
		Where("product_variant_id = ?", variantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, apperrors.Infrastructure("retrieve stock movements", err)
	}

	return movements, nil
}

// ListLowStock lists records at or below their minimum quantity
func (s *Service) ListLowStock() ([]StockRecord, error) {
	var records []StockRecord
	err := s.db.
		Where("quantity_available <= quantity_minimum").
		Order("quantity_available ASC").
		Find(&records).Error
	if err != nil {
		return nil, apperrors.Infrastructure("retrieve low stock records", err)
	}

	return records, nil
}
