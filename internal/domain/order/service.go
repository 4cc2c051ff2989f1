// internal/domain/order/service.go
package order

import (
	"errors"
	"time"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles order business logic
type Service struct {
	db        *gorm.DB
	config    *config.Config
	inventory *inventory.Service
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, inv *inventory.Service) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		inventory: inv,
	}
}

// ListResult is a paginated page of orders
type ListResult struct {
	Orders     []Order `json:"orders"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"total_pages"`
}

// UpdateStatusRequest represents an administrative status change
type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required"`
}

// GetOrder retrieves one of the user's orders with its lines. Lookups are
// scoped to the owner so another user's order id reads as not found.
func (s *Service) GetOrder(userID, orderID uint) (*Order, error) {
	var o Order
	err := s.db.Preload("Lines").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order")
		}
		return nil, apperrors.Infrastructure("retrieve order", err)
	}
	return &o, nil
}

// GetByID retrieves any order with its lines, without owner scoping. Admin use.
func (s *Service) GetByID(orderID uint) (*Order, error) {
	var o Order
	err := s.db.Preload("Lines").First(&o, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order")
		}
		return nil, apperrors.Infrastructure("retrieve order", err)
	}
	return &o, nil
}

// ListOrders lists the user's orders newest first, paginated
func (s *Service) ListOrders(userID uint, page, limit int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	var total int64
	if err := s.db.Model(&Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, apperrors.Infrastructure("count orders", err)
	}

	var orders []Order
	err := s.db.Preload("Lines").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, apperrors.Infrastructure("retrieve orders", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ListResult{
		Orders:     orders,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// UpdateStatus moves an order along the status state machine. Invalid
// transitions are rejected as conflicts. Cancellation goes through Cancel so
// the restock happens.
func (s *Service) UpdateStatus(orderID uint, req *UpdateStatusRequest, actorID uint) (*Order, error) {
	if req.Status == StatusCancelled {
		return s.Cancel(orderID, actorID)
	}

	var o Order
	err := s.db.First(&o, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order")
		}
		return nil, apperrors.Infrastructure("retrieve order", err)
	}

	if !o.Status.CanTransitionTo(req.Status) {
		return nil, apperrors.Conflict("order cannot move from '%s' to '%s'", o.Status, req.Status)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"status": req.Status}
	switch req.Status {
	case StatusConfirmed:
		updates["confirmed_at"] = now
	case StatusShipped:
		updates["shipped_at"] = now
	case StatusDelivered:
		updates["delivered_at"] = now
	case StatusRefunded:
		updates["payment_status"] = PaymentStatusRefunded
	}

	if err := s.db.Model(&o).Updates(updates).Error; err != nil {
		return nil, apperrors.Infrastructure("update order status", err)
	}

	return s.GetByID(orderID)
}

// Cancel cancels an order and returns its line quantities to stock in one
// transaction. Orders that already shipped cannot be cancelled.
func (s *Service) Cancel(orderID uint, actorID uint) (*Order, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var o Order
	err := tx.Preload("Lines").First(&o, orderID).Error
	if err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order")
		}
		return nil, apperrors.Infrastructure("retrieve order", err)
	}

	if !o.CanBeCancelled() {
		tx.Rollback()
		return nil, apperrors.Conflict("order in status '%s' cannot be cancelled", o.Status)
	}

	for _, line := range o.Lines {
		if err := s.inventory.Restock(tx, line.ProductVariantID, line.Quantity, o.ID, &actorID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":       StatusCancelled,
		"cancelled_at": now,
	}
	// A captured payment stays completed until the refund flow runs; an
	// uncaptured one is cancelled along with the order.
	if o.PaymentStatus == PaymentStatusPending || o.PaymentStatus == PaymentStatusProcessing {
		updates["payment_status"] = PaymentStatusCancelled
	}
	if err := tx.Model(&o).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, apperrors.Infrastructure("cancel order", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.Infrastructure("commit order cancellation", err)
	}

	return s.GetByID(orderID)
}

// CancelOwn cancels an order on behalf of its owner
func (s *Service) CancelOwn(userID, orderID uint) (*Order, error) {
	var o Order
	err := s.db.Select("id").Where("id = ? AND user_id = ?", orderID, userID).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order")
		}
		return nil, apperrors.Infrastructure("retrieve order", err)
	}
	return s.Cancel(orderID, userID)
}
