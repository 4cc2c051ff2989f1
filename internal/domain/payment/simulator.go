// internal/domain/payment/simulator.go
package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// simulatedProvider marks payments captured without a real gateway.
const simulatedProvider = "SIMULATED"

// Simulator records payment captures. This is the seam where a real gateway
// would be integrated; here the capture succeeds synchronously and the record
// is created already completed.
type Simulator struct {
	db     *gorm.DB
	config *config.Config
}

// NewSimulator creates a new payment simulator
func NewSimulator(db *gorm.DB, cfg *config.Config) *Simulator {
	return &Simulator{
		db:     db,
		config: cfg,
	}
}

// GetActiveMethod retrieves an active payment method by id
func (s *Simulator) GetActiveMethod(methodID uint) (*Method, error) {
	var method Method
	err := s.db.Where("id = ? AND is_active = ?", methodID, true).First(&method).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("payment method")
		}
		return nil, apperrors.Infrastructure("retrieve payment method", err)
	}
	return &method, nil
}

// ListActiveMethods lists active payment methods in display order
func (s *Simulator) ListActiveMethods() ([]Method, error) {
	var methods []Method
	err := s.db.Where("is_active = ?", true).Order("display_order ASC").Find(&methods).Error
	if err != nil {
		return nil, apperrors.Infrastructure("retrieve payment methods", err)
	}
	return methods, nil
}

// CreatePayment computes the method fee and net amount and persists the
// capture record inside the caller's transaction.
func (s *Simulator) CreatePayment(tx *gorm.DB, orderID uint, method *Method, amount decimal.Decimal) (*Payment, error) {
	fee := method.CalculateFee(amount)
	now := time.Now().UTC()

	p := Payment{
		OrderID:     orderID,
		MethodID:    method.ID,
		TxReference: fmt.Sprintf("TXN-%s-%06d", now.Format("20060102"), orderID),
		Status:      StatusCompleted,
		Amount:      amount,
		Fee:         fee,
		NetAmount:   amount.Sub(fee),
		Currency:    s.config.Checkout.Currency,
		Provider:    simulatedProvider,
		CapturedAt:  &now,
	}

	if err := tx.Create(&p).Error; err != nil {
		return nil, apperrors.Infrastructure("create payment", err)
	}

	return &p, nil
}
