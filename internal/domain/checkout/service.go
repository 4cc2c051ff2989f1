// internal/domain/checkout/service.go
package checkout

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/coupon"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service coordinates the checkout transaction: it turns the caller's active
// cart into a confirmed order, decrements stock, captures payment, converts
// the cart and redeems the coupon, all of it atomically. Any failure rolls
// the whole thing back and leaves cart, stock, coupon and order tables
// untouched.
type Service struct {
	db         *gorm.DB
	config     *config.Config
	carts      *cart.Service
	calculator *pricing.Calculator
	coupons    *coupon.Validator
	payments   *payment.Simulator
	inventory  *inventory.Service
	addresses  *user.AddressService
}

// NewService creates a new checkout service
func NewService(
	db *gorm.DB,
	cfg *config.Config,
	carts *cart.Service,
	calculator *pricing.Calculator,
	coupons *coupon.Validator,
	payments *payment.Simulator,
	inv *inventory.Service,
	addresses *user.AddressService,
) *Service {
	return &Service{
		db:         db,
		config:     cfg,
		carts:      carts,
		calculator: calculator,
		coupons:    coupons,
		payments:   payments,
		inventory:  inv,
		addresses:  addresses,
	}
}

// CheckoutRequest represents checkout submission data. The idempotency key is
// caller-supplied; resubmitting the same key returns the order created by the
// first attempt instead of charging twice.
type CheckoutRequest struct {
	AddressID       uint   `json:"address_id" binding:"required"`
	PaymentMethodID uint   `json:"payment_method_id" binding:"required"`
	CouponCode      string `json:"coupon_code"`
	Notes           string `json:"notes"`
	IdempotencyKey  string `json:"-"`
}

// Result is the outcome of a checkout
type Result struct {
	Order    *order.Order     `json:"order"`
	Payment  *payment.Payment `json:"payment"`
	Replayed bool             `json:"replayed,omitempty"`
}

// Quote prices the caller's active cart without mutating anything: no stock
// is reserved, no coupon use is recorded. Safe to call repeatedly while the
// customer is still deciding.
func (s *Service) Quote(userID uint, couponCode string) (*pricing.Quote, error) {
	activeCart, err := s.carts.GetOrCreateActiveCart(userID)
	if err != nil {
		return nil, err
	}

	lines, err := s.carts.GetLines(activeCart.ID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, apperrors.Validation("cart is empty")
	}

	var cpn *coupon.Coupon
	if couponCode != "" {
		subtotal := linesSubtotal(lines)
		cpn, err = s.coupons.Validate(couponCode, userID, subtotal)
		if err != nil {
			return nil, err
		}
	}

	quote := s.calculator.Compute(lines, cpn)
	return &quote, nil
}

// Checkout converts the caller's active cart into a confirmed, paid order.
//
// Preconditions run outside the transaction: the cart must be non-empty, the
// address must be an active address of the caller, the payment method must be
// active and the coupon (if any) must pass every eligibility rule. The writes
// then happen in a single transaction, with the stock decrement guarded
// conditionally so concurrent checkouts cannot oversell.
func (s *Service) Checkout(userID uint, req *CheckoutRequest) (*Result, error) {
	if req.IdempotencyKey != "" {
		if existing, err := s.findByIdempotencyKey(userID, req.IdempotencyKey); err != nil {
			return nil, err
		} else if existing != nil {
			return s.replay(existing)
		}
	}

	activeCart, err := s.carts.GetOrCreateActiveCart(userID)
	if err != nil {
		return nil, err
	}
	lines, err := s.carts.GetLines(activeCart.ID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, apperrors.Validation("cart is empty")
	}

	snapshot, err := s.carts.GetSnapshot(userID)
	if err != nil {
		return nil, err
	}
	views := make(map[uint]cart.LineView, len(snapshot.Lines))
	for _, v := range snapshot.Lines {
		views[v.LineID] = v
	}

	address, err := s.addresses.GetAddress(userID, req.AddressID)
	if err != nil {
		return nil, err
	}
	if !address.IsActive {
		return nil, apperrors.NotFound("address")
	}

	method, err := s.payments.GetActiveMethod(req.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	var cpn *coupon.Coupon
	if req.CouponCode != "" {
		cpn, err = s.coupons.Validate(req.CouponCode, userID, linesSubtotal(lines))
		if err != nil {
			return nil, err
		}
	}

	quote := s.calculator.Compute(lines, cpn)

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	orderNumber, err := s.nextOrderNumber(tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now().UTC()
	o := order.Order{
		OrderNumber:     orderNumber,
		UserID:          userID,
		CartID:          &activeCart.ID,
		Status:          order.StatusPendingConfirmation,
		PaymentStatus:   order.PaymentStatusPending,
		Subtotal:        quote.Subtotal,
		DiscountTotal:   quote.DiscountTotal,
		ShippingCost:    quote.ShippingCost,
		Total:           quote.Total,
		Currency:        quote.Currency,
		ShippingAddress: joinAddressLines(address),
		ShippingCity:    address.City,
		ShippingRegion:  address.Region,
		ShippingPostal:  address.PostalCode,
		ContactPhone:    address.Phone,
		Notes:           req.Notes,
	}
	if cpn != nil {
		o.CouponCode = cpn.Code
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		o.IdempotencyKey = &key
		o.IdemUserID = &userID
	}

	if err := tx.Create(&o).Error; err != nil {
		tx.Rollback()
		// A concurrent submission with the same key may have won the
		// unique index race; replay its order.
		if req.IdempotencyKey != "" {
			if existing, lookupErr := s.findByIdempotencyKey(userID, req.IdempotencyKey); lookupErr == nil && existing != nil {
				return s.replay(existing)
			}
		}
		return nil, apperrors.Infrastructure("create order", err)
	}

	for _, line := range lines {
		view, ok := views[line.ID]
		if !ok {
			tx.Rollback()
			return nil, apperrors.Infrastructure("resolve cart line", fmt.Errorf("cart line %d missing from snapshot", line.ID))
		}

		orderLine := order.OrderLine{
			OrderID:          o.ID,
			ProductVariantID: line.ProductVariantID,
			ProductName:      view.Name,
			SKU:              view.SKU,
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPrice,
			UnitDiscount:     decimal.Zero,
			FinalPrice:       line.UnitPrice,
			Subtotal:         line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
		}
		if err := tx.Create(&orderLine).Error; err != nil {
			tx.Rollback()
			return nil, apperrors.Infrastructure("create order line", err)
		}

		if err := s.inventory.Decrement(tx, line.ProductVariantID, line.Quantity, o.ID, view.Name); err != nil {
			tx.Rollback()
			return nil, err
		}

		err := tx.Model(&catalog.ProductVariant{}).
			Where("id = ?", line.ProductVariantID).
			Updates(map[string]interface{}{
				"sold_count":   gorm.Expr("sold_count + ?", line.Quantity),
				"last_sold_at": now,
			}).Error
		if err != nil {
			tx.Rollback()
			return nil, apperrors.Infrastructure("update sales counters", err)
		}
	}

	pay, err := s.payments.CreatePayment(tx, o.ID, method, quote.Total)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	err = tx.Model(&o).Updates(map[string]interface{}{
		"status":         order.StatusConfirmed,
		"payment_status": order.PaymentStatusCompleted,
		"confirmed_at":   now,
		"paid_at":        now,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, apperrors.Infrastructure("confirm order", err)
	}

	// Conversion is conditional on the cart still being active, so a cart
	// can only ever be converted once.
	result := tx.Model(&cart.Cart{}).
		Where("id = ? AND status = ?", activeCart.ID, cart.StatusActive).
		Update("status", cart.StatusConverted)
	if result.Error != nil {
		tx.Rollback()
		return nil, apperrors.Infrastructure("convert cart", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, apperrors.Conflict("cart was already checked out")
	}

	if cpn != nil {
		if err := s.coupons.Redeem(tx, cpn, userID, o.ID, quote.DiscountTotal); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.Infrastructure("commit checkout", err)
	}

	var created order.Order
	if err := s.db.Preload("Lines").First(&created, o.ID).Error; err != nil {
		return nil, apperrors.Infrastructure("reload order", err)
	}

	return &Result{Order: &created, Payment: pay}, nil
}

// Private helpers

// nextOrderNumber builds a date-prefixed sequential order number from the
// count of orders created today, inside the checkout transaction.
func (s *Service) nextOrderNumber(tx *gorm.DB) (string, error) {
	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var todays int64
	err := tx.Model(&order.Order{}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayStart.Add(24*time.Hour)).
		Count(&todays).Error
	if err != nil {
		return "", apperrors.Infrastructure("count today's orders", err)
	}

	return fmt.Sprintf("%s-%s-%04d", s.config.Checkout.OrderNumberPrefix, now.Format("20060102"), todays+1), nil
}

func (s *Service) findByIdempotencyKey(userID uint, key string) (*order.Order, error) {
	var o order.Order
	err := s.db.Preload("Lines").
		Where("idem_user_id = ? AND idempotency_key = ?", userID, key).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Infrastructure("look up idempotency key", err)
	}
	return &o, nil
}

func (s *Service) replay(o *order.Order) (*Result, error) {
	var pay payment.Payment
	err := s.db.Where("order_id = ?", o.ID).First(&pay).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Infrastructure("retrieve payment", err)
	}

	res := &Result{Order: o, Replayed: true}
	if err == nil {
		res.Payment = &pay
	}
	return res, nil
}

func linesSubtotal(lines []cart.CartLine) decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return subtotal
}

func joinAddressLines(a *user.Address) string {
	if a.AddressLine2 != "" {
		return a.AddressLine1 + ", " + a.AddressLine2
	}
	return a.AddressLine1
}
