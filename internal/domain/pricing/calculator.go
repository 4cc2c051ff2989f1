// internal/domain/pricing/calculator.go
package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/coupon"
)

// Quote is a pricing breakdown for a set of cart lines
type Quote struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	ItemCount     int             `json:"item_count"`
}

// Calculator computes order totals from cart lines and an optional validated
// coupon. It touches no storage: per-product promotions are already baked
// into the snapshotted unit prices, so only the coupon discount is applied
// here.
type Calculator struct {
	freeShippingThreshold decimal.Decimal
	flatShippingRate      decimal.Decimal
	currency              string
}

// NewCalculator creates a calculator from the checkout configuration
func NewCalculator(cfg *config.Config) *Calculator {
	return &Calculator{
		freeShippingThreshold: cfg.Checkout.FreeShippingThreshold,
		flatShippingRate:      cfg.Checkout.FlatShippingRate,
		currency:              cfg.Checkout.Currency,
	}
}

// Compute builds a quote: subtotal from the snapshotted unit prices, the
// coupon discount capped at the subtotal, shipping zeroed by a free-shipping
// coupon or by reaching the threshold, and the total floored at 0.
func (c *Calculator) Compute(lines []cart.CartLine, cpn *coupon.Coupon) Quote {
	subtotal := decimal.Zero
	itemCount := 0
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		itemCount += line.Quantity
	}

	discount := decimal.Zero
	if cpn != nil {
		discount = cpn.Discount(subtotal)
	}

	shipping := c.shippingCost(subtotal, cpn)

	total := subtotal.Sub(discount).Add(shipping)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Quote{
		Subtotal:      subtotal,
		DiscountTotal: discount,
		ShippingCost:  shipping,
		Total:         total,
		Currency:      c.currency,
		ItemCount:     itemCount,
	}
}

func (c *Calculator) shippingCost(subtotal decimal.Decimal, cpn *coupon.Coupon) decimal.Decimal {
	if cpn != nil && cpn.IsFreeShipping() {
		return decimal.Zero
	}
	if subtotal.GreaterThanOrEqual(c.freeShippingThreshold) {
		return decimal.Zero
	}
	return c.flatShippingRate
}
