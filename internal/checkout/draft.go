package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/lumi-glow/storefront/internal/cart"
	"github.com/lumi-glow/storefront/pkg/enums"
	"github.com/lumi-glow/storefront/pkg/money"
	"github.com/lumi-glow/storefront/pkg/types"
)

// Draft collects the shopper's checkout selections before submission.
// Pointer fields are unset until the shopper (or a default) picks them.
type Draft struct {
	ShippingAddressID *int
	BillingAddressID  *int
	ShippingMethodID  *int
	PaymentMethod     enums.PaymentMethod
	Notes             string
	Coupon            *AppliedCoupon
}

// AppliedCoupon is a coupon the backend accepted for this draft.
type AppliedCoupon struct {
	Code           string
	Coupon         *types.Coupon
	DiscountAmount decimal.Decimal
}

// Totals are the client-side derived amounts shown before submission. The
// backend recomputes everything at order creation; these exist so the
// review screen never waits on the network.
type Totals struct {
	Subtotal       decimal.Decimal
	ShippingCost   decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// Format renders a totals field for display.
func (t Totals) Format(amount decimal.Decimal) string {
	return money.Format(amount)
}

// deriveTotals computes the review amounts. The discount never pushes the
// total below zero.
func deriveTotals(items []cart.LineItem, shippingCost decimal.Decimal, coupon *AppliedCoupon) Totals {
	subtotal := cart.Total(items)
	payable := subtotal.Add(shippingCost)

	discount := decimal.Zero
	if coupon != nil {
		discount = coupon.DiscountAmount
		if discount.GreaterThan(payable) {
			discount = payable
		}
	}

	return Totals{
		Subtotal:       subtotal,
		ShippingCost:   shippingCost,
		DiscountAmount: discount,
		Total:          payable.Sub(discount),
	}
}
