package commerce

import (
	"github.com/lumi-glow/storefront/pkg/enums"
	"github.com/lumi-glow/storefront/pkg/types"
)

// CheckoutItem is one order line as sent to the backend. Only the product
// identity and quantity cross the wire; pricing is re-derived server-side.
type CheckoutItem struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

// CreateCheckoutRequest is the order-creation payload.
type CreateCheckoutRequest struct {
	Items             []CheckoutItem      `json:"items"`
	BillingAddressID  int                 `json:"billingAddressId"`
	ShippingAddressID int                 `json:"shippingAddressId"`
	ShippingMethodID  int                 `json:"shippingMethodId"`
	PaymentMethod     enums.PaymentMethod `json:"paymentMethod"`
	CouponCode        *string             `json:"couponCode,omitempty"`
	Notes             *string             `json:"notes,omitempty"`
	IdempotencyKey    string              `json:"idempotencyKey,omitempty"`
}

// Checkout is the created order record. Totals are computed server-side and
// may legitimately differ from the client's derived totals.
type Checkout struct {
	ID              int                  `json:"id"`
	UserID          int                  `json:"userId"`
	Items           []CheckoutItem       `json:"items"`
	BillingAddress  types.Address        `json:"billingAddress"`
	ShippingAddress types.Address        `json:"shippingAddress"`
	ShippingMethod  types.ShippingMethod `json:"shippingMethod"`
	PaymentMethod   enums.PaymentMethod  `json:"paymentMethod"`
	Coupon          *types.Coupon        `json:"coupon,omitempty"`
	CouponCode      *string              `json:"couponCode,omitempty"`
	Notes           *string              `json:"notes,omitempty"`
	Subtotal        string               `json:"subtotal"`
	ShippingCost    string               `json:"shippingCost"`
	TaxAmount       string               `json:"taxAmount"`
	DiscountAmount  string               `json:"discountAmount"`
	TotalAmount     string               `json:"totalAmount"`
	Status          string               `json:"status"`
}

// CreateCheckoutResponse wraps the created record.
type CreateCheckoutResponse struct {
	Checkout Checkout `json:"checkout"`
	Message  string   `json:"message"`
}

// ValidateCouponResponse reports whether a code applies and at what value.
type ValidateCouponResponse struct {
	IsValid        bool          `json:"isValid"`
	Coupon         *types.Coupon `json:"coupon,omitempty"`
	DiscountAmount string        `json:"discountAmount"`
	Message        string        `json:"message"`
}

// PaymentIntent carries the gateway client secret for card capture.
type PaymentIntent struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// CreatePaymentIntentRequest asks the backend to open a gateway intent for
// an existing checkout. Amount is in the currency's minor unit.
type CreatePaymentIntentRequest struct {
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency,omitempty"`
	CheckoutID int    `json:"checkoutId,omitempty"`
}

// CreateAddressRequest creates or replaces an address-book entry.
type CreateAddressRequest struct {
	Type              enums.AddressType `json:"type"`
	FullName          string            `json:"fullName"`
	PhoneNumber       string            `json:"phoneNumber"`
	Email             string            `json:"email"`
	AddressLine1      string            `json:"addressLine1"`
	AddressLine2      *string           `json:"addressLine2,omitempty"`
	Region            string            `json:"region"`
	Landmark          *string           `json:"landmark,omitempty"`
	IsDefaultShipping bool              `json:"isDefaultShipping"`
	IsDefaultBilling  bool              `json:"isDefaultBilling"`
	Notes             *string           `json:"notes,omitempty"`
}

type addressResponse struct {
	Address types.Address `json:"address"`
	Message string        `json:"message"`
}

type addressListResponse struct {
	Addresses []types.Address `json:"addresses"`
	Total     int             `json:"total"`
}

type shippingMethodsResponse struct {
	ShippingMethods []types.ShippingMethod `json:"shippingMethods"`
}

// errorPayload is the backend's uniform failure body.
type errorPayload struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}
