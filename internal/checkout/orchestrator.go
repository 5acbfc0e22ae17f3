// Package checkout drives a checkout session from an authenticated cart to
// a confirmed order. The orchestrator owns the session state machine;
// every transition happens here and nowhere else.
package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/lumi-glow/storefront/internal/address"
	"github.com/lumi-glow/storefront/internal/cart"
	"github.com/lumi-glow/storefront/internal/commerce"
	"github.com/lumi-glow/storefront/internal/payments"
	"github.com/lumi-glow/storefront/internal/shipping"
	"github.com/lumi-glow/storefront/pkg/enums"
	"github.com/lumi-glow/storefront/pkg/errors"
	"github.com/lumi-glow/storefront/pkg/logger"
	"github.com/lumi-glow/storefront/pkg/money"
	"github.com/lumi-glow/storefront/pkg/types"
)

// cartStore is the slice of the cart this package needs.
type cartStore interface {
	Items(ctx context.Context) []cart.LineItem
	Clear(ctx context.Context) []cart.LineItem
}

// sessions exposes who is signed in and session-invalidation events.
type sessions interface {
	Current(ctx context.Context) *types.AuthSnapshot
	OnInvalidated(fn func()) func()
}

// addressBook is the slice of the address service this package needs.
type addressBook interface {
	List(ctx context.Context) ([]types.Address, error)
	Create(ctx context.Context, input address.FormInput) (*types.Address, error)
}

// shippingCatalog is the slice of the shipping service this package needs.
type shippingCatalog interface {
	Methods(ctx context.Context) []types.ShippingMethod
	MethodByID(ctx context.Context, id int) (*types.ShippingMethod, error)
	Cost(method types.ShippingMethod) decimal.Decimal
}

// orderAPI is the slice of the commerce client this package needs.
type orderAPI interface {
	CreateCheckout(ctx context.Context, req commerce.CreateCheckoutRequest) (*commerce.Checkout, error)
	ValidateCoupon(ctx context.Context, couponCode string) (*commerce.ValidateCouponResponse, error)
	CreatePaymentIntent(ctx context.Context, req commerce.CreatePaymentIntentRequest) (*commerce.PaymentIntent, error)
	ConfirmCheckout(ctx context.Context, checkoutID int) error
	CancelCheckout(ctx context.Context, checkoutID int) error
}

// Result is what a successful submission hands back to the caller.
type Result struct {
	Checkout *commerce.Checkout
	Captured bool
}

// Orchestrator runs one checkout session. Safe for concurrent use; only
// one submission may be in flight at a time.
type Orchestrator struct {
	mu             sync.Mutex
	state          enums.CheckoutState
	draft          Draft
	checkout       *commerce.Checkout
	intent         *commerce.PaymentIntent
	idempotencyKey string
	inFlight       bool

	cart      cartStore
	sessions  sessions
	addresses addressBook
	shipping  shippingCatalog
	api       orderAPI
	capturer  payments.Capturer
	log       *logger.Logger

	unsubscribe func()
}

// NewOrchestrator wires the checkout session around its collaborators.
// The session starts unauthenticated until Begin is called.
func NewOrchestrator(
	cartStore cartStore,
	sessions sessions,
	addresses addressBook,
	shipping shippingCatalog,
	api orderAPI,
	capturer payments.Capturer,
	log *logger.Logger,
) (*Orchestrator, error) {
	if cartStore == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("identity service required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address service required")
	}
	if shipping == nil {
		return nil, fmt.Errorf("shipping service required")
	}
	if api == nil {
		return nil, fmt.Errorf("commerce client required")
	}
	if capturer == nil {
		return nil, fmt.Errorf("payment capturer required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	o := &Orchestrator{
		state:     enums.CheckoutStateUnauthenticated,
		cart:      cartStore,
		sessions:  sessions,
		addresses: addresses,
		shipping:  shipping,
		api:       api,
		capturer:  capturer,
		log:       log,
	}
	o.unsubscribe = sessions.OnInvalidated(o.handleSessionInvalidated)
	return o, nil
}

// Close detaches the orchestrator from session events.
func (o *Orchestrator) Close() {
	if o.unsubscribe != nil {
		o.unsubscribe()
	}
}

// State returns the session's current lifecycle state.
func (o *Orchestrator) State() enums.CheckoutState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Draft returns a copy of the current selections.
func (o *Orchestrator) Draft() Draft {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.draft
}

// Begin starts (or restarts) a checkout session: it gates on a signed-in
// shopper and a non-empty cart, then preselects defaults. Address-book and
// shipping-catalog fetch failures degrade to an empty preselection rather
// than failing the session.
func (o *Orchestrator) Begin(ctx context.Context) (enums.CheckoutState, error) {
	snap := o.sessions.Current(ctx)
	if snap == nil {
		o.setState(ctx, enums.CheckoutStateUnauthenticated)
		return enums.CheckoutStateUnauthenticated, errors.New(errors.CodeUnauthorized, "please log in to check out")
	}

	items := o.cart.Items(ctx)
	if len(items) == 0 {
		o.setState(ctx, enums.CheckoutStateAborted)
		return enums.CheckoutStateAborted, errors.New(errors.CodeValidation, "your cart is empty")
	}

	o.setState(ctx, enums.CheckoutStateInitializing)

	draft := Draft{PaymentMethod: enums.PaymentMethodCash}

	var degraded error
	book, err := o.addresses.List(ctx)
	if err != nil {
		degraded = multierr.Append(degraded, fmt.Errorf("load address book: %w", err))
	} else if preselected := address.DefaultShipping(book); preselected != nil {
		draft.ShippingAddressID = intPtr(preselected.ID)
		draft.BillingAddressID = intPtr(preselected.ID)
	}

	if method := shipping.DefaultMethod(o.shipping.Methods(ctx)); method != nil {
		draft.ShippingMethodID = intPtr(method.ID)
	} else {
		degraded = multierr.Append(degraded, fmt.Errorf("no shipping method available"))
	}

	if degraded != nil {
		o.log.Warn(ctx, "checkout started with degraded defaults", degraded)
	}

	o.mu.Lock()
	o.draft = draft
	o.checkout = nil
	o.intent = nil
	o.idempotencyKey = uuid.NewString()
	o.state = enums.CheckoutStateReady
	o.mu.Unlock()

	ctx = o.log.WithUserID(ctx, fmt.Sprint(snap.User.ID))
	o.log.Info(ctx, "checkout session ready")
	return enums.CheckoutStateReady, nil
}

// SetShippingAddress selects the delivery address.
func (o *Orchestrator) SetShippingAddress(id int) error {
	if id <= 0 {
		return errors.New(errors.CodeValidation, "address id is required")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft.ShippingAddressID = intPtr(id)
	if o.draft.BillingAddressID == nil {
		o.draft.BillingAddressID = intPtr(id)
	}
	return nil
}

// SetBillingAddress selects the billing address.
func (o *Orchestrator) SetBillingAddress(id int) error {
	if id <= 0 {
		return errors.New(errors.CodeValidation, "address id is required")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft.BillingAddressID = intPtr(id)
	return nil
}

// SetShippingMethod selects the delivery option, validated against the
// current catalog.
func (o *Orchestrator) SetShippingMethod(ctx context.Context, id int) error {
	if _, err := o.shipping.MethodByID(ctx, id); err != nil {
		return errors.Wrap(errors.CodeValidation, err, "unknown shipping method")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft.ShippingMethodID = intPtr(id)
	return nil
}

// SetPaymentMethod selects how the order settles.
func (o *Orchestrator) SetPaymentMethod(method enums.PaymentMethod) error {
	if !method.IsValid() {
		return errors.New(errors.CodeValidation, "unknown payment method").
			WithFields(map[string]string{"paymentMethod": "must be one of cash, card, bkash, nagad, rocket"})
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft.PaymentMethod = method
	return nil
}

// SetNotes attaches delivery notes to the order.
func (o *Orchestrator) SetNotes(notes string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft.Notes = notes
}

// AddAddress creates an address-book entry mid-checkout and selects it as
// the delivery address.
func (o *Orchestrator) AddAddress(ctx context.Context, input address.FormInput) (*types.Address, error) {
	created, err := o.addresses.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.draft.ShippingAddressID = intPtr(created.ID)
	if o.draft.BillingAddressID == nil || input.IsDefaultBilling {
		o.draft.BillingAddressID = intPtr(created.ID)
	}
	o.mu.Unlock()
	return created, nil
}

// ApplyCoupon validates a code against the backend and attaches it to the
// draft. A rejected code leaves the draft and session state untouched.
func (o *Orchestrator) ApplyCoupon(ctx context.Context, code string) error {
	if code == "" {
		return errors.New(errors.CodeValidation, "coupon code is required")
	}

	resp, err := o.api.ValidateCoupon(ctx, code)
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "could not validate coupon")
	}
	if !resp.IsValid {
		message := resp.Message
		if message == "" {
			message = "this coupon cannot be applied"
		}
		return errors.New(errors.CodeValidation, message).
			WithFields(map[string]string{"couponCode": message})
	}

	o.mu.Lock()
	o.draft.Coupon = &AppliedCoupon{
		Code:           code,
		Coupon:         resp.Coupon,
		DiscountAmount: money.ParsePrice(resp.DiscountAmount),
	}
	o.mu.Unlock()

	o.log.Info(ctx, "coupon applied")
	return nil
}

// RemoveCoupon detaches the coupon from the draft.
func (o *Orchestrator) RemoveCoupon(ctx context.Context) {
	o.mu.Lock()
	o.draft.Coupon = nil
	o.mu.Unlock()
}

// Totals derives the review-screen amounts from the current cart and
// selections.
func (o *Orchestrator) Totals(ctx context.Context) Totals {
	items := o.cart.Items(ctx)

	o.mu.Lock()
	methodID := o.draft.ShippingMethodID
	coupon := o.draft.Coupon
	o.mu.Unlock()

	shippingCost := decimal.Zero
	if methodID != nil {
		if method, err := o.shipping.MethodByID(ctx, *methodID); err == nil {
			shippingCost = o.shipping.Cost(*method)
		}
	}
	return deriveTotals(items, shippingCost, coupon)
}

// PlaceOrder submits the order. Validation problems surface before any
// remote call; a failed submission keeps the cart and draft intact so the
// shopper can retry.
func (o *Orchestrator) PlaceOrder(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return nil, errors.New(errors.CodeConflict, "order submission already in progress")
	}
	if o.state != enums.CheckoutStateReady && o.state != enums.CheckoutStateFailed {
		state := o.state
		o.mu.Unlock()
		return nil, errors.New(errors.CodeConflict, fmt.Sprintf("checkout is %s, not ready for submission", state))
	}
	draft := o.draft
	key := o.idempotencyKey
	o.inFlight = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	o.setState(ctx, enums.CheckoutStateValidating)
	items := o.cart.Items(ctx)
	if err := validateSubmission(draft, items); err != nil {
		o.setState(ctx, enums.CheckoutStateReady)
		return nil, err
	}

	o.setState(ctx, enums.CheckoutStateSubmitting)

	billingID := *draft.ShippingAddressID
	if draft.BillingAddressID != nil {
		billingID = *draft.BillingAddressID
	}

	req := commerce.CreateCheckoutRequest{
		Items:             toCheckoutItems(items),
		BillingAddressID:  billingID,
		ShippingAddressID: *draft.ShippingAddressID,
		ShippingMethodID:  *draft.ShippingMethodID,
		PaymentMethod:     draft.PaymentMethod,
		IdempotencyKey:    key,
	}
	if draft.Coupon != nil {
		req.CouponCode = &draft.Coupon.Code
	}
	if draft.Notes != "" {
		req.Notes = &draft.Notes
	}

	created, err := o.api.CreateCheckout(ctx, req)
	if err != nil {
		o.setState(ctx, enums.CheckoutStateFailed)
		o.log.Error(ctx, "order creation failed", err)
		return nil, errors.Wrap(errors.CodeDependency, err, "could not place your order")
	}

	o.mu.Lock()
	o.checkout = created
	o.mu.Unlock()

	if !draft.PaymentMethod.RequiresCapture() {
		o.confirm(ctx)
		return &Result{Checkout: created}, nil
	}

	intent, err := o.openIntent(ctx, created)
	if err != nil {
		o.setState(ctx, enums.CheckoutStateFailed)
		return nil, err
	}

	o.setState(ctx, enums.CheckoutStateAwaitingPayment)

	if err := o.capturer.Capture(ctx, intent.ClientSecret); err != nil {
		o.setState(ctx, enums.CheckoutStateFailed)
		o.log.Error(ctx, "payment capture failed", err)
		return nil, err
	}

	o.confirmCaptured(ctx, created)
	return &Result{Checkout: created, Captured: true}, nil
}

// RetryPayment re-runs card capture against the already-created order.
// The order is never re-submitted.
func (o *Orchestrator) RetryPayment(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return nil, errors.New(errors.CodeConflict, "order submission already in progress")
	}
	if o.state != enums.CheckoutStateFailed && o.state != enums.CheckoutStateAwaitingPayment {
		state := o.state
		o.mu.Unlock()
		return nil, errors.New(errors.CodeConflict, fmt.Sprintf("checkout is %s, nothing to retry", state))
	}
	created := o.checkout
	intent := o.intent
	o.inFlight = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	if created == nil || intent == nil {
		return nil, errors.New(errors.CodeConflict, "no order is awaiting payment")
	}

	o.setState(ctx, enums.CheckoutStateAwaitingPayment)
	if err := o.capturer.Capture(ctx, intent.ClientSecret); err != nil {
		o.setState(ctx, enums.CheckoutStateFailed)
		o.log.Error(ctx, "payment capture failed", err)
		return nil, err
	}

	o.confirmCaptured(ctx, created)
	return &Result{Checkout: created, Captured: true}, nil
}

// Abandon ends the session. A created-but-unpaid order is cancelled
// server-side on a best-effort basis.
func (o *Orchestrator) Abandon(ctx context.Context) {
	o.mu.Lock()
	created := o.checkout
	state := o.state
	o.mu.Unlock()

	if created != nil && state != enums.CheckoutStateConfirmed {
		if err := o.api.CancelCheckout(ctx, created.ID); err != nil {
			o.log.Warn(ctx, "cancel abandoned checkout", err)
		}
	}
	o.setState(ctx, enums.CheckoutStateAborted)
}

func (o *Orchestrator) openIntent(ctx context.Context, created *commerce.Checkout) (*commerce.PaymentIntent, error) {
	amount := money.ParsePrice(created.TotalAmount).Round(2).Mul(decimal.NewFromInt(100)).IntPart()
	intent, err := o.api.CreatePaymentIntent(ctx, commerce.CreatePaymentIntentRequest{
		Amount:     amount,
		CheckoutID: created.ID,
	})
	if err != nil {
		o.log.Error(ctx, "open payment intent failed", err)
		return nil, errors.Wrap(errors.CodePayment, err, "could not start the payment")
	}

	o.mu.Lock()
	o.intent = intent
	o.mu.Unlock()
	return intent, nil
}

func (o *Orchestrator) confirm(ctx context.Context) {
	o.setState(ctx, enums.CheckoutStateConfirmed)
	o.cart.Clear(ctx)
	o.log.Info(ctx, "order confirmed")
}

// confirmCaptured reports the capture to the backend before confirming
// locally. The order is already paid at this point, so a failed report is
// logged and the session still confirms.
func (o *Orchestrator) confirmCaptured(ctx context.Context, created *commerce.Checkout) {
	if err := o.api.ConfirmCheckout(ctx, created.ID); err != nil {
		o.log.Warn(ctx, "report captured payment", err)
	}
	o.confirm(ctx)
}

func (o *Orchestrator) setState(ctx context.Context, state enums.CheckoutState) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

// handleSessionInvalidated reacts to a backend 401: an unconfirmed session
// drops back to unauthenticated so the shopper is sent to log in again.
func (o *Orchestrator) handleSessionInvalidated() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == enums.CheckoutStateConfirmed {
		return
	}
	o.state = enums.CheckoutStateUnauthenticated
}

func validateSubmission(draft Draft, items []cart.LineItem) error {
	fields := map[string]string{}
	if len(items) == 0 {
		fields["items"] = "your cart is empty"
	}
	if draft.ShippingAddressID == nil {
		fields["shippingAddress"] = "select a delivery address"
	}
	if draft.ShippingMethodID == nil {
		fields["shippingMethod"] = "select a delivery option"
	}
	if !draft.PaymentMethod.IsValid() {
		fields["paymentMethod"] = "select a payment method"
	}
	if len(fields) > 0 {
		return errors.New(errors.CodeValidation, "checkout is incomplete").WithFields(fields)
	}
	return nil
}

func toCheckoutItems(items []cart.LineItem) []commerce.CheckoutItem {
	out := make([]commerce.CheckoutItem, 0, len(items))
	for _, item := range items {
		out = append(out, commerce.CheckoutItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return out
}

func intPtr(v int) *int { return &v }
