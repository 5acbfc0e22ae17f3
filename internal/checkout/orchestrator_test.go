package checkout

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/lumi-glow/storefront/internal/address"
	"github.com/lumi-glow/storefront/internal/cart"
	"github.com/lumi-glow/storefront/internal/commerce"
	"github.com/lumi-glow/storefront/pkg/enums"
	"github.com/lumi-glow/storefront/pkg/errors"
	"github.com/lumi-glow/storefront/pkg/logger"
	"github.com/lumi-glow/storefront/pkg/money"
	"github.com/lumi-glow/storefront/pkg/types"
)

type fakeCart struct {
	items   []cart.LineItem
	cleared bool
}

func (f *fakeCart) Items(ctx context.Context) []cart.LineItem {
	out := make([]cart.LineItem, len(f.items))
	copy(out, f.items)
	return out
}

func (f *fakeCart) Clear(ctx context.Context) []cart.LineItem {
	f.items = nil
	f.cleared = true
	return nil
}

type fakeSessions struct {
	snap      *types.AuthSnapshot
	listeners []func()
}

func (f *fakeSessions) Current(ctx context.Context) *types.AuthSnapshot { return f.snap }

func (f *fakeSessions) OnInvalidated(fn func()) func() {
	f.listeners = append(f.listeners, fn)
	return func() {}
}

func (f *fakeSessions) invalidate() {
	for _, fn := range f.listeners {
		fn()
	}
}

type fakeAddressBook struct {
	addresses []types.Address
	listErr   error
	nextID    int
}

func (f *fakeAddressBook) List(ctx context.Context) ([]types.Address, error) {
	return f.addresses, f.listErr
}

func (f *fakeAddressBook) Create(ctx context.Context, input address.FormInput) (*types.Address, error) {
	f.nextID++
	created := types.Address{ID: 100 + f.nextID, FullName: input.FullName}
	f.addresses = append(f.addresses, created)
	return &created, nil
}

type fakeShipping struct {
	methods []types.ShippingMethod
}

func (f *fakeShipping) Methods(ctx context.Context) []types.ShippingMethod { return f.methods }

func (f *fakeShipping) MethodByID(ctx context.Context, id int) (*types.ShippingMethod, error) {
	for _, m := range f.methods {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("shipping method %d not found", id)
}

func (f *fakeShipping) Cost(method types.ShippingMethod) decimal.Decimal {
	return money.ParsePrice(method.Price)
}

type fakeAPI struct {
	totalAmount  string
	createErr    error
	createCalls  []commerce.CreateCheckoutRequest
	validateResp *commerce.ValidateCouponResponse
	validateErr  error
	intentErr    error
	intentCalls  []commerce.CreatePaymentIntentRequest
	confirmed    []int
	cancelled    []int
}

func (f *fakeAPI) CreateCheckout(ctx context.Context, req commerce.CreateCheckoutRequest) (*commerce.Checkout, error) {
	f.createCalls = append(f.createCalls, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	total := f.totalAmount
	if total == "" {
		total = "250"
	}
	return &commerce.Checkout{ID: 55, TotalAmount: total, Status: "pending"}, nil
}

func (f *fakeAPI) ValidateCoupon(ctx context.Context, couponCode string) (*commerce.ValidateCouponResponse, error) {
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	if f.validateResp != nil {
		return f.validateResp, nil
	}
	return &commerce.ValidateCouponResponse{IsValid: false, Message: "expired"}, nil
}

func (f *fakeAPI) CreatePaymentIntent(ctx context.Context, req commerce.CreatePaymentIntentRequest) (*commerce.PaymentIntent, error) {
	f.intentCalls = append(f.intentCalls, req)
	if f.intentErr != nil {
		return nil, f.intentErr
	}
	return &commerce.PaymentIntent{ClientSecret: "pi_secret", PaymentIntentID: "pi_1", Amount: req.Amount}, nil
}

func (f *fakeAPI) ConfirmCheckout(ctx context.Context, checkoutID int) error {
	f.confirmed = append(f.confirmed, checkoutID)
	return nil
}

func (f *fakeAPI) CancelCheckout(ctx context.Context, checkoutID int) error {
	f.cancelled = append(f.cancelled, checkoutID)
	return nil
}

type fakeCapturer struct {
	err   error
	calls int
	fn    func(ctx context.Context) error
}

func (f *fakeCapturer) Capture(ctx context.Context, clientSecret string) error {
	f.calls++
	if f.fn != nil {
		return f.fn(ctx)
	}
	return f.err
}

type rig struct {
	orch     *Orchestrator
	cart     *fakeCart
	sessions *fakeSessions
	book     *fakeAddressBook
	ship     *fakeShipping
	api      *fakeAPI
	capturer *fakeCapturer
}

func strPtr(v string) *string { return &v }

func cartLines() []cart.LineItem {
	return []cart.LineItem{
		{ProductID: 1, Name: "Glow Serum", Price: "100", DiscountPrice: strPtr("80"), Quantity: 2},
		{ProductID: 2, Name: "Night Balm", Price: "50", Quantity: 1},
	}
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		cart: &fakeCart{items: cartLines()},
		sessions: &fakeSessions{snap: &types.AuthSnapshot{
			User:        types.User{ID: 7, FirstName: "Nadia", LastName: "Rahman"},
			AccessToken: "token",
		}},
		book: &fakeAddressBook{addresses: []types.Address{
			{ID: 11},
			{ID: 12, IsDefaultShipping: true},
		}},
		ship: &fakeShipping{methods: []types.ShippingMethod{
			{ID: 1, Name: "Standard Delivery", Price: "60", EstimatedDays: 3, IsActive: true},
			{ID: 2, Name: "Express Delivery", Price: "120", EstimatedDays: 1, IsActive: true},
		}},
		api:      &fakeAPI{},
		capturer: &fakeCapturer{},
	}

	log := logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})
	orch, err := NewOrchestrator(r.cart, r.sessions, r.book, r.ship, r.api, r.capturer, log)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	r.orch = orch
	return r
}

func beginReady(t *testing.T, r *rig) {
	t.Helper()
	state, err := r.orch.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if state != enums.CheckoutStateReady {
		t.Fatalf("expected ready, got %s", state)
	}
}

func TestBeginRequiresLogin(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	r.sessions.snap = nil

	state, err := r.orch.Begin(context.Background())
	if state != enums.CheckoutStateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", state)
	}
	coded := errors.As(err)
	if coded == nil || coded.Code() != errors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestBeginEmptyCartAborts(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	r.cart.items = nil

	state, err := r.orch.Begin(context.Background())
	if state != enums.CheckoutStateAborted {
		t.Fatalf("expected aborted, got %s", state)
	}
	coded := errors.As(err)
	if coded == nil || coded.Code() != errors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBeginPreselectsDefaults(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	beginReady(t, r)

	draft := r.orch.Draft()
	if draft.ShippingAddressID == nil || *draft.ShippingAddressID != 12 {
		t.Fatalf("expected flagged default address 12, got %v", draft.ShippingAddressID)
	}
	if draft.ShippingMethodID == nil || *draft.ShippingMethodID != 1 {
		t.Fatalf("expected first active method 1, got %v", draft.ShippingMethodID)
	}
	if draft.PaymentMethod != enums.PaymentMethodCash {
		t.Fatalf("expected cash default, got %s", draft.PaymentMethod)
	}
}

func TestBeginDegradesWhenAddressBookFails(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	r.book.listErr = fmt.Errorf("backend down")

	beginReady(t, r)

	draft := r.orch.Draft()
	if draft.ShippingAddressID != nil {
		t.Fatalf("expected no preselected address, got %v", *draft.ShippingAddressID)
	}
	if draft.ShippingMethodID == nil {
		t.Fatal("shipping method should still preselect")
	}
}

func TestTotalsScenario(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	beginReady(t, r)

	// 80x2 + 50 = 210 merchandise, plus standard delivery 60
	totals := r.orch.Totals(context.Background())
	if totals.Subtotal.String() != "210" {
		t.Fatalf("expected subtotal 210, got %s", totals.Subtotal)
	}
	if totals.ShippingCost.String() != "60" {
		t.Fatalf("expected shipping 60, got %s", totals.ShippingCost)
	}
	if totals.Total.String() != "270" {
		t.Fatalf("expected total 270, got %s", totals.Total)
	}
}

func TestCouponDiscountNeverPushesTotalBelowZero(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	beginReady(t, r)

	r.api.validateResp = &commerce.ValidateCouponResponse{IsValid: true, DiscountAmount: "1000"}
	if err := r.orch.ApplyCoupon(context.Background(), "MEGA"); err != nil {
		t.Fatalf("ApplyCoupon: %v", err)
	}

	totals := r.orch.Totals(context.Background())
	if totals.Total.String() != "0" {
		t.Fatalf("expected clamped total 0, got %s", totals.Total)
	}
	if totals.DiscountAmount.String() != "270" {
		t.Fatalf("expected discount clamped to 270, got %s", totals.DiscountAmount)
	}
}

func TestApplyCouponRejectionLeavesDraftAlone(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	beginReady(t, r)

	err := r.orch.ApplyCoupon(context.Background(), "EXPIRED")
	coded := errors.As(err)
	if coded == nil || coded.Code() != errors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if r.orch.Draft().Coupon != nil {
		t.Fatal("rejected coupon must not attach to the draft")
	}
	if r.orch.State() != enums.CheckoutStateReady {
		t.Fatalf("rejected coupon must keep the session ready, got %s", r.orch.State())
	}
}

func TestPlaceOrderValidationStopsBeforeAnyRemoteCall(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	r.book.addresses = nil
	beginReady(t, r)

	_, err := r.orch.PlaceOrder(context.Background())
	coded := errors.As(err)
	if coded == nil || coded.Code() != errors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := coded.Fields()["shippingAddress"]; !ok {
		t.Fatalf("expected shippingAddress field, got %v", coded.Fields())
	}
	if len(r.api.createCalls) != 0 {
		t.Fatal("validation failure must not reach the backend")
	}
	if len(r.cart.Items(context.Background())) != 2 {
		t.Fatal("cart must be untouched by a failed validation")
	}
	if r.orch.State() != enums.CheckoutStateReady {
		t.Fatalf("validation failure must return to ready, got %s", r.orch.State())
	}
}

func TestPlaceOrderCashConfirmsAndClearsCart(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	beginReady(t, r)

	result, err := r.orch.PlaceOrder(context.Background())
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if result.Checkout.ID != 55 || result.Captured {
		t.Fatalf("unexpected result %+v", result)
	}
	if r.orch.State() != enums.CheckoutStateConfirmed {
		t.Fatalf("expected confirmed, got %s", r.orch.State())
	}
	if !r.cart.cleared {
		t.Fatal("cart must clear on confirmation")
	}
	if r.capturer.calls != 0 {
		t.Fatal("cash orders never touch the payment gateway")
	}

	req := r.api.createCalls[0]
	if len(req.Items) != 2 || req.Items[0].ProductID != 1 || req.Items[0].Quantity != 2 {
		t.Fatalf("unexpected item lines %+v", req.Items)
	}
	if req.IdempotencyKey == "" {
		t.Fatal("submission must carry an idempotency key")
	}
	if req.BillingAddressID != 12 || req.ShippingAddressID != 12 {
		t.Fatalf("billing must default to the shipping address, got %+v", req)
	}
}

func TestPlaceOrderFailureKeepsCartForRetry(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	beginReady(t, r)
	r.api.createErr = fmt.Errorf("gateway timeout")

	_, err := r.orch.PlaceOrder(context.Background())
	if err == nil {
		t.Fatal("expected submission failure")
	}
	if r.orch.State() != enums.CheckoutStateFailed {
		t.Fatalf("expected failed, got %s", r.orch.State())
	}
	if len(r.cart.Items(context.Background())) != 2 {
		t.Fatal("cart must survive a failed submission")
	}

	firstKey := r.api.createCalls[0].IdempotencyKey

	r.api.createErr = nil
	result, err := r.orch.PlaceOrder(context.Background())
	if err != nil {
		t.Fatalf("retry PlaceOrder: %v", err)
	}
	if result.Checkout.ID != 55 {
		t.Fatalf("unexpected retry result %+v", result)
	}
	if got := r.api.createCalls[1].IdempotencyKey; got != firstKey {
		t.Fatalf("retry must reuse the idempotency key: %q vs %q", got, firstKey)
	}
}

func TestCardFlowOpensIntentAndCaptures(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	beginReady(t, r)
	if err := r.orch.SetPaymentMethod(enums.PaymentMethodCard); err != nil {
		t.Fatalf("SetPaymentMethod: %v", err)
	}

	result, err := r.orch.PlaceOrder(context.Background())
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !result.Captured {
		t.Fatal("card orders must capture")
	}
	if len(r.api.intentCalls) != 1 {
		t.Fatalf("expected one intent, got %d", len(r.api.intentCalls))
	}
	// server total 250 in minor units
	if got := r.api.intentCalls[0].Amount; got != 25000 {
		t.Fatalf("expected intent amount 25000, got %d", got)
	}
	if r.capturer.calls != 1 {
		t.Fatalf("expected one capture, got %d", r.capturer.calls)
	}
	if len(r.api.confirmed) != 1 || r.api.confirmed[0] != 55 {
		t.Fatalf("capture must be reported back, got %v", r.api.confirmed)
	}
	if r.orch.State() != enums.CheckoutStateConfirmed {
		t.Fatalf("expected confirmed, got %s", r.orch.State())
	}
}

func TestIntentAmountRoundsSubCentServerTotals(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	r.api.totalAmount = "99.999"
	beginReady(t, r)
	if err := r.orch.SetPaymentMethod(enums.PaymentMethodCard); err != nil {
		t.Fatalf("SetPaymentMethod: %v", err)
	}

	if _, err := r.orch.PlaceOrder(context.Background()); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if got := r.api.intentCalls[0].Amount; got != 10000 {
		t.Fatalf("sub-cent total must round, not truncate: got %d, want 10000", got)
	}
}

func TestCaptureFailureNeverResubmitsTheOrder(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	beginReady(t, r)
	if err := r.orch.SetPaymentMethod(enums.PaymentMethodCard); err != nil {
		t.Fatalf("SetPaymentMethod: %v", err)
	}
	r.capturer.err = errors.New(errors.CodePayment, "card declined")

	_, err := r.orch.PlaceOrder(context.Background())
	coded := errors.As(err)
	if coded == nil || coded.Code() != errors.CodePayment {
		t.Fatalf("expected payment error, got %v", err)
	}
	if r.orch.State() != enums.CheckoutStateFailed {
		t.Fatalf("expected failed, got %s", r.orch.State())
	}
	if r.cart.cleared {
		t.Fatal("cart must survive a failed capture")
	}

	r.capturer.err = nil
	result, err := r.orch.RetryPayment(context.Background())
	if err != nil {
		t.Fatalf("RetryPayment: %v", err)
	}
	if !result.Captured {
		t.Fatal("retry must capture")
	}
	if len(r.api.createCalls) != 1 {
		t.Fatalf("retry must not re-create the order, got %d creations", len(r.api.createCalls))
	}
	if len(r.api.intentCalls) != 1 {
		t.Fatalf("retry must reuse the intent, got %d intents", len(r.api.intentCalls))
	}
	if r.orch.State() != enums.CheckoutStateConfirmed {
		t.Fatalf("expected confirmed, got %s", r.orch.State())
	}
}

func TestRetryPaymentWithoutOrderConflicts(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	beginReady(t, r)

	_, err := r.orch.RetryPayment(context.Background())
	coded := errors.As(err)
	if coded == nil || coded.Code() != errors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestPlaceOrderRejectsReentry(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	beginReady(t, r)
	if err := r.orch.SetPaymentMethod(enums.PaymentMethodCard); err != nil {
		t.Fatalf("SetPaymentMethod: %v", err)
	}

	var reentryErr error
	r.capturer.fn = func(ctx context.Context) error {
		_, reentryErr = r.orch.PlaceOrder(ctx)
		return nil
	}

	if _, err := r.orch.PlaceOrder(context.Background()); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	coded := errors.As(reentryErr)
	if coded == nil || coded.Code() != errors.CodeConflict {
		t.Fatalf("expected conflict on re-entry, got %v", reentryErr)
	}
	if len(r.api.createCalls) != 1 {
		t.Fatalf("re-entry must not create a second order, got %d", len(r.api.createCalls))
	}
}

func TestAbandonCancelsCreatedOrder(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	beginReady(t, r)
	if err := r.orch.SetPaymentMethod(enums.PaymentMethodCard); err != nil {
		t.Fatalf("SetPaymentMethod: %v", err)
	}
	r.capturer.err = errors.New(errors.CodePayment, "card declined")

	if _, err := r.orch.PlaceOrder(context.Background()); err == nil {
		t.Fatal("expected capture failure")
	}

	r.orch.Abandon(context.Background())
	if r.orch.State() != enums.CheckoutStateAborted {
		t.Fatalf("expected aborted, got %s", r.orch.State())
	}
	if len(r.api.cancelled) != 1 || r.api.cancelled[0] != 55 {
		t.Fatalf("expected checkout 55 cancelled, got %v", r.api.cancelled)
	}
}

func TestSessionInvalidationDropsToUnauthenticated(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	beginReady(t, r)

	r.sessions.invalidate()
	if r.orch.State() != enums.CheckoutStateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", r.orch.State())
	}
}

func TestAddAddressMidCheckoutSelectsIt(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	beginReady(t, r)

	created, err := r.orch.AddAddress(context.Background(), address.FormInput{FullName: "Nadia Rahman"})
	if err != nil {
		t.Fatalf("AddAddress: %v", err)
	}

	draft := r.orch.Draft()
	if draft.ShippingAddressID == nil || *draft.ShippingAddressID != created.ID {
		t.Fatalf("new address must be selected, got %v", draft.ShippingAddressID)
	}
}

func TestDeriveTotalsWithoutCoupon(t *testing.T) {
	t.Parallel()

	totals := deriveTotals(cartLines(), decimal.NewFromInt(60), nil)
	if totals.Total.String() != "270" {
		t.Fatalf("expected 270, got %s", totals.Total)
	}
	if totals.DiscountAmount.String() != "0" {
		t.Fatalf("expected no discount, got %s", totals.DiscountAmount)
	}
}
