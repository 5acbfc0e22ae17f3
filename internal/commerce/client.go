// Package commerce is the typed client for the remote commerce backend.
// Every call returns coded errors; the caller decides how a failure
// surfaces to the shopper.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lumi-glow/storefront/pkg/enums"
	pkgerrors "github.com/lumi-glow/storefront/pkg/errors"
	"github.com/lumi-glow/storefront/pkg/types"
)

const errorBodyReadLimit int64 = 4096

var errBaseURLRequired = errors.New("commerce api base url is required")

// TokenSource supplies the bearer token attached to authenticated calls.
// It receives the request's context so a token read against durable
// storage honors the caller's cancellation. An empty token means the call
// goes out unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenFunc adapts a plain function to a TokenSource.
type TokenFunc func(ctx context.Context) string

func (fn TokenFunc) Token(ctx context.Context) string { return fn(ctx) }

// Client talks to the commerce backend's REST surface.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTokenSource attaches a bearer-token provider.
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// NewClient builds the commerce client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return client, nil
}

// ListAddresses returns the shopper's saved addresses.
func (c *Client) ListAddresses(ctx context.Context) ([]types.Address, error) {
	var resp addressListResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/address", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

// CreateAddress adds a new address-book entry.
func (c *Client) CreateAddress(ctx context.Context, req CreateAddressRequest) (*types.Address, error) {
	var resp addressResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/address", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Address, nil
}

// UpdateAddress patches an existing address-book entry.
func (c *Client) UpdateAddress(ctx context.Context, id int, req CreateAddressRequest) (*types.Address, error) {
	var resp addressResponse
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/v1/address/%d", id), req, &resp); err != nil {
		return nil, err
	}
	return &resp.Address, nil
}

// DeleteAddress removes an address-book entry.
func (c *Client) DeleteAddress(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/address/%d", id), nil, nil)
}

// SetDefaultAddress marks an address as the shipping or billing default.
func (c *Client) SetDefaultAddress(ctx context.Context, id int, kind enums.DefaultAddressKind) (*types.Address, error) {
	var resp addressResponse
	path := fmt.Sprintf("/api/v1/address/%d/%s/default", id, kind)
	if err := c.do(ctx, http.MethodPatch, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Address, nil
}

// ListShippingMethods returns the backend's shipping catalog.
func (c *Client) ListShippingMethods(ctx context.Context) ([]types.ShippingMethod, error) {
	var resp shippingMethodsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/shipping-methods", nil, &resp); err != nil {
		return nil, err
	}
	return resp.ShippingMethods, nil
}

// CreateCheckout submits the order for creation.
func (c *Client) CreateCheckout(ctx context.Context, req CreateCheckoutRequest) (*Checkout, error) {
	var resp CreateCheckoutResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/user/checkout", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Checkout, nil
}

// ApplyCoupon validates and attaches a coupon code to a checkout.
func (c *Client) ApplyCoupon(ctx context.Context, checkoutID int, couponCode string) (*ValidateCouponResponse, error) {
	var resp ValidateCouponResponse
	path := fmt.Sprintf("/api/v1/user/checkout/%d/apply-coupon", checkoutID)
	body := map[string]string{"couponCode": couponCode}
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateCoupon checks a coupon code without attaching it.
func (c *Client) ValidateCoupon(ctx context.Context, couponCode string) (*ValidateCouponResponse, error) {
	var resp ValidateCouponResponse
	body := map[string]string{"couponCode": couponCode}
	if err := c.do(ctx, http.MethodPost, "/api/v1/user/checkout/validate-coupon", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemoveCoupon detaches a coupon from a checkout.
func (c *Client) RemoveCoupon(ctx context.Context, checkoutID int) error {
	path := fmt.Sprintf("/api/v1/user/checkout/%d/remove-coupon", checkoutID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// CreatePaymentIntent opens a gateway intent for card capture.
func (c *Client) CreatePaymentIntent(ctx context.Context, req CreatePaymentIntentRequest) (*PaymentIntent, error) {
	var resp PaymentIntent
	if err := c.do(ctx, http.MethodPost, "/api/v1/user/checkout/intent", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConfirmCheckout reports a completed payment capture back to the backend.
func (c *Client) ConfirmCheckout(ctx context.Context, checkoutID int) error {
	path := fmt.Sprintf("/api/v1/user/checkout/%d/confirm", checkoutID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// CancelCheckout abandons a pending checkout record server-side.
func (c *Client) CancelCheckout(ctx context.Context, checkoutID int) error {
	path := fmt.Sprintf("/api/v1/user/checkout/%d/cancel", checkoutID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "commerce client not configured")
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := strings.TrimSpace(c.tokens.Token(ctx)); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commerce api unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode commerce api response")
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))

	var payload errorPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Message == "" {
		payload.Message = http.StatusText(resp.StatusCode)
	}

	coded := pkgerrors.New(codeForStatus(resp.StatusCode), payload.Message)
	if len(payload.Errors) > 0 {
		fields := make(map[string]string, len(payload.Errors))
		for field, msgs := range payload.Errors {
			if len(msgs) > 0 {
				fields[field] = msgs[0]
			}
		}
		coded = coded.WithFields(fields)
	}
	return coded
}

func codeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		return pkgerrors.CodeConflict
	case status == http.StatusUnprocessableEntity, status == http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case status == http.StatusPaymentRequired:
		return pkgerrors.CodePayment
	case status >= http.StatusInternalServerError:
		return pkgerrors.CodeDependency
	default:
		return pkgerrors.CodeDependency
	}
}
