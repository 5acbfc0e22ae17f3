// Package payments completes card payments against the gateway once the
// backend has opened a payment intent. Cash-style methods never enter this
// package.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lumi-glow/storefront/pkg/config"
	"github.com/lumi-glow/storefront/pkg/errors"
)

const errorBodyReadLimit int64 = 4096

// Capturer completes a payment intent identified by its client secret.
type Capturer interface {
	Capture(ctx context.Context, clientSecret string) error
}

// CapturerFunc adapts a plain function to a Capturer.
type CapturerFunc func(ctx context.Context, clientSecret string) error

func (fn CapturerFunc) Capture(ctx context.Context, clientSecret string) error {
	return fn(ctx, clientSecret)
}

// Gateway captures card payments over the gateway's confirm endpoint.
type Gateway struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional gateway behavior.
type Option func(*Gateway)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// NewGateway builds the capture gateway from configuration.
func NewGateway(cfg config.PaymentConfig, opts ...Option) (*Gateway, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(cfg.GatewayBaseURL), "/")
	if trimmed == "" {
		return nil, errors.New(errors.CodePayment, "payment gateway url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	gateway := &Gateway{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(gateway)
		}
	}
	return gateway, nil
}

type confirmRequest struct {
	ClientSecret string `json:"clientSecret"`
}

type confirmResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Capture confirms the intent. Any non-success outcome is a retryable
// payment error; the order itself stays intact server-side.
func (g *Gateway) Capture(ctx context.Context, clientSecret string) error {
	if strings.TrimSpace(clientSecret) == "" {
		return errors.New(errors.CodePayment, "payment intent is missing its client secret")
	}

	encoded, err := json.Marshal(confirmRequest{ClientSecret: clientSecret})
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "encode capture request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/intents/confirm", bytes.NewReader(encoded))
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "build capture request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(errors.CodePayment, err, "payment gateway unreachable")
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))

	var body confirmResponse
	if err := json.Unmarshal(raw, &body); err != nil && resp.StatusCode < http.StatusMultipleChoices {
		return errors.Wrap(errors.CodePayment, err, "decode gateway response")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		message := body.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return errors.New(errors.CodePayment, message)
	}

	if body.Status != "" && body.Status != "succeeded" {
		message := body.Message
		if message == "" {
			message = "payment was not completed"
		}
		return errors.New(errors.CodePayment, message)
	}
	return nil
}
