package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumi-glow/storefront/pkg/config"
	"github.com/lumi-glow/storefront/pkg/errors"
)

func TestNewGatewayRequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewGateway(config.PaymentConfig{})
	require.Error(t, err)
}

func TestCaptureSucceeds(t *testing.T) {
	t.Parallel()

	var gotSecret string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/intents/confirm", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotSecret = req["clientSecret"]

		json.NewEncoder(w).Encode(map[string]string{"status": "succeeded"})
	}))
	defer server.Close()

	gateway, err := NewGateway(config.PaymentConfig{GatewayBaseURL: server.URL})
	require.NoError(t, err)

	require.NoError(t, gateway.Capture(context.Background(), "pi_secret_123"))
	assert.Equal(t, "pi_secret_123", gotSecret)
}

func TestCaptureDeclinedMapsToPaymentError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]string{"message": "card declined"})
	}))
	defer server.Close()

	gateway, err := NewGateway(config.PaymentConfig{GatewayBaseURL: server.URL})
	require.NoError(t, err)

	captureErr := gateway.Capture(context.Background(), "pi_secret_123")
	require.Error(t, captureErr)

	coded := errors.As(captureErr)
	require.NotNil(t, coded)
	assert.Equal(t, errors.CodePayment, coded.Code())
	assert.Equal(t, "card declined", coded.Message())
	assert.True(t, errors.MetadataFor(coded.Code()).Retryable)
}

func TestCaptureNonSucceededStatusFails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "requires_action"})
	}))
	defer server.Close()

	gateway, err := NewGateway(config.PaymentConfig{GatewayBaseURL: server.URL})
	require.NoError(t, err)

	captureErr := gateway.Capture(context.Background(), "pi_secret_123")
	require.Error(t, captureErr)

	coded := errors.As(captureErr)
	require.NotNil(t, coded)
	assert.Equal(t, errors.CodePayment, coded.Code())
}

func TestCaptureUnreachableGatewayFails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	gateway, err := NewGateway(config.PaymentConfig{GatewayBaseURL: server.URL})
	require.NoError(t, err)

	captureErr := gateway.Capture(context.Background(), "pi_secret_123")
	require.Error(t, captureErr)

	coded := errors.As(captureErr)
	require.NotNil(t, coded)
	assert.Equal(t, errors.CodePayment, coded.Code())
}

func TestCaptureRequiresClientSecret(t *testing.T) {
	t.Parallel()

	gateway, err := NewGateway(config.PaymentConfig{GatewayBaseURL: "http://localhost:1"})
	require.NoError(t, err)

	captureErr := gateway.Capture(context.Background(), "  ")
	require.Error(t, captureErr)

	coded := errors.As(captureErr)
	require.NotNil(t, coded)
	assert.Equal(t, errors.CodePayment, coded.Code())
}
