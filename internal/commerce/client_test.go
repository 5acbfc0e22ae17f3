package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lumi-glow/storefront/pkg/enums"
	pkgerrors "github.com/lumi-glow/storefront/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient("   "); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestCreateCheckoutSendsOnlyIDAndQuantity(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/user/checkout", r.URL.Path)
		require.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(CreateCheckoutResponse{
			Checkout: Checkout{ID: 77, TotalAmount: "270.00", Status: "pending"},
			Message:  "checkout created",
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, WithTokenSource(TokenFunc(func(ctx context.Context) string { return "token-abc" })))
	require.NoError(t, err)

	created, err := client.CreateCheckout(context.Background(), CreateCheckoutRequest{
		Items:             []CheckoutItem{{ProductID: 1, Quantity: 2}},
		BillingAddressID:  5,
		ShippingAddressID: 5,
		ShippingMethodID:  1,
		PaymentMethod:     enums.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.Equal(t, 77, created.ID)

	items, ok := captured["items"].([]any)
	require.True(t, ok)
	line, ok := items[0].(map[string]any)
	require.True(t, ok)
	assert.Len(t, line, 2, "line items must carry only productId and quantity")
	assert.Contains(t, line, "productId")
	assert.Contains(t, line, "quantity")
}

func TestDoMapsServerErrorPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errorPayload{
			Message: "shipping method is not available",
			Errors:  map[string][]string{"shippingMethodId": {"inactive method"}},
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.CreateCheckout(context.Background(), CreateCheckoutRequest{})
	require.Error(t, err)

	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
	assert.Equal(t, "shipping method is not available", coded.Message())
	assert.Equal(t, "inactive method", coded.Fields()["shippingMethodId"])
}

func TestDoMapsStatusesWithoutBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusConflict, pkgerrors.CodeConflict},
		{http.StatusPaymentRequired, pkgerrors.CodePayment},
		{http.StatusBadGateway, pkgerrors.CodeDependency},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		client, err := NewClient(server.URL)
		require.NoError(t, err)

		_, err = client.ListAddresses(context.Background())
		coded := pkgerrors.As(err)
		require.NotNil(t, coded, "status %d should produce a coded error", tt.status)
		assert.Equal(t, tt.code, coded.Code(), "status %d", tt.status)

		server.Close()
	}
}

func TestNetworkFailureIsDependencyError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.ListShippingMethods(context.Background())
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeDependency, coded.Code())
}

type ctxKey struct{}

func TestTokenSourceReceivesRequestContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(addressListResponse{})
	}))
	defer server.Close()

	var seen any
	source := TokenFunc(func(ctx context.Context) string {
		seen = ctx.Value(ctxKey{})
		return "token"
	})

	client, err := NewClient(server.URL, WithTokenSource(source))
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), ctxKey{}, "request-scoped")
	_, err = client.ListAddresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, "request-scoped", seen, "token source must see the caller's context")
}

func TestSetDefaultAddressPath(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/address/9/billing/default", r.URL.Path)
		assert.Equal(t, http.MethodPatch, r.Method)
		json.NewEncoder(w).Encode(addressResponse{Message: "ok"})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.SetDefaultAddress(context.Background(), 9, enums.DefaultAddressBilling)
	require.NoError(t, err)
}
