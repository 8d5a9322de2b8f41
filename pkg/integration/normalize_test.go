package integration_test

import (
	"errors"
	"math"
	"testing"

	"github.com/bazaarhub/integrations/pkg/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providers []string

func (p providers) Has(name string) bool {
	for _, n := range p {
		if n == name {
			return true
		}
	}
	return false
}

var payments = providers{"stripe", "easypaisa", "jazzcash"}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var e *integration.Error
	require.True(t, errors.As(err, &e), "expected *integration.Error, got %v", err)
	return e.Field
}

func TestNormalizePayment_Success(t *testing.T) {
	req, err := integration.NormalizePayment(map[string]any{
		"provider": "  Stripe ",
		"amount":   float64(500),
		"currency": "pkr",
		"metadata": map[string]any{"orderId": "ord-1", "items": float64(2)},
	}, payments)

	require.NoError(t, err)
	assert.Equal(t, "stripe", req.Provider)
	assert.Equal(t, 500.0, req.Amount)
	assert.Equal(t, "PKR", req.Currency)
	assert.Equal(t, "ord-1", req.Metadata.String("orderId"))
}

func TestNormalizePayment_DefaultCurrency(t *testing.T) {
	req, err := integration.NormalizePayment(map[string]any{
		"provider": "easypaisa",
		"amount":   "99.5",
	}, payments)

	require.NoError(t, err)
	assert.Equal(t, "PKR", req.Currency)
	assert.Equal(t, 99.5, req.Amount)
	assert.NotNil(t, req.Metadata)
}

func TestNormalizePayment_BlankCurrencyDefaults(t *testing.T) {
	for _, currency := range []string{"", "   "} {
		req, err := integration.NormalizePayment(map[string]any{
			"provider": "stripe",
			"amount":   float64(10),
			"currency": currency,
		}, payments)

		require.NoError(t, err, "currency %q", currency)
		assert.Equal(t, "PKR", req.Currency)
	}
}

func TestNormalizePayment_CurrencyNotString(t *testing.T) {
	_, err := integration.NormalizePayment(map[string]any{
		"provider": "stripe",
		"amount":   float64(10),
		"currency": float64(586),
	}, payments)

	require.Error(t, err)
	assert.Equal(t, "currency", fieldOf(t, err))
}

func TestNormalizePayment_InvalidAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount any
	}{
		{"zero", float64(0)},
		{"negative", float64(-10)},
		{"non-numeric string", "ten"},
		{"boolean", true},
		{"missing", nil},
		{"infinite", math.Inf(1)},
		{"nan", math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := map[string]any{"provider": "stripe"}
			if tt.amount != nil {
				raw["amount"] = tt.amount
			}
			_, err := integration.NormalizePayment(raw, payments)
			require.Error(t, err)
			assert.Equal(t, "amount", fieldOf(t, err))
			assert.Equal(t, 400, integration.StatusOf(err))
		})
	}
}

func TestNormalizePayment_InvalidCurrency(t *testing.T) {
	_, err := integration.NormalizePayment(map[string]any{
		"provider": "stripe",
		"amount":   float64(10),
		"currency": "rupees",
	}, payments)

	require.Error(t, err)
	assert.Equal(t, "currency", fieldOf(t, err))
}

func TestNormalizePayment_UnknownProvider(t *testing.T) {
	_, err := integration.NormalizePayment(map[string]any{
		"provider": "UnknownPay",
		"amount":   float64(10),
	}, payments)

	require.Error(t, err)
	assert.True(t, errors.Is(err, integration.ErrProviderNotFound))
	assert.Contains(t, integration.PublicMessage(err), "UnknownPay")
	assert.Equal(t, 400, integration.StatusOf(err))
}

func TestNormalizePayment_FieldErrorsBeforeProvider(t *testing.T) {
	_, err := integration.NormalizePayment(map[string]any{
		"provider": "unknownpay",
		"amount":   float64(-1),
	}, payments)

	require.Error(t, err)
	assert.Equal(t, "amount", fieldOf(t, err))
	assert.False(t, errors.Is(err, integration.ErrProviderNotFound))
}

func TestNormalizePayment_ProviderNotString(t *testing.T) {
	_, err := integration.NormalizePayment(map[string]any{
		"provider": float64(3),
		"amount":   float64(10),
	}, payments)

	require.Error(t, err)
	assert.Equal(t, "provider", fieldOf(t, err))
}

func TestNormalizePayment_MetadataMustBeScalars(t *testing.T) {
	_, err := integration.NormalizePayment(map[string]any{
		"provider": "stripe",
		"amount":   float64(10),
		"metadata": map[string]any{"nested": map[string]any{"a": "b"}},
	}, payments)

	require.Error(t, err)
	assert.Equal(t, "metadata", fieldOf(t, err))
}

func TestNormalizeDelivery_Success(t *testing.T) {
	req, err := integration.NormalizeDelivery(map[string]any{
		"provider":    "TCS",
		"weight":      float64(2.5),
		"origin":      " Lahore ",
		"destination": "Karachi",
	}, providers{"tcs"})

	require.NoError(t, err)
	assert.Equal(t, "tcs", req.Provider)
	assert.Equal(t, 2.5, req.Weight)
	assert.Equal(t, "Lahore", req.Origin)
	assert.Equal(t, "Karachi", req.Destination)
}

func TestNormalizeDelivery_BlankOrigin(t *testing.T) {
	_, err := integration.NormalizeDelivery(map[string]any{
		"provider":    "tcs",
		"weight":      float64(1),
		"origin":      "   ",
		"destination": "Karachi",
	}, providers{"tcs"})

	require.Error(t, err)
	assert.Equal(t, "origin", fieldOf(t, err))
}

func TestNormalizeDelivery_InvalidWeight(t *testing.T) {
	_, err := integration.NormalizeDelivery(map[string]any{
		"provider":    "tcs",
		"weight":      "0",
		"origin":      "Lahore",
		"destination": "Karachi",
	}, providers{"tcs"})

	require.Error(t, err)
	assert.Equal(t, "weight", fieldOf(t, err))
}

func TestNormalizeDelivery_WithoutProviderSet(t *testing.T) {
	req, err := integration.NormalizeDelivery(map[string]any{
		"weight":      float64(1),
		"origin":      "Lahore",
		"destination": "Islamabad",
	}, nil)

	require.NoError(t, err)
	assert.Empty(t, req.Provider)
}
