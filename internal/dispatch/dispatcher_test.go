package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bazaarhub/integrations/internal/dispatch"
	"github.com/bazaarhub/integrations/internal/telemetry"
	"github.com/bazaarhub/integrations/pkg/delivery"
	deliverymock "github.com/bazaarhub/integrations/pkg/delivery/mock"
	"github.com/bazaarhub/integrations/pkg/integration"
	"github.com/bazaarhub/integrations/pkg/payment"
	paymentmock "github.com/bazaarhub/integrations/pkg/payment/mock"
	"github.com/bazaarhub/integrations/pkg/payment/stripe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type fixture struct {
	dispatcher *dispatch.Dispatcher
	payments   *payment.Registry
	couriers   *delivery.Registry
	stripe     *paymentmock.Client
	tcs        *deliverymock.Client
	leopards   *deliverymock.Client
}

func newFixture() *fixture {
	f := &fixture{
		payments: payment.NewRegistry(),
		couriers: delivery.NewRegistry(),
		stripe:   paymentmock.New("stripe"),
		tcs:      deliverymock.New("tcs"),
		leopards: deliverymock.New("leopards"),
	}
	f.payments.Register(f.stripe)
	f.couriers.Register(f.tcs)
	f.couriers.Register(f.leopards)

	logger := otelzap.New(zap.NewNop())
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	f.dispatcher = dispatch.New(f.payments, f.couriers, logger, metrics)
	return f
}

// roundTrip renders the envelope as JSON the way the server does.
func roundTrip(t *testing.T, resp dispatch.Response) map[string]any {
	t.Helper()
	data, err := json.Marshal(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestCheckout_StripeScenario(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"cs_123","url":"https://checkout/cs_123","status":"open"}`))
	}))
	defer srv.Close()

	f := newFixture()
	f.payments.Register(stripe.New(stripe.Config{
		BaseURL:   srv.URL,
		SecretKey: "sk_test",
	}, otelzap.New(zap.NewNop())))

	resp := f.dispatcher.Checkout(context.Background(), []byte(`{"amount":500,"currency":"pkr","provider":"stripe"}`))

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, map[string]any{
		"success":     true,
		"provider":    "stripe",
		"amount":      500.0,
		"currency":    "PKR",
		"reference":   "cs_123",
		"checkoutUrl": "https://checkout/cs_123",
		"status":      "open",
	}, roundTrip(t, resp))
}

func TestCheckout_NullFieldsSerialized(t *testing.T) {
	f := newFixture()
	f.stripe.OnCharge = func(context.Context, *integration.PaymentRequest) (*integration.Result, error) {
		return &integration.Result{Provider: "stripe"}, nil
	}

	body := roundTrip(t, f.dispatcher.Checkout(context.Background(), []byte(`{"amount":"12.5","provider":"STRIPE"}`)))

	assert.Equal(t, "PKR", body["currency"])
	assert.Equal(t, 12.5, body["amount"])
	assert.Contains(t, body, "reference")
	assert.Nil(t, body["reference"])
	assert.Nil(t, body["checkoutUrl"])
}

func TestCheckout_InvalidPayload(t *testing.T) {
	f := newFixture()

	for _, body := range []string{`not json`, `null`, `[1,2]`, ``} {
		resp := f.dispatcher.Checkout(context.Background(), []byte(body))
		assert.Equal(t, http.StatusBadRequest, resp.Status, body)
		assert.Equal(t, map[string]any{"success": false, "error": "Invalid request payload"}, roundTrip(t, resp))
	}
	assert.Zero(t, f.stripe.Calls())
}

func TestCheckout_UnknownProviderMakesNoCall(t *testing.T) {
	f := newFixture()

	resp := f.dispatcher.Checkout(context.Background(), []byte(`{"amount":100,"provider":"paypal"}`))

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Unsupported provider: paypal", roundTrip(t, resp)["error"])
	assert.Zero(t, f.stripe.Calls())
}

func TestCheckout_ValidationFailures(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name string
		body string
	}{
		{"missing provider", `{"amount":100}`},
		{"zero amount", `{"amount":0,"provider":"stripe"}`},
		{"negative amount", `{"amount":-5,"provider":"stripe"}`},
		{"text amount", `{"amount":"abc","provider":"stripe"}`},
		{"bad currency", `{"amount":5,"currency":"rupees","provider":"stripe"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.dispatcher.Checkout(context.Background(), []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, resp.Status)
			assert.Equal(t, false, roundTrip(t, resp)["success"])
		})
	}
	assert.Zero(t, f.stripe.Calls())
}

func TestCheckout_UpstreamError(t *testing.T) {
	f := newFixture()
	f.stripe.OnCharge = func(context.Context, *integration.PaymentRequest) (*integration.Result, error) {
		return nil, integration.UpstreamError("stripe", http.StatusPaymentRequired, "Your card was declined.")
	}

	resp := f.dispatcher.Checkout(context.Background(), []byte(`{"amount":5,"provider":"stripe"}`))

	assert.Equal(t, http.StatusPaymentRequired, resp.Status)
	assert.Equal(t, "Your card was declined.", roundTrip(t, resp)["error"])
}

func TestCheckout_ConfigurationError(t *testing.T) {
	f := newFixture()
	f.payments.Register(stripe.New(stripe.Config{}, otelzap.New(zap.NewNop())))

	resp := f.dispatcher.Checkout(context.Background(), []byte(`{"amount":5,"provider":"stripe"}`))

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	msg := roundTrip(t, resp)["error"].(string)
	assert.Contains(t, msg, "STRIPE_SECRET_KEY")
}

func TestCheckout_UnknownErrorIsGeneric(t *testing.T) {
	f := newFixture()
	f.stripe.OnCharge = func(context.Context, *integration.PaymentRequest) (*integration.Result, error) {
		return nil, errors.New("pq: connection refused at 10.0.0.4")
	}

	resp := f.dispatcher.Checkout(context.Background(), []byte(`{"amount":5,"provider":"stripe"}`))

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "Internal server error", roundTrip(t, resp)["error"])
}

func TestQuote_Success(t *testing.T) {
	f := newFixture()

	resp := f.dispatcher.Quote(context.Background(), []byte(`{"provider":"tcs","weight":2,"origin":"Lahore","destination":"Karachi"}`))

	require.Equal(t, http.StatusOK, resp.Status)
	body := roundTrip(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "tcs", body["provider"])
	assert.Equal(t, "300.00", body["cost"])
	assert.Equal(t, "2-3 days", body["transitTime"])
	assert.Equal(t, "Lahore", body["origin"])
	assert.Equal(t, int64(1), f.tcs.Calls())
	assert.Zero(t, f.leopards.Calls())
}

func TestQuote_UnknownProviderMakesNoCall(t *testing.T) {
	f := newFixture()

	resp := f.dispatcher.Quote(context.Background(), []byte(`{"provider":"dhl","weight":2,"origin":"Lahore","destination":"Karachi"}`))

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Zero(t, f.tcs.Calls())
	assert.Zero(t, f.leopards.Calls())
}

func TestQuote_BlankOrigin(t *testing.T) {
	f := newFixture()

	resp := f.dispatcher.Quote(context.Background(), []byte(`{"provider":"tcs","weight":2,"origin":"  ","destination":"Karachi"}`))

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Zero(t, f.tcs.Calls())
}

func TestQuoteAll_PartialFailure(t *testing.T) {
	f := newFixture()
	f.leopards.OnQuote = func(context.Context, *integration.DeliveryRequest) (*integration.Result, error) {
		return nil, integration.UpstreamError("leopards", http.StatusServiceUnavailable, "Leopards quote request failed")
	}

	resp := f.dispatcher.QuoteAll(context.Background(), []byte(`{"weight":1,"origin":"Lahore","destination":"Multan"}`))

	require.Equal(t, http.StatusOK, resp.Status)
	env := resp.Body.(dispatch.ComparisonEnvelope)
	assert.True(t, env.Success)
	require.Len(t, env.Quotes, 1)
	assert.Equal(t, "tcs", env.Quotes[0].Provider)
	assert.Equal(t, []dispatch.QuoteError{{Provider: "leopards", Error: "Leopards quote request failed"}}, env.Errors)
}

func TestQuoteAll_AllFail(t *testing.T) {
	f := newFixture()
	var calls atomic.Int32
	fail := func(context.Context, *integration.DeliveryRequest) (*integration.Result, error) {
		calls.Add(1)
		return nil, errors.New("boom")
	}
	f.tcs.OnQuote = fail
	f.leopards.OnQuote = fail

	resp := f.dispatcher.QuoteAll(context.Background(), []byte(`{"weight":1,"origin":"Lahore","destination":"Multan"}`))

	assert.Equal(t, http.StatusBadGateway, resp.Status)
	assert.Equal(t, int32(2), calls.Load())
	env := resp.Body.(dispatch.ComparisonEnvelope)
	assert.False(t, env.Success)
	assert.Empty(t, env.Quotes)
	assert.Len(t, env.Errors, 2)
	assert.Equal(t, "Internal server error", env.Errors[0].Error)
}

func TestQuoteAll_InvalidBody(t *testing.T) {
	f := newFixture()

	resp := f.dispatcher.QuoteAll(context.Background(), []byte(`{"weight":-1,"origin":"Lahore","destination":"Multan"}`))

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Zero(t, f.tcs.Calls())
}

func TestFailure(t *testing.T) {
	resp := dispatch.Failure(integration.NotFoundError("a/b"))

	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, dispatch.ErrorEnvelope{Success: false, Error: "Object not found"}, resp.Body)
}
