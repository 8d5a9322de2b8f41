// Package dispatch routes normalized payment and delivery requests to the
// matching adapter and wraps every outcome in the response envelope.
package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bazaarhub/integrations/internal/telemetry"
	"github.com/bazaarhub/integrations/pkg/delivery"
	"github.com/bazaarhub/integrations/pkg/integration"
	"github.com/bazaarhub/integrations/pkg/payment"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	opCheckout = "checkout"
	opQuote    = "quote"
	opQuoteAll = "quote_all"

	unknownProvider = "unknown"
)

// Response is an HTTP status plus a JSON-serializable envelope.
type Response struct {
	Status int
	Body   any
}

// ErrorEnvelope is the failure body for every operation.
type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// CheckoutEnvelope is the checkout success body.
type CheckoutEnvelope struct {
	Success     bool    `json:"success"`
	Provider    string  `json:"provider"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Reference   *string `json:"reference"`
	CheckoutURL *string `json:"checkoutUrl"`
	Status      *string `json:"status"`
}

// QuoteEnvelope is the single-courier quote success body.
type QuoteEnvelope struct {
	Success     bool    `json:"success"`
	Provider    string  `json:"provider"`
	Weight      float64 `json:"weight"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Reference   *string `json:"reference"`
	Cost        *string `json:"cost"`
	TransitTime *string `json:"transitTime"`
}

// Quote is one courier's entry in a comparison.
type Quote struct {
	Provider    string  `json:"provider"`
	Reference   *string `json:"reference"`
	Cost        *string `json:"cost"`
	TransitTime *string `json:"transitTime"`
}

// QuoteError is one courier's failure in a comparison.
type QuoteError struct {
	Provider string `json:"provider"`
	Error    string `json:"error"`
}

// ComparisonEnvelope is the quote-all body.
type ComparisonEnvelope struct {
	Success bool         `json:"success"`
	Quotes  []Quote      `json:"quotes"`
	Errors  []QuoteError `json:"errors"`
}

// Dispatcher selects adapters by provider identifier.
type Dispatcher struct {
	payments *payment.Registry
	couriers *delivery.Registry
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
}

// New creates a Dispatcher.
func New(payments *payment.Registry, couriers *delivery.Registry, logger *otelzap.Logger, metrics *telemetry.Metrics) *Dispatcher {
	return &Dispatcher{
		payments: payments,
		couriers: couriers,
		logger:   logger,
		metrics:  metrics,
		tracer:   otel.Tracer(telemetry.TracerName),
	}
}

// Checkout handles a raw payment checkout body.
func (d *Dispatcher) Checkout(ctx context.Context, body []byte) Response {
	ctx, span := d.tracer.Start(ctx, "dispatch.checkout")
	defer span.End()
	start := time.Now()

	raw, ok := decode(body)
	if !ok {
		return d.fail(ctx, span, opCheckout, unknownProvider, start, invalidPayload())
	}

	req, err := integration.NormalizePayment(raw, d.payments)
	if err != nil {
		return d.fail(ctx, span, opCheckout, unknownProvider, start, err)
	}
	span.SetAttributes(
		attribute.String("provider", req.Provider),
		attribute.String("currency", req.Currency),
	)

	provider, err := d.payments.Get(req.Provider)
	if err != nil {
		return d.fail(ctx, span, opCheckout, req.Provider, start, err)
	}

	result, err := provider.Charge(ctx, req)
	if err != nil {
		return d.fail(ctx, span, opCheckout, req.Provider, start, err)
	}

	d.metrics.RecordRequest(opCheckout, req.Provider, "success", time.Since(start).Seconds())
	return Response{
		Status: http.StatusOK,
		Body: CheckoutEnvelope{
			Success:     true,
			Provider:    req.Provider,
			Amount:      req.Amount,
			Currency:    req.Currency,
			Reference:   result.Reference,
			CheckoutURL: result.CheckoutURL,
			Status:      result.Status,
		},
	}
}

// Quote handles a raw single-courier quote body.
func (d *Dispatcher) Quote(ctx context.Context, body []byte) Response {
	ctx, span := d.tracer.Start(ctx, "dispatch.quote")
	defer span.End()
	start := time.Now()

	raw, ok := decode(body)
	if !ok {
		return d.fail(ctx, span, opQuote, unknownProvider, start, invalidPayload())
	}

	req, err := integration.NormalizeDelivery(raw, d.couriers)
	if err != nil {
		return d.fail(ctx, span, opQuote, unknownProvider, start, err)
	}
	span.SetAttributes(attribute.String("provider", req.Provider))

	courier, err := d.couriers.Get(req.Provider)
	if err != nil {
		return d.fail(ctx, span, opQuote, req.Provider, start, err)
	}

	result, err := courier.Quote(ctx, req)
	if err != nil {
		return d.fail(ctx, span, opQuote, req.Provider, start, err)
	}

	d.metrics.RecordRequest(opQuote, req.Provider, "success", time.Since(start).Seconds())
	return Response{
		Status: http.StatusOK,
		Body: QuoteEnvelope{
			Success:     true,
			Provider:    req.Provider,
			Weight:      req.Weight,
			Origin:      req.Origin,
			Destination: req.Destination,
			Reference:   result.Reference,
			Cost:        result.Cost,
			TransitTime: result.TransitTime,
		},
	}
}

// QuoteAll quotes every registered courier in parallel. It fails with 502
// only when no courier produced a quote.
func (d *Dispatcher) QuoteAll(ctx context.Context, body []byte) Response {
	ctx, span := d.tracer.Start(ctx, "dispatch.quote_all")
	defer span.End()
	start := time.Now()

	raw, ok := decode(body)
	if !ok {
		return d.fail(ctx, span, opQuoteAll, unknownProvider, start, invalidPayload())
	}

	req, err := integration.NormalizeDelivery(raw, nil)
	if err != nil {
		return d.fail(ctx, span, opQuoteAll, unknownProvider, start, err)
	}

	results, failures := d.couriers.QuoteAll(ctx, req)
	span.SetAttributes(
		attribute.Int("quotes", len(results)),
		attribute.Int("failures", len(failures)),
	)

	envelope := ComparisonEnvelope{
		Success: true,
		Quotes:  make([]Quote, 0, len(results)),
		Errors:  make([]QuoteError, 0, len(failures)),
	}
	for _, r := range results {
		envelope.Quotes = append(envelope.Quotes, Quote{
			Provider:    r.Provider,
			Reference:   r.Reference,
			Cost:        r.Cost,
			TransitTime: r.TransitTime,
		})
	}
	for _, f := range failures {
		d.logFailure(ctx, opQuoteAll, f.Provider, f.Err)
		envelope.Errors = append(envelope.Errors, QuoteError{
			Provider: f.Provider,
			Error:    integration.PublicMessage(f.Err),
		})
	}

	if len(results) == 0 {
		span.SetStatus(codes.Error, "no courier returned a quote")
		d.metrics.RecordRequest(opQuoteAll, unknownProvider, "error", time.Since(start).Seconds())
		envelope.Success = false
		return Response{Status: http.StatusBadGateway, Body: envelope}
	}

	d.metrics.RecordRequest(opQuoteAll, unknownProvider, "success", time.Since(start).Seconds())
	return Response{Status: http.StatusOK, Body: envelope}
}

// Failure converts any error into the failure envelope. Errors outside the
// taxonomy are answered with a generic 500.
func Failure(err error) Response {
	return Response{
		Status: integration.StatusOf(err),
		Body:   ErrorEnvelope{Success: false, Error: integration.PublicMessage(err)},
	}
}

func (d *Dispatcher) fail(ctx context.Context, span trace.Span, op, provider string, start time.Time, err error) Response {
	span.RecordError(err)
	span.SetStatus(codes.Error, integration.KindOf(err))
	d.logFailure(ctx, op, provider, err)
	d.metrics.RecordRequest(op, provider, "error", time.Since(start).Seconds())
	d.metrics.RecordError(provider, integration.KindOf(err))
	return Failure(err)
}

func (d *Dispatcher) logFailure(ctx context.Context, op, provider string, err error) {
	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("provider", provider),
		zap.String("kind", integration.KindOf(err)),
		zap.Error(err),
	}
	if !integration.IsKnown(err) || integration.StatusOf(err) >= http.StatusInternalServerError {
		d.logger.Ctx(ctx).Error("Request failed", fields...)
		return
	}
	d.logger.Ctx(ctx).Warn("Request rejected", fields...)
}

func decode(body []byte) (map[string]any, bool) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, false
	}
	return raw, true
}

func invalidPayload() error {
	return integration.ValidationError("", "Invalid request payload")
}
