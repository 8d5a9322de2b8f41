// Package delivery provides the quoting capability implemented by each
// courier adapter.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bazaarhub/integrations/pkg/integration"
	"golang.org/x/sync/errgroup"
)

// Courier defines the interface that all delivery adapters must implement.
type Courier interface {
	// Name returns the courier identifier (e.g., "tcs", "leopards", "mnp").
	Name() string

	// Quote returns the normalized delivery quote for a shipment.
	Quote(ctx context.Context, req *integration.DeliveryRequest) (*integration.Result, error)
}

// Registry manages registered couriers.
type Registry struct {
	*integration.Registry[Courier]
}

// NewRegistry creates a new courier registry.
func NewRegistry() *Registry {
	return &Registry{Registry: integration.NewRegistry[Courier]()}
}

// QuoteFailure records one courier that could not quote.
type QuoteFailure struct {
	Provider string
	Err      error
}

// QuoteAll fetches quotes from all registered couriers in parallel.
// A failing courier does not fail the others. Results and failures are
// returned in registry name order.
func (r *Registry) QuoteAll(ctx context.Context, req *integration.DeliveryRequest) ([]*integration.Result, []QuoteFailure) {
	couriers := r.All()

	results := make([]*integration.Result, len(couriers))
	errs := make([]error, len(couriers))

	g, ctx := errgroup.WithContext(ctx)
	for i, c := range couriers {
		g.Go(func() error {
			perCourier := *req
			perCourier.Provider = c.Name()
			results[i], errs[i] = c.Quote(ctx, &perCourier)
			return nil
		})
	}
	_ = g.Wait()

	quotes := make([]*integration.Result, 0, len(couriers))
	var failures []QuoteFailure
	for i, c := range couriers {
		if errs[i] != nil {
			failures = append(failures, QuoteFailure{Provider: c.Name(), Err: errs[i]})
			continue
		}
		quotes = append(quotes, results[i])
	}
	return quotes, failures
}

type quotePayload struct {
	Weight      float64              `json:"weight"`
	Origin      string               `json:"origin"`
	Destination string               `json:"destination"`
	Metadata    integration.Metadata `json:"metadata"`
}

// NewQuoteRequest builds the JSON quote body shared by the courier APIs.
// Callers add their own authentication headers.
func NewQuoteRequest(endpoint string, req *integration.DeliveryRequest) (*http.Request, error) {
	payload, err := json.Marshal(quotePayload{
		Weight:      req.Weight,
		Origin:      req.Origin,
		Destination: req.Destination,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling quote request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building quote request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}
