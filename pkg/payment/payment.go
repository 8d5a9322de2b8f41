// Package payment provides the checkout capability implemented by each
// payment provider adapter.
package payment

import (
	"context"
	"math"

	"github.com/bazaarhub/integrations/pkg/integration"
)

// Provider defines the interface that all payment adapters must implement.
type Provider interface {
	// Name returns the provider identifier (e.g., "stripe", "easypaisa", "jazzcash").
	Name() string

	// Charge creates a hosted checkout for the request and returns the
	// normalized result.
	Charge(ctx context.Context, req *integration.PaymentRequest) (*integration.Result, error)
}

// Registry holds the payment providers available to the dispatcher.
type Registry = integration.Registry[Provider]

// NewRegistry creates an empty payment registry.
func NewRegistry() *Registry {
	return integration.NewRegistry[Provider]()
}

// MinorUnits converts a decimal amount into integer minor units (x100, rounded).
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
