// Package mock provides an in-process payment provider for sandbox
// deployments and tests.
package mock

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bazaarhub/integrations/pkg/integration"
)

// Client is a mock payment provider.
type Client struct {
	name  string
	calls atomic.Int64

	// OnCharge overrides the default behavior when set.
	OnCharge func(ctx context.Context, req *integration.PaymentRequest) (*integration.Result, error)
}

// New creates a new mock payment provider registered under name.
func New(name string) *Client {
	return &Client{name: name}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// Calls returns how many times Charge was invoked.
func (c *Client) Calls() int64 {
	return c.calls.Load()
}

// Charge returns a mock checkout.
func (c *Client) Charge(ctx context.Context, req *integration.PaymentRequest) (*integration.Result, error) {
	c.calls.Add(1)
	if c.OnCharge != nil {
		return c.OnCharge(ctx, req)
	}

	ref := fmt.Sprintf("%s-checkout-%d", c.name, time.Now().UnixNano())
	url := fmt.Sprintf("https://pay.%s.mock/checkout/%s", c.name, ref)
	status := "pending"
	return &integration.Result{
		Provider:    c.name,
		Reference:   &ref,
		CheckoutURL: &url,
		Status:      &status,
	}, nil
}
