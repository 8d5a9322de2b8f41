// Package mock provides an in-process courier for sandbox deployments and
// tests.
package mock

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bazaarhub/integrations/pkg/integration"
)

// Client is a mock courier.
type Client struct {
	name  string
	calls atomic.Int64

	// OnQuote overrides the default behavior when set.
	OnQuote func(ctx context.Context, req *integration.DeliveryRequest) (*integration.Result, error)
}

// New creates a new mock courier registered under name.
func New(name string) *Client {
	return &Client{name: name}
}

// Name returns the courier name.
func (c *Client) Name() string {
	return c.name
}

// Calls returns how many times Quote was invoked.
func (c *Client) Calls() int64 {
	return c.calls.Load()
}

// Quote returns a mock delivery quote priced at 150 per kg.
func (c *Client) Quote(ctx context.Context, req *integration.DeliveryRequest) (*integration.Result, error) {
	c.calls.Add(1)
	if c.OnQuote != nil {
		return c.OnQuote(ctx, req)
	}

	ref := fmt.Sprintf("%s-quote-%d", c.name, time.Now().UnixNano())
	cost := fmt.Sprintf("%.2f", 150*req.Weight)
	transit := "2-3 days"
	return &integration.Result{
		Provider:    c.name,
		Reference:   &ref,
		Cost:        &cost,
		TransitTime: &transit,
	}, nil
}
