// Package tcs provides the TCS courier quoting adapter.
package tcs

import (
	"context"
	"net/http"
	"time"

	"github.com/bazaarhub/integrations/pkg/delivery"
	"github.com/bazaarhub/integrations/pkg/integration"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const (
	courierName     = "tcs"
	fallbackMessage = "TCS quote request failed"
)

// Config holds TCS configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func (c Config) credentials() error {
	return integration.RequireCredentials("TCS",
		integration.Credential{Env: "TCS_API_URL", Value: c.BaseURL},
		integration.Credential{Env: "TCS_API_KEY", Value: c.APIKey},
	)
}

// Client is the TCS courier client.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *otelzap.Logger
}

// New creates a new TCS client.
func New(cfg Config, logger *otelzap.Logger) *Client {
	return NewWithHTTPClient(cfg, integration.NewHTTPClient(cfg.Timeout), logger)
}

// NewWithHTTPClient creates a TCS client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *http.Client, logger *otelzap.Logger) *Client {
	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Name returns the courier name.
func (c *Client) Name() string {
	return courierName
}

// Quote returns a TCS delivery quote.
func (c *Client) Quote(ctx context.Context, req *integration.DeliveryRequest) (*integration.Result, error) {
	if err := c.config.credentials(); err != nil {
		return nil, err
	}

	httpReq, err := delivery.NewQuoteRequest(c.config.BaseURL, req)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	c.logger.Ctx(ctx).Info("Getting TCS quote",
		zap.String("origin", req.Origin),
		zap.String("destination", req.Destination),
		zap.Float64("weight_kg", req.Weight),
	)

	body, err := integration.Send(ctx, c.httpClient, httpReq, courierName, fallbackMessage)
	if err != nil {
		c.logger.Ctx(ctx).Error("TCS API error", zap.Error(err))
		return nil, err
	}

	return &integration.Result{
		Provider:    courierName,
		Reference:   integration.FirstString(body, "consignmentNumber", "reference", "id"),
		Cost:        integration.FirstString(body, "cost", "rate", "totalCharges"),
		TransitTime: integration.FirstString(body, "transitTime", "deliveryTime", "eta"),
	}, nil
}

var _ delivery.Courier = (*Client)(nil)
