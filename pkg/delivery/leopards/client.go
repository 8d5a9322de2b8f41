// Package leopards provides the Leopards Courier quoting adapter.
package leopards

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
	courierName     = "leopards"
	fallbackMessage = "Leopards quote request failed"
)

// Config holds Leopards configuration.
type Config struct {
	BaseURL  string
	APIKey   string
	Password string
	Timeout  time.Duration
}

func (c Config) credentials() error {
	return integration.RequireCredentials("Leopards",
		integration.Credential{Env: "LEOPARDS_API_URL", Value: c.BaseURL},
		integration.Credential{Env: "LEOPARDS_API_KEY", Value: c.APIKey},
		integration.Credential{Env: "LEOPARDS_API_PASSWORD", Value: c.Password},
	)
}

// Client is the Leopards courier client.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *otelzap.Logger
}

// New creates a new Leopards client.
func New(cfg Config, logger *otelzap.Logger) *Client {
	return NewWithHTTPClient(cfg, integration.NewHTTPClient(cfg.Timeout), logger)
}

// NewWithHTTPClient creates a Leopards client with a custom HTTP client.
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

// Quote returns a Leopards delivery quote.
func (c *Client) Quote(ctx context.Context, req *integration.DeliveryRequest) (*integration.Result, error) {
	if err := c.config.credentials(); err != nil {
		return nil, err
	}

	httpReq, err := delivery.NewQuoteRequest(c.config.BaseURL, req)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-Api-Key", c.config.APIKey)
	httpReq.Header.Set("X-Api-Password", c.config.Password)

	c.logger.Ctx(ctx).Info("Getting Leopards quote",
		zap.String("origin", req.Origin),
		zap.String("destination", req.Destination),
		zap.Float64("weight_kg", req.Weight),
	)

	body, err := integration.Send(ctx, c.httpClient, httpReq, courierName, fallbackMessage)
	if err != nil {
		c.logger.Ctx(ctx).Error("Leopards API error", zap.Error(err))
		return nil, err
	}

	return &integration.Result{
		Provider:    courierName,
		Reference:   integration.FirstString(body, "trackingNumber", "cnNumber", "reference"),
		Cost:        integration.FirstString(body, "shipmentCharges", "charges", "cost"),
		TransitTime: integration.FirstString(body, "deliveryDays", "transitTime"),
	}, nil
}

var _ delivery.Courier = (*Client)(nil)
