// Package mnp provides the M&P (Muller & Phipps) courier quoting adapter.
package mnp

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
	courierName     = "mnp"
	fallbackMessage = "M&P quote request failed"
)

// Config holds M&P configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func (c Config) credentials() error {
	return integration.RequireCredentials("M&P",
		integration.Credential{Env: "MNP_API_URL", Value: c.BaseURL},
		integration.Credential{Env: "MNP_API_KEY", Value: c.APIKey},
	)
}

// Client is the M&P courier client.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *otelzap.Logger
}

// New creates a new M&P client.
func New(cfg Config, logger *otelzap.Logger) *Client {
	return NewWithHTTPClient(cfg, integration.NewHTTPClient(cfg.Timeout), logger)
}

// NewWithHTTPClient creates an M&P client with a custom HTTP client.
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

// Quote returns an M&P delivery quote.
func (c *Client) Quote(ctx context.Context, req *integration.DeliveryRequest) (*integration.Result, error) {
	if err := c.config.credentials(); err != nil {
		return nil, err
	}

	httpReq, err := delivery.NewQuoteRequest(c.config.BaseURL, req)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	c.logger.Ctx(ctx).Info("Getting M&P quote",
		zap.String("origin", req.Origin),
		zap.String("destination", req.Destination),
		zap.Float64("weight_kg", req.Weight),
	)

	body, err := integration.Send(ctx, c.httpClient, httpReq, courierName, fallbackMessage)
	if err != nil {
		c.logger.Ctx(ctx).Error("M&P API error", zap.Error(err))
		return nil, err
	}

	return &integration.Result{
		Provider:    courierName,
		Reference:   integration.FirstString(body, "orderReferenceId", "reference", "id"),
		Cost:        integration.FirstString(body, "amount", "cost", "price"),
		TransitTime: integration.FirstString(body, "estimatedDelivery", "transitTime"),
	}, nil
}

var _ delivery.Courier = (*Client)(nil)
