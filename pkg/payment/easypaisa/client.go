// Package easypaisa provides the EasyPaisa hosted checkout adapter.
package easypaisa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bazaarhub/integrations/pkg/integration"
	"github.com/bazaarhub/integrations/pkg/payment"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const (
	providerName    = "easypaisa"
	fallbackMessage = "EasyPaisa checkout request failed"
	defaultStatus   = "pending"
)

// Config holds EasyPaisa configuration.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

func (c Config) credentials() error {
	return integration.RequireCredentials("EasyPaisa",
		integration.Credential{Env: "EASYPAISA_API_URL", Value: c.BaseURL},
		integration.Credential{Env: "EASYPAISA_USERNAME", Value: c.Username},
		integration.Credential{Env: "EASYPAISA_PASSWORD", Value: c.Password},
	)
}

type checkoutRequest struct {
	Amount   float64              `json:"amount"`
	Currency string               `json:"currency"`
	Metadata integration.Metadata `json:"metadata"`
}

// Client is the EasyPaisa payment client.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *otelzap.Logger
}

// New creates a new EasyPaisa client.
func New(cfg Config, logger *otelzap.Logger) *Client {
	return NewWithHTTPClient(cfg, integration.NewHTTPClient(cfg.Timeout), logger)
}

// NewWithHTTPClient creates an EasyPaisa client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *http.Client, logger *otelzap.Logger) *Client {
	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return providerName
}

// Charge requests a hosted checkout from EasyPaisa.
func (c *Client) Charge(ctx context.Context, req *integration.PaymentRequest) (*integration.Result, error) {
	if err := c.config.credentials(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(checkoutRequest{
		Amount:   req.Amount,
		Currency: req.Currency,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling easypaisa request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.config.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building easypaisa request: %w", err)
	}
	httpReq.SetBasicAuth(c.config.Username, c.config.Password)
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Ctx(ctx).Info("Creating EasyPaisa checkout",
		zap.Float64("amount", req.Amount),
		zap.String("currency", req.Currency),
	)

	body, err := integration.Send(ctx, c.httpClient, httpReq, providerName, fallbackMessage)
	if err != nil {
		c.logger.Ctx(ctx).Error("EasyPaisa API error", zap.Error(err))
		return nil, err
	}

	return &integration.Result{
		Provider:    providerName,
		Reference:   integration.FirstString(body, "orderId", "transactionId", "id"),
		CheckoutURL: integration.FirstString(body, "checkoutUrl", "redirectUrl"),
		Status:      integration.StringOr(defaultStatus, body, "status"),
	}, nil
}

var _ payment.Provider = (*Client)(nil)
