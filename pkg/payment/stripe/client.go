// Package stripe provides the Stripe Checkout payment adapter.
package stripe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bazaarhub/integrations/pkg/integration"
	"github.com/bazaarhub/integrations/pkg/payment"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const (
	providerName    = "stripe"
	fallbackMessage = "Stripe checkout request failed"
	defaultItemName = "Marketplace order"
)

// Config holds Stripe configuration.
type Config struct {
	BaseURL    string
	SecretKey  string
	SuccessURL string
	CancelURL  string
	Timeout    time.Duration
}

func (c Config) credentials() error {
	return integration.RequireCredentials("Stripe",
		integration.Credential{Env: "STRIPE_API_URL", Value: c.BaseURL},
		integration.Credential{Env: "STRIPE_SECRET_KEY", Value: c.SecretKey},
	)
}

// Client creates Stripe Checkout sessions.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *otelzap.Logger
}

// New creates a new Stripe client.
func New(cfg Config, logger *otelzap.Logger) *Client {
	return NewWithHTTPClient(cfg, integration.NewHTTPClient(cfg.Timeout), logger)
}

// NewWithHTTPClient creates a Stripe client with a custom HTTP client.
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

// Charge creates a checkout session for the request amount.
func (c *Client) Charge(ctx context.Context, req *integration.PaymentRequest) (*integration.Result, error) {
	if err := c.config.credentials(); err != nil {
		return nil, err
	}

	form := c.sessionForm(req)
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/checkout/sessions"

	httpReq, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building stripe request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Ctx(ctx).Info("Creating Stripe checkout session",
		zap.Float64("amount", req.Amount),
		zap.String("currency", req.Currency),
	)

	body, err := integration.Send(ctx, c.httpClient, httpReq, providerName, fallbackMessage)
	if err != nil {
		c.logger.Ctx(ctx).Error("Stripe API error", zap.Error(err))
		return nil, err
	}

	return &integration.Result{
		Provider:    providerName,
		Reference:   integration.FirstString(body, "id"),
		CheckoutURL: integration.FirstString(body, "url"),
		Status:      integration.FirstString(body, "status"),
	}, nil
}

func (c *Client) sessionForm(req *integration.PaymentRequest) url.Values {
	name := req.Metadata.String("description")
	if name == "" {
		name = defaultItemName
	}
	successURL := req.Metadata.String("successUrl")
	if successURL == "" {
		successURL = c.config.SuccessURL
	}
	cancelURL := req.Metadata.String("cancelUrl")
	if cancelURL == "" {
		cancelURL = c.config.CancelURL
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(payment.MinorUnits(req.Amount), 10))
	form.Set("line_items[0][price_data][product_data][name]", name)
	if successURL != "" {
		form.Set("success_url", successURL)
	}
	if cancelURL != "" {
		form.Set("cancel_url", cancelURL)
	}

	for k, v := range req.Metadata {
		if v != nil {
			form.Set("metadata["+k+"]", fmt.Sprint(v))
		}
	}
	return form
}

var _ payment.Provider = (*Client)(nil)
