// Package jazzcash provides the JazzCash hosted checkout adapter.
package jazzcash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bazaarhub/integrations/pkg/integration"
	"github.com/bazaarhub/integrations/pkg/payment"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const (
	providerName    = "jazzcash"
	fallbackMessage = "JazzCash checkout request failed"
	txnTimeLayout   = "20060102150405"
)

// Config holds JazzCash configuration. APIKey is optional.
type Config struct {
	BaseURL    string
	MerchantID string
	Password   string
	APIKey     string
	Timeout    time.Duration
}

func (c Config) credentials() error {
	return integration.RequireCredentials("JazzCash",
		integration.Credential{Env: "JAZZCASH_API_URL", Value: c.BaseURL},
		integration.Credential{Env: "JAZZCASH_MERCHANT_ID", Value: c.MerchantID},
		integration.Credential{Env: "JAZZCASH_PASSWORD", Value: c.Password},
	)
}

// checkoutRequest follows the pp_ field naming of the JazzCash REST API.
type checkoutRequest struct {
	MerchantID  string               `json:"pp_MerchantID"`
	Password    string               `json:"pp_Password"`
	Amount      string               `json:"pp_Amount"` // minor units
	Currency    string               `json:"pp_TxnCurrency"`
	TxnRefNo    string               `json:"pp_TxnRefNo"`
	TxnDateTime string               `json:"pp_TxnDateTime"`
	Metadata    integration.Metadata `json:"metadata"`
}

// Client is the JazzCash payment client.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *otelzap.Logger
	now        func() time.Time
}

// New creates a new JazzCash client.
func New(cfg Config, logger *otelzap.Logger) *Client {
	return NewWithHTTPClient(cfg, integration.NewHTTPClient(cfg.Timeout), logger)
}

// NewWithHTTPClient creates a JazzCash client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *http.Client, logger *otelzap.Logger) *Client {
	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return providerName
}

// Charge requests a hosted checkout from JazzCash.
func (c *Client) Charge(ctx context.Context, req *integration.PaymentRequest) (*integration.Result, error) {
	if err := c.config.credentials(); err != nil {
		return nil, err
	}

	now := c.now()
	txnRef := req.Metadata.String("txnRefNo")
	if txnRef == "" {
		txnRef = "T" + now.Format(txnTimeLayout)
	}

	payload, err := json.Marshal(checkoutRequest{
		MerchantID:  c.config.MerchantID,
		Password:    c.config.Password,
		Amount:      strconv.FormatInt(payment.MinorUnits(req.Amount), 10),
		Currency:    req.Currency,
		TxnRefNo:    txnRef,
		TxnDateTime: now.Format(txnTimeLayout),
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling jazzcash request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.config.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building jazzcash request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("X-API-KEY", c.config.APIKey)
	}

	c.logger.Ctx(ctx).Info("Creating JazzCash checkout",
		zap.Float64("amount", req.Amount),
		zap.String("currency", req.Currency),
		zap.String("txn_ref", txnRef),
	)

	body, err := integration.Send(ctx, c.httpClient, httpReq, providerName, fallbackMessage)
	if err != nil {
		c.logger.Ctx(ctx).Error("JazzCash API error", zap.Error(err))
		return nil, err
	}

	return &integration.Result{
		Provider:    providerName,
		Reference:   integration.FirstString(body, "pp_TxnRefNo", "transactionId", "id"),
		CheckoutURL: integration.FirstString(body, "paymentUrl", "redirectUrl"),
		Status:      integration.FirstString(body, "status"),
	}, nil
}

var _ payment.Provider = (*Client)(nil)
