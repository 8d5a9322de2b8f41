package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port           int           `envconfig:"PORT" default:"8080"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	HTTPTimeout    time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	MaxUploadBytes int64         `envconfig:"STORAGE_MAX_UPLOAD_BYTES" default:"26214400"`

	// Stripe
	StripeAPIURL     string `envconfig:"STRIPE_API_URL"`
	StripeSecretKey  string `envconfig:"STRIPE_SECRET_KEY"`
	StripeSuccessURL string `envconfig:"STRIPE_SUCCESS_URL"`
	StripeCancelURL  string `envconfig:"STRIPE_CANCEL_URL"`
	StripeEnabled    bool   `envconfig:"STRIPE_ENABLED" default:"true"`
	StripeUseMock    bool   `envconfig:"STRIPE_USE_MOCK" default:"false"`

	// EasyPaisa
	EasyPaisaAPIURL   string `envconfig:"EASYPAISA_API_URL"`
	EasyPaisaUsername string `envconfig:"EASYPAISA_USERNAME"`
	EasyPaisaPassword string `envconfig:"EASYPAISA_PASSWORD"`
	EasyPaisaEnabled  bool   `envconfig:"EASYPAISA_ENABLED" default:"true"`
	EasyPaisaUseMock  bool   `envconfig:"EASYPAISA_USE_MOCK" default:"false"`

	// JazzCash
	JazzCashAPIURL     string `envconfig:"JAZZCASH_API_URL"`
	JazzCashMerchantID string `envconfig:"JAZZCASH_MERCHANT_ID"`
	JazzCashPassword   string `envconfig:"JAZZCASH_PASSWORD"`
	JazzCashAPIKey     string `envconfig:"JAZZCASH_API_KEY"`
	JazzCashEnabled    bool   `envconfig:"JAZZCASH_ENABLED" default:"true"`
	JazzCashUseMock    bool   `envconfig:"JAZZCASH_USE_MOCK" default:"false"`

	// TCS
	TCSAPIURL  string `envconfig:"TCS_API_URL"`
	TCSAPIKey  string `envconfig:"TCS_API_KEY"`
	TCSEnabled bool   `envconfig:"TCS_ENABLED" default:"true"`
	TCSUseMock bool   `envconfig:"TCS_USE_MOCK" default:"false"`

	// Leopards
	LeopardsAPIURL      string `envconfig:"LEOPARDS_API_URL"`
	LeopardsAPIKey      string `envconfig:"LEOPARDS_API_KEY"`
	LeopardsAPIPassword string `envconfig:"LEOPARDS_API_PASSWORD"`
	LeopardsEnabled     bool   `envconfig:"LEOPARDS_ENABLED" default:"true"`
	LeopardsUseMock     bool   `envconfig:"LEOPARDS_USE_MOCK" default:"false"`

	// M&P
	MNPAPIURL  string `envconfig:"MNP_API_URL"`
	MNPAPIKey  string `envconfig:"MNP_API_KEY"`
	MNPEnabled bool   `envconfig:"MNP_ENABLED" default:"true"`
	MNPUseMock bool   `envconfig:"MNP_USE_MOCK" default:"false"`

	// Storage
	StorageRegion          string   `envconfig:"STORAGE_REGION"`
	StorageBucket          string   `envconfig:"STORAGE_BUCKET"`
	StorageAccessKeyID     string   `envconfig:"STORAGE_ACCESS_KEY_ID"`
	StorageSecretAccessKey string   `envconfig:"STORAGE_SECRET_ACCESS_KEY"`
	StorageEndpoint        string   `envconfig:"STORAGE_ENDPOINT"`
	StorageUsePathStyle    bool     `envconfig:"STORAGE_USE_PATH_STYLE" default:"false"`
	StoragePublicURL       string   `envconfig:"STORAGE_PUBLIC_URL"`
	StorageACL             string   `envconfig:"STORAGE_ACL" default:"public-read"`
	StorageCacheControl    string   `envconfig:"STORAGE_CACHE_CONTROL" default:"public, max-age=31536000, immutable"`
	StorageACLMarkers      []string `envconfig:"STORAGE_ACL_UNSUPPORTED_MARKERS"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"bazaar-integrations"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
// Credentials are reported only as configured or not.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("stripe.enabled", c.StripeEnabled),
		attribute.Bool("easypaisa.enabled", c.EasyPaisaEnabled),
		attribute.Bool("jazzcash.enabled", c.JazzCashEnabled),
		attribute.Bool("tcs.enabled", c.TCSEnabled),
		attribute.Bool("leopards.enabled", c.LeopardsEnabled),
		attribute.Bool("mnp.enabled", c.MNPEnabled),
		attribute.Bool("storage.configured", c.StorageBucket != "" && c.StorageSecretAccessKey != ""),
		attribute.String("storage.acl", c.StorageACL),
	}
}
