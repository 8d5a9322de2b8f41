package main

import (
	"context"

	"github.com/bazaarhub/integrations/internal/config"
	"github.com/bazaarhub/integrations/internal/telemetry"
	"github.com/bazaarhub/integrations/pkg/delivery"
	"github.com/bazaarhub/integrations/pkg/delivery/leopards"
	deliverymock "github.com/bazaarhub/integrations/pkg/delivery/mock"
	"github.com/bazaarhub/integrations/pkg/delivery/mnp"
	"github.com/bazaarhub/integrations/pkg/delivery/tcs"
	"github.com/bazaarhub/integrations/pkg/payment"
	"github.com/bazaarhub/integrations/pkg/payment/easypaisa"
	"github.com/bazaarhub/integrations/pkg/payment/jazzcash"
	paymentmock "github.com/bazaarhub/integrations/pkg/payment/mock"
	"github.com/bazaarhub/integrations/pkg/payment/stripe"
	"github.com/bazaarhub/integrations/pkg/storage"
	"github.com/bazaarhub/integrations/pkg/storage/s3"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.Attributes()...)
	return shutdown, err
}

func initPaymentRegistry(cfg *config.Config, logger *otelzap.Logger) *payment.Registry {
	registry := payment.NewRegistry()

	if cfg.StripeEnabled {
		if cfg.StripeUseMock {
			registry.Register(paymentmock.New("stripe"))
		} else {
			registry.Register(stripe.New(stripe.Config{
				BaseURL:    cfg.StripeAPIURL,
				SecretKey:  cfg.StripeSecretKey,
				SuccessURL: cfg.StripeSuccessURL,
				CancelURL:  cfg.StripeCancelURL,
				Timeout:    cfg.HTTPTimeout,
			}, logger))
		}
	}

	if cfg.EasyPaisaEnabled {
		if cfg.EasyPaisaUseMock {
			registry.Register(paymentmock.New("easypaisa"))
		} else {
			registry.Register(easypaisa.New(easypaisa.Config{
				BaseURL:  cfg.EasyPaisaAPIURL,
				Username: cfg.EasyPaisaUsername,
				Password: cfg.EasyPaisaPassword,
				Timeout:  cfg.HTTPTimeout,
			}, logger))
		}
	}

	if cfg.JazzCashEnabled {
		if cfg.JazzCashUseMock {
			registry.Register(paymentmock.New("jazzcash"))
		} else {
			registry.Register(jazzcash.New(jazzcash.Config{
				BaseURL:    cfg.JazzCashAPIURL,
				MerchantID: cfg.JazzCashMerchantID,
				Password:   cfg.JazzCashPassword,
				APIKey:     cfg.JazzCashAPIKey,
				Timeout:    cfg.HTTPTimeout,
			}, logger))
		}
	}

	return registry
}

func initCourierRegistry(cfg *config.Config, logger *otelzap.Logger) *delivery.Registry {
	registry := delivery.NewRegistry()

	if cfg.TCSEnabled {
		if cfg.TCSUseMock {
			registry.Register(deliverymock.New("tcs"))
		} else {
			registry.Register(tcs.New(tcs.Config{
				BaseURL: cfg.TCSAPIURL,
				APIKey:  cfg.TCSAPIKey,
				Timeout: cfg.HTTPTimeout,
			}, logger))
		}
	}

	if cfg.LeopardsEnabled {
		if cfg.LeopardsUseMock {
			registry.Register(deliverymock.New("leopards"))
		} else {
			registry.Register(leopards.New(leopards.Config{
				BaseURL:  cfg.LeopardsAPIURL,
				APIKey:   cfg.LeopardsAPIKey,
				Password: cfg.LeopardsAPIPassword,
				Timeout:  cfg.HTTPTimeout,
			}, logger))
		}
	}

	if cfg.MNPEnabled {
		if cfg.MNPUseMock {
			registry.Register(deliverymock.New("mnp"))
		} else {
			registry.Register(mnp.New(mnp.Config{
				BaseURL: cfg.MNPAPIURL,
				APIKey:  cfg.MNPAPIKey,
				Timeout: cfg.HTTPTimeout,
			}, logger))
		}
	}

	return registry
}

// initStore builds the object store. Incomplete storage credentials do not
// stop the server; storage calls answer with the configuration error instead.
func initStore(cfg *config.Config, logger *otelzap.Logger) *storage.Store {
	var backend storage.Backend
	b, err := s3.New(s3.Config{
		Region:          cfg.StorageRegion,
		Bucket:          cfg.StorageBucket,
		AccessKeyID:     cfg.StorageAccessKeyID,
		SecretAccessKey: cfg.StorageSecretAccessKey,
		Endpoint:        cfg.StorageEndpoint,
		UsePathStyle:    cfg.StorageUsePathStyle,
		Timeout:         cfg.HTTPTimeout,
	})
	if err != nil {
		logger.Warn("Object storage is not configured", zap.Error(err))
		backend = storage.Unavailable(err)
	} else {
		backend = b
	}

	resolver := storage.NewResolver(storage.ResolverConfig{
		Bucket:    cfg.StorageBucket,
		Region:    cfg.StorageRegion,
		PublicURL: cfg.StoragePublicURL,
	})

	return storage.NewStore(storage.Config{
		ACL:                   cfg.StorageACL,
		CacheControl:          cfg.StorageCacheControl,
		ACLUnsupportedMarkers: cfg.StorageACLMarkers,
	}, backend, resolver, logger)
}
