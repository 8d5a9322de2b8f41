package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bazaarhub/integrations/internal/dispatch"
	"github.com/bazaarhub/integrations/internal/server"
	"github.com/bazaarhub/integrations/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "integrations",
	Short:   "Bazaar integration gateway - payments, delivery quotes and object storage",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the enabled payment providers and couriers",
	RunE:  runProviders,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(providersCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(context.Background())
	}

	payments := initPaymentRegistry(cfg, logger)
	couriers := initCourierRegistry(cfg, logger)
	store := initStore(cfg, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(reg)

	logger.Info("Starting integration gateway",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.Strings("payment_providers", payments.Names()),
		zap.Strings("couriers", couriers.Names()),
	)

	dispatcher := dispatch.New(payments, couriers, logger, metrics)
	srv := server.New(server.Config{
		Port:           cfg.Port,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, dispatcher, store, logger, metrics, reg)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runProviders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := otelzap.New(zap.NewNop())

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "payment:")
	for _, name := range initPaymentRegistry(cfg, logger).Names() {
		fmt.Fprintf(out, "  %s\n", name)
	}
	fmt.Fprintln(out, "delivery:")
	for _, name := range initCourierRegistry(cfg, logger).Names() {
		fmt.Fprintf(out, "  %s\n", name)
	}
	return nil
}
