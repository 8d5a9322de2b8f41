package telemetry_test

import (
	"context"
	"testing"

	"github.com/bazaarhub/integrations/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestNewLogger_Levels(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "warn", "error", "bogus", ""} {
		logger, err := telemetry.NewLogger(level)
		require.NoError(t, err, level)
		assert.NotNil(t, logger)
	}
}

func TestMetrics_RecordRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg)

	m.RecordRequest("checkout", "stripe", "success", 0.2)
	m.RecordRequest("checkout", "stripe", "success", 0.1)
	m.RecordError("tcs", "upstream")
	m.RecordUpload(1024)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("checkout", "stripe", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderErrors.WithLabelValues("tcs", "upstream")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(m.StorageBytes))
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.NewMetrics(prometheus.NewRegistry())
		telemetry.NewMetrics(prometheus.NewRegistry())
	})
}

func TestInitTracer(t *testing.T) {
	provider, shutdown, err := telemetry.InitTracer(context.Background(), "localhost:4318",
		attribute.String("service.name", "test"))

	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.NoError(t, shutdown(context.Background()))
}
