package delivery_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bazaarhub/integrations/pkg/delivery"
	"github.com/bazaarhub/integrations/pkg/delivery/mock"
	"github.com/bazaarhub/integrations/pkg/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quoteRequest() *integration.DeliveryRequest {
	return &integration.DeliveryRequest{
		Weight:      2,
		Origin:      "Lahore",
		Destination: "Karachi",
	}
}

func TestRegistry_Register(t *testing.T) {
	registry := delivery.NewRegistry()
	registry.Register(mock.New("tcs"))

	got, err := registry.Get("tcs")
	require.NoError(t, err)
	assert.Equal(t, "tcs", got.Name())
	assert.True(t, registry.Has("TCS"))
}

func TestRegistry_QuoteAll(t *testing.T) {
	registry := delivery.NewRegistry()
	registry.Register(mock.New("tcs"))
	registry.Register(mock.New("leopards"))
	registry.Register(mock.New("mnp"))

	quotes, failures := registry.QuoteAll(context.Background(), quoteRequest())

	assert.Empty(t, failures)
	require.Len(t, quotes, 3)
	assert.Equal(t, "leopards", quotes[0].Provider)
	assert.Equal(t, "300.00", *quotes[0].Cost)
}

func TestRegistry_QuoteAll_PartialFailure(t *testing.T) {
	failing := mock.New("leopards")
	failing.OnQuote = func(ctx context.Context, req *integration.DeliveryRequest) (*integration.Result, error) {
		return nil, integration.UpstreamError("leopards", 503, "Leopards quote request failed")
	}

	registry := delivery.NewRegistry()
	registry.Register(mock.New("tcs"))
	registry.Register(failing)

	quotes, failures := registry.QuoteAll(context.Background(), quoteRequest())

	require.Len(t, quotes, 1)
	assert.Equal(t, "tcs", quotes[0].Provider)
	require.Len(t, failures, 1)
	assert.Equal(t, "leopards", failures[0].Provider)
	assert.Equal(t, 503, integration.StatusOf(failures[0].Err))
}

func TestRegistry_QuoteAll_SetsProviderPerCourier(t *testing.T) {
	seen := make(chan string, 2)
	record := func(name string) *mock.Client {
		c := mock.New(name)
		c.OnQuote = func(ctx context.Context, req *integration.DeliveryRequest) (*integration.Result, error) {
			seen <- req.Provider
			return &integration.Result{Provider: name}, nil
		}
		return c
	}

	registry := delivery.NewRegistry()
	registry.Register(record("tcs"))
	registry.Register(record("mnp"))

	req := quoteRequest()
	_, failures := registry.QuoteAll(context.Background(), req)
	close(seen)

	assert.Empty(t, failures)
	var got []string
	for p := range seen {
		got = append(got, p)
	}
	assert.ElementsMatch(t, []string{"tcs", "mnp"}, got)
	assert.Empty(t, req.Provider)
}

func TestRegistry_QuoteAll_Empty(t *testing.T) {
	quotes, failures := delivery.NewRegistry().QuoteAll(context.Background(), quoteRequest())
	assert.Empty(t, quotes)
	assert.Empty(t, failures)
}

func TestRegistry_Get_NotFound(t *testing.T) {
	_, err := delivery.NewRegistry().Get("dhl")
	assert.True(t, errors.Is(err, integration.ErrProviderNotFound))
}
