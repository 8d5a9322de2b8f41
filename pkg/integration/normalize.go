package integration

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ProviderSet answers whether a lower-cased provider identifier has an adapter.
type ProviderSet interface {
	Has(name string) bool
}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// NormalizePayment validates a raw checkout body. Field errors are reported
// before the provider identifier is matched against known.
func NormalizePayment(raw map[string]any, known ProviderSet) (*PaymentRequest, error) {
	provider, err := requireString(raw, "provider")
	if err != nil {
		return nil, err
	}
	amount, err := requirePositive(raw, "amount")
	if err != nil {
		return nil, err
	}

	currency := DefaultCurrency
	if v, ok := raw["currency"]; ok && v != nil {
		c, ok := v.(string)
		if !ok {
			return nil, ValidationError("currency", "currency must be a string")
		}
		// Blank behaves like absent.
		if c = strings.TrimSpace(c); c != "" {
			currency = strings.ToUpper(c)
		}
		if !currencyPattern.MatchString(currency) {
			return nil, ValidationError("currency", "currency must be a three-letter ISO-4217 code")
		}
	}

	metadata, err := optionalMetadata(raw)
	if err != nil {
		return nil, err
	}

	name, err := matchProvider(provider, known)
	if err != nil {
		return nil, err
	}

	return &PaymentRequest{
		Provider: name,
		Amount:   amount,
		Currency: currency,
		Metadata: metadata,
	}, nil
}

// NormalizeDelivery validates a raw quote body. A nil known set skips the
// provider check, which is how the quote-all path uses it.
func NormalizeDelivery(raw map[string]any, known ProviderSet) (*DeliveryRequest, error) {
	var provider string
	if known != nil {
		p, err := requireString(raw, "provider")
		if err != nil {
			return nil, err
		}
		provider = p
	}

	weight, err := requirePositive(raw, "weight")
	if err != nil {
		return nil, err
	}
	origin, err := requireString(raw, "origin")
	if err != nil {
		return nil, err
	}
	destination, err := requireString(raw, "destination")
	if err != nil {
		return nil, err
	}
	metadata, err := optionalMetadata(raw)
	if err != nil {
		return nil, err
	}

	req := &DeliveryRequest{
		Weight:      weight,
		Origin:      origin,
		Destination: destination,
		Metadata:    metadata,
	}
	if known != nil {
		if req.Provider, err = matchProvider(provider, known); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func matchProvider(provider string, known ProviderSet) (string, error) {
	name := strings.ToLower(provider)
	if known == nil || !known.Has(name) {
		return "", UnsupportedProviderError(provider)
	}
	return name, nil
}

func requireString(raw map[string]any, field string) (string, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return "", ValidationError(field, fmt.Sprintf("%s is required", field))
	}
	s, ok := v.(string)
	if !ok {
		return "", ValidationError(field, fmt.Sprintf("%s must be a string", field))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ValidationError(field, fmt.Sprintf("%s is required", field))
	}
	return s, nil
}

func requirePositive(raw map[string]any, field string) (float64, error) {
	invalid := ValidationError(field, fmt.Sprintf("%s must be a positive number", field))

	var n float64
	switch v := raw[field].(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, invalid
		}
		n = f
	default:
		return 0, invalid
	}

	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return 0, invalid
	}
	return n, nil
}

func optionalMetadata(raw map[string]any) (Metadata, error) {
	v, ok := raw["metadata"]
	if !ok || v == nil {
		return Metadata{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ValidationError("metadata", "metadata must be an object")
	}
	for k, val := range m {
		switch val.(type) {
		case nil, string, float64, bool, int, int64:
		default:
			return nil, ValidationError("metadata", fmt.Sprintf("metadata.%s must be a scalar value", k))
		}
	}
	return Metadata(m), nil
}
