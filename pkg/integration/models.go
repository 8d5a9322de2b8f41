// Package integration holds the provider-agnostic contract shared by the
// payment and delivery adapters: request and result models, input
// normalization, the error taxonomy and the outbound call helper.
package integration

// DefaultCurrency is used when a payment request omits currency.
const DefaultCurrency = "PKR"

// Metadata is caller-supplied passthrough data. Values are scalars.
type Metadata map[string]any

// PaymentRequest is a validated payment checkout request.
type PaymentRequest struct {
	Provider string
	Amount   float64
	Currency string
	Metadata Metadata
}

// DeliveryRequest is a validated delivery quote request.
type DeliveryRequest struct {
	Provider    string
	Weight      float64 // kg
	Origin      string
	Destination string
	Metadata    Metadata
}

// Result is the normalized outcome of a provider call. Absent fields are nil.
type Result struct {
	Provider    string
	Reference   *string
	Status      *string
	CheckoutURL *string // payment only
	Cost        *string // delivery only
	TransitTime *string // delivery only
}

// String returns the metadata value for key when it is a non-empty string.
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
