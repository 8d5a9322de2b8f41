package integration

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an Error for the response boundary.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindUnsupportedProvider Kind = "unsupported_provider"
	KindConfiguration       Kind = "configuration"
	KindUpstream            Kind = "upstream"
	KindUnresolvableKey     Kind = "unresolvable_key"
	KindNotFound            Kind = "not_found"
	KindStorage             Kind = "storage"
)

// Error is the single error type translated into an envelope at the edge.
type Error struct {
	Kind       Kind
	Provider   string
	Field      string
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Provider != "" {
		prefix = e.Provider + " " + prefix
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", prefix, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithStatus overrides the HTTP status of the error.
func (e *Error) WithStatus(code int) *Error {
	e.StatusCode = code
	return e
}

// WithProvider tags the error with the provider it came from.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// ValidationError reports malformed or missing client input for field.
func ValidationError(field, message string) *Error {
	return &Error{
		Kind:       KindValidation,
		Field:      field,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// UnsupportedProviderError reports a provider identifier with no adapter.
func UnsupportedProviderError(provider string) *Error {
	return &Error{
		Kind:       KindUnsupportedProvider,
		Message:    fmt.Sprintf("Unsupported provider: %s", provider),
		StatusCode: http.StatusBadRequest,
		Cause:      ErrProviderNotFound,
	}
}

// ConfigurationError reports missing server-side credentials by environment key.
// Secret values are never part of the message.
func ConfigurationError(provider string, missing []string) *Error {
	return &Error{
		Kind:       KindConfiguration,
		Provider:   provider,
		Message:    fmt.Sprintf("%s is not configured: missing %s", provider, strings.Join(missing, ", ")),
		StatusCode: http.StatusInternalServerError,
	}
}

// UpstreamError reports a failed third-party call. Status 0 means unknown.
func UpstreamError(provider string, status int, message string) *Error {
	if status < 400 {
		status = http.StatusInternalServerError
	}
	return &Error{
		Kind:       KindUpstream,
		Provider:   provider,
		Message:    message,
		StatusCode: status,
	}
}

// UnresolvableKeyError reports a URL that matches none of the storage base URLs.
func UnresolvableKeyError(rawURL string) *Error {
	return &Error{
		Kind:       KindUnresolvableKey,
		Message:    "Unable to resolve storage key from URL",
		StatusCode: http.StatusBadRequest,
		Cause:      fmt.Errorf("no base URL matches %q", rawURL),
	}
}

// NotFoundError reports an absent backend object.
func NotFoundError(key string) *Error {
	return &Error{
		Kind:       KindNotFound,
		Message:    "Object not found",
		StatusCode: http.StatusNotFound,
		Cause:      fmt.Errorf("%w: %s", ErrObjectNotFound, key),
	}
}

// StorageError reports any other backend failure.
func StorageError(message string) *Error {
	return &Error{
		Kind:       KindStorage,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// Sentinel errors.
var (
	// ErrProviderNotFound indicates the provider is not registered.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrPathTraversal indicates a storage path with a ".." segment.
	ErrPathTraversal = errors.New("path traversal is not allowed")

	// ErrEmptyPath indicates a storage path that normalizes to nothing.
	ErrEmptyPath = errors.New("path is required")

	// ErrObjectNotFound indicates the backend has no object for a key.
	ErrObjectNotFound = errors.New("object not found")
)

const genericMessage = "Internal server error"

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.StatusCode != 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the client-safe message for err. Anything outside the
// taxonomy is reported generically.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return genericMessage
}

// IsKnown reports whether err belongs to the taxonomy.
func IsKnown(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// KindOf returns the kind of err, or "internal" when it is outside the taxonomy.
func KindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return "internal"
}
