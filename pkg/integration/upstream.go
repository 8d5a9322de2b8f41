package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	// DefaultTimeout bounds every outbound provider call.
	DefaultTimeout = 30 * time.Second

	// MaxResponseBytes bounds how much of a provider response is read.
	MaxResponseBytes = 1 << 20
)

// Credential pairs an environment key with its resolved value.
type Credential struct {
	Env   string
	Value string
}

// RequireCredentials fails with a ConfigurationError naming every empty key.
func RequireCredentials(provider string, creds ...Credential) error {
	var missing []string
	for _, c := range creds {
		if c.Value == "" {
			missing = append(missing, c.Env)
		}
	}
	if len(missing) > 0 {
		return ConfigurationError(provider, missing)
	}
	return nil
}

// NewHTTPClient returns the client adapters use for their single outbound call.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Send issues req and returns the best-effort parsed body of a 2xx response.
// Any other outcome becomes an UpstreamError; a body that is not a JSON
// object yields a nil map rather than an error.
func Send(ctx context.Context, client *http.Client, req *http.Request, provider, fallback string) (map[string]any, error) {
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "bazaarhub-integrations/1.0")

	resp, err := client.Do(req)
	if err != nil {
		msg := fmt.Sprintf("%s request failed", provider)
		if isTimeout(err) {
			msg = fmt.Sprintf("%s request timed out", provider)
		}
		return nil, UpstreamError(provider, 0, msg).WithCause(err)
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if ok {
		switch {
		case err != nil:
			return nil, UpstreamError(provider, 0, fmt.Sprintf("%s response could not be read", provider)).WithCause(err)
		case len(data) > MaxResponseBytes:
			return nil, UpstreamError(provider, 0, fmt.Sprintf("%s response is too large", provider))
		}
	}
	body := ParseBody(data)

	if !ok {
		msg := MessageFrom(body)
		if msg == "" {
			msg = fallback
		}
		return nil, UpstreamError(provider, resp.StatusCode, msg).
			WithCause(fmt.Errorf("HTTP %d", resp.StatusCode))
	}
	return body, nil
}

// ParseBody decodes data as a JSON object, returning nil when it is not one.
func ParseBody(data []byte) map[string]any {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil
	}
	return body
}

// MessageFrom extracts a human-readable message from an error body.
func MessageFrom(body map[string]any) string {
	if body == nil {
		return ""
	}
	if s, ok := body["message"].(string); ok && s != "" {
		return s
	}
	switch e := body["error"].(type) {
	case string:
		return e
	case map[string]any:
		if s, ok := e["message"].(string); ok {
			return s
		}
	}
	return ""
}

// FirstString returns the first key of body holding a non-null, non-empty
// value, rendered as a string. It returns nil when none does.
func FirstString(body map[string]any, keys ...string) *string {
	for _, k := range keys {
		if s, ok := scalarString(body[k]); ok {
			return &s
		}
	}
	return nil
}

// StringOr returns FirstString, falling back to def.
func StringOr(def string, body map[string]any, keys ...string) *string {
	if s := FirstString(body, keys...); s != nil {
		return s
	}
	return &def
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
