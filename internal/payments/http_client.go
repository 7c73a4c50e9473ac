package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient is the production Client backed by the provider's REST API.
// It is deliberately thin: authentication header, JSON decoding, and HTTP
// status mapping; all payment semantics live in the resolver.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewHTTPClient constructs an HTTPClient for the given endpoint and secret
// key. A zero timeout defaults to 15s so a slow provider cannot hang the
// calling request indefinitely.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// RetrieveIntent fetches the current state of a payment intent.
func (c *HTTPClient) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	return c.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id), nil)
}

// ConfirmIntent completes an SCA challenge using the intent's client secret.
func (c *HTTPClient) ConfirmIntent(ctx context.Context, clientSecret string) (*Intent, error) {
	body := strings.NewReader(url.Values{"client_secret": {clientSecret}}.Encode())
	return c.do(ctx, http.MethodPost, "/v1/payment_intents/confirm", body)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader) (*Intent, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payment provider: %s %s -> %d", method, path, resp.StatusCode)
	}

	var intent Intent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, fmt.Errorf("payment provider: decode intent: %w", err)
	}
	return &intent, nil
}
