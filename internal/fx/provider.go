// Package fx converts amounts between expense currencies and the home
// currency. Rates are resolved per calendar date through a persisted
// cache, falling back to the openexchangerates.org API on a miss.
package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://openexchangerates.org/api"

var (
	// ErrProviderUnavailable reports a transport or HTTP failure talking
	// to the rate provider. The caller decides whether to retry.
	ErrProviderUnavailable = errors.New("fx: rate provider unavailable")

	// ErrInvalidRateData reports a provider response that is missing the
	// currencies needed to compute a cross rate. Nothing is cached.
	ErrInvalidRateData = errors.New("fx: invalid rate data from provider")
)

// RateProvider fetches a day's exchange rates and the provider-wide
// currency directory. Rates returns every supported currency's value
// relative to the provider's pivot currency for the given date.
type RateProvider interface {
	Rates(ctx context.Context, date string) (map[string]decimal.Decimal, error)
	Currencies(ctx context.Context) (map[string]string, error)
}

// Client talks to the openexchangerates.org HTTP API.
type Client struct {
	baseURL string
	appID   string
	http    *http.Client
}

// Ensure Client implements RateProvider.
var _ RateProvider = (*Client)(nil)

// NewClient creates a provider client. The timeout bounds every request
// so a slow provider surfaces as an error instead of a hang.
func NewClient(appID string, timeout time.Duration) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		appID:   appID,
		http:    &http.Client{Timeout: timeout},
	}
}

// NewClientWithBaseURL creates a provider client against a custom base
// URL. Used by tests to point at a local server.
func NewClientWithBaseURL(baseURL, appID string, timeout time.Duration) *Client {
	c := NewClient(appID, timeout)
	c.baseURL = baseURL
	return c
}

// Rates fetches the historical rates for a date (YYYY-MM-DD). Every value
// is the amount of that currency one pivot unit buys on that date.
func (c *Client) Rates(ctx context.Context, date string) (map[string]decimal.Decimal, error) {
	var payload struct {
		Rates map[string]decimal.Decimal `json:"rates"`
	}
	endpoint := fmt.Sprintf("%s/historical/%s.json", c.baseURL, date)
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	if payload.Rates == nil {
		return nil, fmt.Errorf("%w: response has no rates for %s", ErrInvalidRateData, date)
	}
	return payload.Rates, nil
}

// Currencies fetches the provider's currency directory, mapping currency
// codes to display names.
func (c *Client) Currencies(ctx context.Context) (map[string]string, error) {
	currencies := make(map[string]string)
	if err := c.getJSON(ctx, c.baseURL+"/currencies.json", &currencies); err != nil {
		return nil, err
	}
	return currencies, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build provider request: %w", err)
	}
	q := url.Values{"app_id": {c.appID}}
	req.URL.RawQuery = q.Encode()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRateData, err)
	}
	return nil
}
