// Package pricefeed implements the REST client for the external native/fiat
// exchange-rate feed. The client is deliberately thin: fallback substitution
// on fetch failure lives in the rate service, which owns the last-known
// value.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Client fetches the ETH/USD rate from a CoinGecko-compatible endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a price feed client for the given endpoint, e.g.
// "https://api.coingecko.com/api/v3/simple/price?ids=ethereum&vs_currencies=usd".
func NewClient(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// rateResponse is the feed's JSON envelope: {"ethereum":{"usd":3151.37}}.
type rateResponse map[string]map[string]json.Number

// FetchRate returns the current native-to-fiat rate. Any transport, decode,
// or shape problem is returned as an error; the caller substitutes its
// fallback.
func (c *Client) FetchRate(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pricefeed: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pricefeed: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("pricefeed: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return decimal.Zero, fmt.Errorf("pricefeed: decode: %w", err)
	}

	for _, quotes := range parsed {
		for _, raw := range quotes {
			rate, err := decimal.NewFromString(raw.String())
			if err != nil {
				return decimal.Zero, fmt.Errorf("pricefeed: parse rate %q: %w", raw.String(), err)
			}
			if rate.Sign() <= 0 {
				return decimal.Zero, fmt.Errorf("pricefeed: non-positive rate %s", rate)
			}
			return rate, nil
		}
	}
	return decimal.Zero, fmt.Errorf("pricefeed: empty response")
}
