package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RateProvider returns the latest rates from base to every currency it knows.
type RateProvider interface {
	Latest(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

const maxResponseBytes = 1 << 20

// OpenExchangeRates calls an openexchangerates.org compatible API.
type OpenExchangeRates struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewOpenExchangeRates(baseURL, apiKey string, timeout time.Duration) *OpenExchangeRates {
	return &OpenExchangeRates{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (p *OpenExchangeRates) Latest(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	u := fmt.Sprintf("%s/latest.json?app_id=%s&base=%s", p.baseURL, url.QueryEscape(p.apiKey), url.QueryEscape(base))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch rates: unexpected status %d", resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if body.Rates == nil {
		return nil, fmt.Errorf("decode rates: response has no rates")
	}
	return body.Rates, nil
}
