// Package currency converts amounts between the supported currencies using
// rates from an external provider. The most recent rates per currency pair
// are kept as a fallback for when the provider is unreachable.
package currency

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"moneta/internal/core"
)

// DefaultStaleAfter is how long fetched rates count as fresh.
const DefaultStaleAfter = time.Hour

// Rate table sources.
const (
	SourceLive   = "live"
	SourceCached = "cached"
)

// Conversion result sources.
const (
	SourceSameCurrency = "Same Currency"
	SourceLiveRates    = "Live Rates"
	SourceCachedRates  = "Cached Rates"
)

type RateTable struct {
	Base      string
	Rates     map[string]decimal.Decimal
	FetchedAt time.Time
	Source    string
}

type ConversionResult struct {
	OriginalAmount  decimal.Decimal
	FromCurrency    string
	ConvertedAmount decimal.Decimal
	ToCurrency      string
	ExchangeRate    decimal.Decimal
	Timestamp       time.Time
	Source          string
}

// Status describes the fallback cache.
type Status struct {
	Stale       bool
	LastRefresh time.Time
	Entries     int
}

type pair struct {
	base   string
	target string
}

// Converter owns the fallback rate cache. It is safe for concurrent use.
type Converter struct {
	provider   RateProvider
	staleAfter time.Duration
	now        func() time.Time

	mu          sync.RWMutex
	fallback    map[pair]decimal.Decimal
	lastRefresh time.Time
}

type Option func(*Converter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) { c.now = now }
}

func WithStaleAfter(d time.Duration) Option {
	return func(c *Converter) { c.staleAfter = d }
}

func NewConverter(provider RateProvider, opts ...Option) *Converter {
	c := &Converter{
		provider:   provider,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
		fallback:   make(map[pair]decimal.Decimal),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRates asks the provider for base's rates on every call. Fresh rates
// are merged into the fallback cache. When the provider fails, the cached
// rates for base are returned instead, or an upstream error if there are none.
func (c *Converter) FetchRates(ctx context.Context, base string) (RateTable, error) {
	code, err := Normalize(base)
	if err != nil {
		return RateTable{}, err
	}

	rates, err := c.provider.Latest(ctx, code)
	if err != nil {
		cached, at := c.cached(code)
		if len(cached) == 0 {
			slog.ErrorContext(ctx, "Exchange rate fetch failed with no cached rates", "base", code, "error", err)
			return RateTable{}, core.Upstream("unable to fetch exchange rates", err)
		}
		slog.WarnContext(ctx, "Exchange rate fetch failed, serving cached rates",
			"base", code, "cached_rates", len(cached), "error", err)
		return RateTable{Base: code, Rates: cached, FetchedAt: at, Source: SourceCached}, nil
	}

	now := c.now()
	c.mu.Lock()
	for target, rate := range rates {
		c.fallback[pair{base: code, target: target}] = rate
	}
	c.lastRefresh = now
	c.mu.Unlock()

	slog.DebugContext(ctx, "Exchange rates fetched", "base", code, "rates", len(rates))
	return RateTable{Base: code, Rates: rates, FetchedAt: now, Source: SourceLive}, nil
}

// Convert converts amount from one currency to another, rounding to two
// places half-up. Same-currency conversions never reach the provider.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (ConversionResult, error) {
	fromCode, toCode, err := normalizePair(from, to)
	if err != nil {
		return ConversionResult{}, err
	}

	if fromCode == toCode {
		return ConversionResult{
			OriginalAmount:  amount,
			FromCurrency:    fromCode,
			ConvertedAmount: amount,
			ToCurrency:      toCode,
			ExchangeRate:    decimal.NewFromInt(1),
			Timestamp:       c.now(),
			Source:          SourceSameCurrency,
		}, nil
	}

	rate, source, err := c.lookup(ctx, fromCode, toCode)
	if err != nil {
		return ConversionResult{}, err
	}

	return ConversionResult{
		OriginalAmount:  amount,
		FromCurrency:    fromCode,
		ConvertedAmount: core.RoundMoney(amount.Mul(rate)),
		ToCurrency:      toCode,
		ExchangeRate:    rate,
		Timestamp:       c.now(),
		Source:          source,
	}, nil
}

// Rate returns the exchange rate from one currency to another.
func (c *Converter) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	fromCode, toCode, err := normalizePair(from, to)
	if err != nil {
		return decimal.Zero, err
	}
	if fromCode == toCode {
		return decimal.NewFromInt(1), nil
	}
	rate, _, err := c.lookup(ctx, fromCode, toCode)
	return rate, err
}

// ConvertMany converts amount into every target concurrently. The first
// failure aborts the batch and no partial results are returned. Results are
// in the order of targets.
func (c *Converter) ConvertMany(ctx context.Context, amount decimal.Decimal, from string, targets []string) ([]ConversionResult, error) {
	results := make([]ConversionResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		g.Go(func() error {
			r, err := c.Convert(gctx, amount, from, target)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// IsStale reports whether rates were never fetched or were last fetched
// more than the staleness window ago.
func (c *Converter) IsStale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isStaleLocked()
}

func (c *Converter) isStaleLocked() bool {
	if c.lastRefresh.IsZero() {
		return true
	}
	return c.now().Sub(c.lastRefresh) > c.staleAfter
}

// Clear empties the fallback cache and forgets the last refresh.
func (c *Converter) Clear() {
	c.mu.Lock()
	c.fallback = make(map[pair]decimal.Decimal)
	c.lastRefresh = time.Time{}
	c.mu.Unlock()
}

func (c *Converter) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		Stale:       c.isStaleLocked(),
		LastRefresh: c.lastRefresh,
		Entries:     len(c.fallback),
	}
}

// Info returns display info for a supported code.
func (c *Converter) Info(code string) (Info, error) {
	return Lookup(code)
}

func (c *Converter) lookup(ctx context.Context, from, to string) (decimal.Decimal, string, error) {
	table, err := c.FetchRates(ctx, from)
	if err != nil {
		return decimal.Zero, "", err
	}
	rate, ok := table.Rates[to]
	if !ok {
		return decimal.Zero, "", core.NotFoundf("exchange rate not found for %s", to)
	}
	source := SourceLiveRates
	if table.Source == SourceCached {
		source = SourceCachedRates
	}
	return rate, source, nil
}

func (c *Converter) cached(base string) (map[string]decimal.Decimal, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]decimal.Decimal)
	for k, v := range c.fallback {
		if k.base == base {
			out[k.target] = v
		}
	}
	return out, c.lastRefresh
}

func normalizePair(from, to string) (string, string, error) {
	fromCode, err := Normalize(from)
	if err != nil {
		return "", "", err
	}
	toCode, err := Normalize(to)
	if err != nil {
		return "", "", err
	}
	return fromCode, toCode, nil
}
