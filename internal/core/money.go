// Package core provides money parsing and handling utilities.
//
// Amounts are shopspring decimals. Parsing keeps the scale the caller wrote so
// that "10.50" round-trips through storage and JSON unchanged.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the scale of every converted amount.
const MoneyPlaces = 2

// ParseAmount parses a decimal string. Both dot (12.34) and comma (12,34)
// separators are accepted. The sign is not checked here; validation does that.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, Validationf("amount is required")
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Validationf("invalid amount: %s", s)
	}
	return d, nil
}

// RoundMoney rounds to two places, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// FormatAmount renders d keeping its scale, e.g. "10.50" stays "10.50".
func FormatAmount(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}
