package currency

import (
	"strings"

	"moneta/internal/core"
)

// supported is the fixed list of convertible currencies, in display order.
var supported = []string{
	"USD", "EUR", "GBP", "JPY", "CAD", "AUD", "CHF", "CNY", "SEK", "NZD",
	"MXN", "SGD", "HKD", "NOK", "TRY", "RUB", "INR", "BRL", "ZAR", "KRW",
}

var names = map[string]string{
	"USD": "US Dollar",
	"EUR": "Euro",
	"GBP": "British Pound",
	"JPY": "Japanese Yen",
	"CAD": "Canadian Dollar",
	"AUD": "Australian Dollar",
	"CHF": "Swiss Franc",
	"CNY": "Chinese Yuan",
	"SEK": "Swedish Krona",
	"NZD": "New Zealand Dollar",
	"MXN": "Mexican Peso",
	"SGD": "Singapore Dollar",
	"HKD": "Hong Kong Dollar",
	"NOK": "Norwegian Krone",
	"TRY": "Turkish Lira",
	"RUB": "Russian Ruble",
	"INR": "Indian Rupee",
	"BRL": "Brazilian Real",
	"ZAR": "South African Rand",
	"KRW": "South Korean Won",
}

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CAD": "C$",
	"AUD": "A$",
	"CHF": "CHF",
	"CNY": "¥",
	"SEK": "kr",
	"NZD": "NZ$",
	"MXN": "$",
	"SGD": "S$",
	"HKD": "HK$",
	"NOK": "kr",
	"TRY": "₺",
	"RUB": "₽",
	"INR": "₹",
	"BRL": "R$",
	"ZAR": "R",
	"KRW": "₩",
}

// Info describes a supported currency.
type Info struct {
	Code   string
	Name   string
	Symbol string
}

// Supported returns the supported codes in fixed order.
func Supported() []string {
	out := make([]string, len(supported))
	copy(out, supported)
	return out
}

// IsSupported reports whether code, as given, is in the supported list.
func IsSupported(code string) bool {
	for _, c := range supported {
		if c == code {
			return true
		}
	}
	return false
}

// Normalize trims and upper-cases code and checks it against the supported list.
func Normalize(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return "", core.Validationf("currency code cannot be empty")
	}
	if len(c) != 3 {
		return "", core.Validationf("currency code must be 3 characters long")
	}
	if !IsSupported(c) {
		return "", core.Validationf("unsupported currency: %s", c)
	}
	return c, nil
}

// Lookup returns display info for code.
func Lookup(code string) (Info, error) {
	c, err := Normalize(code)
	if err != nil {
		return Info{}, err
	}
	return infoFor(c), nil
}

func infoFor(code string) Info {
	name, ok := names[code]
	if !ok {
		name = code + " Currency"
	}
	symbol, ok := symbols[code]
	if !ok {
		symbol = code
	}
	return Info{Code: code, Name: name, Symbol: symbol}
}
