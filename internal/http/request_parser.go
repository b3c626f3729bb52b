// Package http provides the JSON API server and its handlers.
//
// This file holds the request decoding helpers shared by the handlers:
// JSON bodies, path ids, dates, paging and sort parameters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/services"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

const localDateTimeLayout = "2006-01-02T15:04:05"

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return core.Validationf("request body is required")
		}
		return core.Validationf("invalid request body: %s", cleanJSONError(err))
	}
	if dec.More() {
		return core.Validationf("invalid request body: multiple JSON values")
	}
	return nil
}

func cleanJSONError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("field %s has the wrong type", typeErr.Field)
	}
	return strings.TrimPrefix(err.Error(), "json: ")
}

// pathID parses a positive int64 path value.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Validationf("invalid %s: %s", name, raw)
	}
	return id, nil
}

// parseDateTime accepts RFC 3339, a local date-time without offset, or a
// bare date. A bare date used as an upper bound means the end of that day.
func parseDateTime(value string, endOfDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(localDateTimeLayout, value, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, value, time.Local); err == nil {
		if endOfDay {
			return t.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return t, nil
	}
	return time.Time{}, core.Validationf("invalid date: %s", value)
}

// parseDateRange reads startDate/endDate. When required is false both may be
// absent; otherwise both must be present.
func parseDateRange(q url.Values, required bool) (core.DateRange, error) {
	start, end := strings.TrimSpace(q.Get("startDate")), strings.TrimSpace(q.Get("endDate"))
	if start == "" && end == "" && !required {
		return core.DateRange{}, nil
	}
	if start == "" || end == "" {
		return core.DateRange{}, core.Validationf("startDate and endDate are required")
	}
	from, err := parseDateTime(start, false)
	if err != nil {
		return core.DateRange{}, err
	}
	to, err := parseDateTime(end, true)
	if err != nil {
		return core.DateRange{}, err
	}
	return core.NewDateRange(from, to)
}

type pageParams struct {
	Page int
	Size int
}

// parsePaging reads page (zero-based), size, sortBy and sortDir.
func parsePaging(q url.Values) (pageParams, core.TransactionFilter, error) {
	p := pageParams{Page: 0, Size: core.DefaultPageSize}
	var f core.TransactionFilter

	if v := strings.TrimSpace(q.Get("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, f, core.Validationf("invalid page: %s", v)
		}
		p.Page = n
	}
	if v := strings.TrimSpace(q.Get("size")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, f, core.Validationf("invalid size: %s", v)
		}
		p.Size = n
	}

	f.SortBy = strings.TrimSpace(q.Get("sortBy"))
	if f.SortBy != "" {
		desc, err := core.ParseSortDir(q.Get("sortDir"))
		if err != nil {
			return p, f, err
		}
		f.Desc = desc
	}
	return p, f, nil
}

// transactionRequest is the body of create and update calls. Amount accepts
// a JSON number or string.
type transactionRequest struct {
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	Type            string          `json:"type"`
	TransactionDate string          `json:"transactionDate"`
	Category        string          `json:"category"`
	Notes           string          `json:"notes"`
}

func (req transactionRequest) toInput() (services.TransactionInput, error) {
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return services.TransactionInput{}, err
	}
	in := services.TransactionInput{
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount,
		Type:        typ,
		Category:    sanitizeInput(req.Category),
		Notes:       sanitizeInput(req.Notes),
	}
	if strings.TrimSpace(req.TransactionDate) != "" {
		in.TransactionDate, err = parseDateTime(req.TransactionDate, false)
		if err != nil {
			return services.TransactionInput{}, err
		}
	}
	return in, nil
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type convertRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	FromCurrency string          `json:"fromCurrency"`
	ToCurrency   string          `json:"toCurrency"`
}

// parseCurrencyList splits a comma separated list, dropping blanks.
func parseCurrencyList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, code := range strings.Split(v, ",") {
			if code = strings.TrimSpace(code); code != "" {
				out = append(out, code)
			}
		}
	}
	return out
}
