// Package http provides the JSON API server and its handlers.
//
// This file maps domain values to their JSON shape and domain errors to
// HTTP status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/auth"
	"moneta/internal/core"
	"moneta/internal/currency"
	"moneta/internal/log"
)

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", log.FieldError, err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes {"error": msg}. Internal errors are logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.Message(err)

	logger := log.FromContext(r.Context())
	switch {
	case status >= 500:
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldError, err, log.FieldPath, r.URL.Path, log.FieldStatusCode, status)
		if status == http.StatusInternalServerError {
			msg = "internal server error"
		}
	default:
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldError, err, log.FieldPath, r.URL.Path, log.FieldStatusCode, status)
	}

	writeJSON(w, status, errorResponse{Error: msg})
}

// amount renders d as a JSON number keeping its scale.
func amount(d decimal.Decimal) json.Number {
	return json.Number(core.FormatAmount(d))
}

type transactionResponse struct {
	ID              int64       `json:"id"`
	Description     string      `json:"description"`
	Amount          json.Number `json:"amount"`
	Type            string      `json:"type"`
	TransactionDate time.Time   `json:"transactionDate"`
	Category        string      `json:"category,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:              t.ID,
		Description:     t.Description,
		Amount:          amount(t.Amount),
		Type:            string(t.Type),
		TransactionDate: t.TransactionDate,
		Category:        t.Category,
		Notes:           t.Notes,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func newTransactionList(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionResponse(t))
	}
	return out
}

type pageResponse struct {
	Content       []transactionResponse `json:"content"`
	Page          int                   `json:"page"`
	Size          int                   `json:"size"`
	TotalElements int64                 `json:"totalElements"`
	TotalPages    int                   `json:"totalPages"`
}

func newPageResponse(p core.Page) pageResponse {
	return pageResponse{
		Content:       newTransactionList(p.Items),
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
	}
}

type summaryResponse struct {
	TotalIncome   json.Number `json:"totalIncome"`
	TotalExpenses json.Number `json:"totalExpenses"`
	NetWorth      json.Number `json:"netWorth"`
	IncomeCount   int64       `json:"incomeCount"`
	ExpenseCount  int64       `json:"expenseCount"`
}

func newSummaryResponse(s core.Summary) summaryResponse {
	return summaryResponse{
		TotalIncome:   amount(s.TotalIncome),
		TotalExpenses: amount(s.TotalExpenses),
		NetWorth:      amount(s.NetWorth),
		IncomeCount:   s.IncomeCount,
		ExpenseCount:  s.ExpenseCount,
	}
}

type categorySummaryResponse struct {
	Category         string      `json:"category"`
	TotalAmount      json.Number `json:"totalAmount"`
	TransactionCount int64       `json:"transactionCount"`
	IncomeAmount     json.Number `json:"incomeAmount"`
	ExpenseAmount    json.Number `json:"expenseAmount"`
}

func newCategorySummaries(in []core.CategorySummary) []categorySummaryResponse {
	out := make([]categorySummaryResponse, 0, len(in))
	for _, c := range in {
		out = append(out, categorySummaryResponse{
			Category:         c.Category,
			TotalAmount:      amount(c.TotalAmount),
			TransactionCount: c.TransactionCount,
			IncomeAmount:     amount(c.IncomeAmount),
			ExpenseAmount:    amount(c.ExpenseAmount),
		})
	}
	return out
}

type monthlyTrendResponse struct {
	Month            string      `json:"month"`
	Income           json.Number `json:"income"`
	Expenses         json.Number `json:"expenses"`
	TransactionCount int64       `json:"transactionCount"`
}

func newMonthlyTrends(in []core.MonthlyTrend) []monthlyTrendResponse {
	out := make([]monthlyTrendResponse, 0, len(in))
	for _, m := range in {
		out = append(out, monthlyTrendResponse{
			Month:            m.Month,
			Income:           amount(m.Income),
			Expenses:         amount(m.Expenses),
			TransactionCount: m.TransactionCount,
		})
	}
	return out
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"tokenType"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

func newSessionResponse(s auth.Session) sessionResponse {
	return sessionResponse{
		Token:     s.Token,
		TokenType: "Bearer",
		ExpiresAt: s.ExpiresAt,
		User:      userResponse{ID: s.User.ID, Username: s.User.Username, Email: s.User.Email},
	}
}

type conversionResponse struct {
	OriginalAmount  json.Number `json:"originalAmount"`
	FromCurrency    string      `json:"fromCurrency"`
	ConvertedAmount json.Number `json:"convertedAmount"`
	ToCurrency      string      `json:"toCurrency"`
	ExchangeRate    json.Number `json:"exchangeRate"`
	Timestamp       time.Time   `json:"timestamp"`
	Source          string      `json:"source"`
}

func newConversionResponse(c currency.ConversionResult) conversionResponse {
	return conversionResponse{
		OriginalAmount:  amount(c.OriginalAmount),
		FromCurrency:    c.FromCurrency,
		ConvertedAmount: amount(c.ConvertedAmount),
		ToCurrency:      c.ToCurrency,
		ExchangeRate:    json.Number(c.ExchangeRate.String()),
		Timestamp:       c.Timestamp,
		Source:          c.Source,
	}
}

type rateResponse struct {
	FromCurrency string      `json:"fromCurrency"`
	ToCurrency   string      `json:"toCurrency"`
	Rate         json.Number `json:"rate"`
}

type rateTableResponse struct {
	Base      string                 `json:"base"`
	Rates     map[string]json.Number `json:"rates"`
	FetchedAt time.Time              `json:"fetchedAt"`
	Source    string                 `json:"source"`
}

func newRateTableResponse(t currency.RateTable) rateTableResponse {
	rates := make(map[string]json.Number, len(t.Rates))
	for code, r := range t.Rates {
		rates[code] = json.Number(r.String())
	}
	return rateTableResponse{Base: t.Base, Rates: rates, FetchedAt: t.FetchedAt, Source: t.Source}
}

type currencyInfoResponse struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

type cacheStatusResponse struct {
	Stale       bool       `json:"stale"`
	LastRefresh *time.Time `json:"lastRefresh"`
	Entries     int        `json:"entries"`
}

func newCacheStatusResponse(s currency.Status) cacheStatusResponse {
	resp := cacheStatusResponse{Stale: s.Stale, Entries: s.Entries}
	if !s.LastRefresh.IsZero() {
		last := s.LastRefresh
		resp.LastRefresh = &last
	}
	return resp
}
