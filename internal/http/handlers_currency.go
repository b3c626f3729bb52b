package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/currency"
	"moneta/internal/log"
)

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateConversion(req.Amount, req.FromCurrency, req.ToCurrency); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.converter.Convert(r.Context(), req.Amount, req.FromCurrency, req.ToCurrency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Currency converted",
		log.NewFields().WithConversion(res.FromCurrency, res.ToCurrency, res.Source).ToSlice()...)
	writeJSON(w, http.StatusOK, newConversionResponse(res))
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	from, to := r.PathValue("from"), r.PathValue("to")
	rate, err := s.converter.Rate(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rateResponse{
		FromCurrency: strings.ToUpper(strings.TrimSpace(from)),
		ToCurrency:   strings.ToUpper(strings.TrimSpace(to)),
		Rate:         amount(rate),
	})
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	table, err := s.converter.FetchRates(r.Context(), r.PathValue("base"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRateTableResponse(table))
}

func (s *Server) handleSupportedCurrencies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currency.Supported())
}

// handleConvertMultiple reads amount, fromCurrency and toCurrencies from the
// query string; toCurrencies may repeat or be comma separated.
func (s *Server) handleConvertMultiple(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amt, err := core.ParseAmount(q.Get("amount"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	from := q.Get("fromCurrency")
	targets := parseCurrencyList(q["toCurrencies"])
	if len(targets) == 0 {
		writeError(w, r, core.Validationf("toCurrencies is required"))
		return
	}
	if err := validateConversion(amt, from, targets[0]); err != nil {
		writeError(w, r, err)
		return
	}

	results, err := s.converter.ConvertMany(r.Context(), amt, from, targets)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]conversionResponse, 0, len(results))
	for _, res := range results {
		out = append(out, newConversionResponse(res))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCurrencyInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.converter.Info(r.PathValue("code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, currencyInfoResponse{Code: info.Code, Name: info.Name, Symbol: info.Symbol})
}

func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newCacheStatusResponse(s.converter.Status()))
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.converter.Clear()
	log.FromContext(r.Context()).InfoContext(r.Context(), "Exchange rate cache cleared",
		log.FieldComponent, log.ComponentCurrency)
	writeJSON(w, http.StatusOK, map[string]string{"message": "exchange rate cache cleared"})
}

func validateConversion(amt decimal.Decimal, from, to string) error {
	if !amt.IsPositive() {
		return core.Validationf("amount must be positive")
	}
	if strings.TrimSpace(from) == "" {
		return core.Validationf("from currency is required")
	}
	if strings.TrimSpace(to) == "" {
		return core.Validationf("to currency is required")
	}
	return nil
}
