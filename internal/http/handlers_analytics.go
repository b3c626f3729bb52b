package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"moneta/internal/core"
)

const defaultTrendMonths = 12

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	rng, err := parseDateRange(r.URL.Query(), false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := userKey(userID, "summary", rangeKey(rng))
	if cached, found := s.summaryCache.Get(key); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	sum, err := s.transactions.Summary(r.Context(), userID, rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := newSummaryResponse(sum)
	s.summaryCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	key := userKey(userID, "category-summary")
	if cached, found := s.categoryCache.Get(key); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	sums, err := s.transactions.CategorySummaries(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := newCategorySummaries(sums)
	s.categoryCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleMonthlyTrends serves the last ?months calendar months (default 12);
// zero or a negative value returns every month.
func (s *Server) handleMonthlyTrends(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	months := defaultTrendMonths
	if v := strings.TrimSpace(r.URL.Query().Get("months")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, core.Validationf("invalid months: %s", v))
			return
		}
		months = n
	}

	key := userKey(userID, "monthly-trends", strconv.Itoa(months), time.Now().Format("2006-01"))
	if cached, found := s.trendCache.Get(key); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	trends, err := s.transactions.MonthlyTrends(r.Context(), userID, months)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := newMonthlyTrends(trends)
	s.trendCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func rangeKey(r core.DateRange) string {
	bound := func(t *time.Time) string {
		if t == nil {
			return "*"
		}
		return t.UTC().Format(time.RFC3339Nano)
	}
	return bound(r.From) + ".." + bound(r.To)
}
