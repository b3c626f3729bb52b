package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady checks that the store answers within two seconds.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleMetrics writes counters in the Prometheus text exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rl := s.rateLimiter.GetMetrics()
	sec := s.detector.GetMetrics()
	rates := s.converter.Status()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	write := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n", name, help, name, kind, name, value)
	}
	write("moneta_http_requests_total", "HTTP requests served.", "counter", tm.TotalRequests)
	write("moneta_http_server_errors_total", "HTTP responses with a 5xx status.", "counter", tm.ServerErrors)
	write("moneta_http_last_response_microseconds", "Duration of the most recent request.", "gauge", tm.LastResponseTime)
	write("moneta_rate_limit_hits_total", "Requests rejected by the rate limiter.", "counter", rl.TotalHits)
	write("moneta_rate_limit_clients", "Clients tracked by the rate limiter.", "gauge", rl.ClientCount)
	write("moneta_suspicious_requests_total", "Requests flagged as suspicious.", "counter", sec.SuspiciousRequests)
	write("moneta_exchange_rate_cache_entries", "Cached exchange rate pairs.", "gauge", rates.Entries)
	write("moneta_exchange_rates_stale", "1 when cached exchange rates are stale.", "gauge", boolGauge(rates.Stale))

	for name, st := range map[string]struct{ hits, misses int64 }{
		"summary":          {s.summaryCache.Stats().Hits, s.summaryCache.Stats().Misses},
		"category_summary": {s.categoryCache.Stats().Hits, s.categoryCache.Stats().Misses},
		"monthly_trends":   {s.trendCache.Stats().Hits, s.trendCache.Stats().Misses},
	} {
		fmt.Fprintf(w, "moneta_analytics_cache_hits_total{cache=%q} %d\n", name, st.hits)
		fmt.Fprintf(w, "moneta_analytics_cache_misses_total{cache=%q} %d\n", name, st.misses)
	}
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}
