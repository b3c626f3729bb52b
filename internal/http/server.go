package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"moneta/internal/auth"
	"moneta/internal/cache"
	"moneta/internal/currency"
	"moneta/internal/log"
	"moneta/internal/middleware/ratelimit"
	"moneta/internal/middleware/security"
	"moneta/internal/middleware/trace"
	"moneta/internal/services"
)

const (
	analyticsCacheSize = 500
	analyticsCacheTTL  = 5 * time.Minute
	cacheCleanupEvery  = 10 * time.Minute
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the API serves.
type Deps struct {
	Transactions *services.TransactionService
	Auth         *auth.Service
	Converter    *currency.Converter
	Store        Pinger
	Logger       *log.Logger

	CORSAllowedOrigin string
	RateLimitRPM      int

	// TrustedProxies are CIDRs, beyond the private ranges, whose
	// X-Forwarded-For header is believed.
	TrustedProxies []string
}

type Server struct {
	http.Server

	transactions *services.TransactionService
	auth         *auth.Service
	converter    *currency.Converter
	store        Pinger

	tracer      *trace.Middleware
	detector    *security.Detector
	rateLimiter *ratelimit.Limiter

	// Analytics responses, keyed per user and dropped on that user's writes.
	summaryCache  *cache.LRUCache[summaryResponse]
	categoryCache *cache.LRUCache[[]categorySummaryResponse]
	trendCache    *cache.LRUCache[[]monthlyTrendResponse]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		transactions:  deps.Transactions,
		auth:          deps.Auth,
		converter:     deps.Converter,
		store:         deps.Store,
		detector:      security.NewDetector(),
		rateLimiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitRPM}),
		summaryCache:  cache.NewLRUCache[summaryResponse](analyticsCacheSize, analyticsCacheTTL),
		categoryCache: cache.NewLRUCache[[]categorySummaryResponse](analyticsCacheSize, analyticsCacheTTL),
		trendCache:    cache.NewLRUCache[[]monthlyTrendResponse](analyticsCacheSize, analyticsCacheTTL),
		cacheManager:  cache.NewManager(),
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.categoryCache)
	s.cacheManager.Register(s.trendCache)
	s.cacheManager.StartCleanup(cacheCleanupEvery)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = log.Middleware(logger.WithComponent(log.ComponentHTTP))(handler)
	handler = s.rateLimiter.Middleware(s.detector.ExtractClientIP, http.MethodPost, http.MethodPut, http.MethodDelete)(handler)
	handler = security.CORS(deps.CORSAllowedOrigin)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	protected := http.NewServeMux()

	protected.HandleFunc("GET /api/transactions", s.handleListTransactions)
	protected.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	protected.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	protected.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	protected.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	protected.HandleFunc("GET /api/transactions/type/{type}", s.handleTransactionsByType)
	protected.HandleFunc("GET /api/transactions/type/{type}/date-range", s.handleTransactionsByTypeAndDateRange)
	protected.HandleFunc("GET /api/transactions/category/{category}", s.handleTransactionsByCategory)
	protected.HandleFunc("GET /api/transactions/recent", s.handleRecentTransactions)
	protected.HandleFunc("GET /api/transactions/categories", s.handleCategories)
	protected.HandleFunc("GET /api/transactions/summary", s.handleSummary)
	protected.HandleFunc("GET /api/transactions/date-range", s.handleTransactionsByDateRange)
	protected.HandleFunc("GET /api/transactions/analytics/category-summary", s.handleCategorySummary)
	protected.HandleFunc("GET /api/transactions/analytics/monthly-trends", s.handleMonthlyTrends)

	protected.HandleFunc("POST /api/currency/convert", s.handleConvert)
	protected.HandleFunc("GET /api/currency/rate/{from}/{to}", s.handleRate)
	protected.HandleFunc("GET /api/currency/rates/{base}", s.handleRates)
	protected.HandleFunc("GET /api/currency/supported", s.handleSupportedCurrencies)
	protected.HandleFunc("POST /api/currency/convert-multiple", s.handleConvertMultiple)
	protected.HandleFunc("GET /api/currency/info/{code}", s.handleCurrencyInfo)
	protected.HandleFunc("GET /api/currency/cache/status", s.handleCacheStatus)
	protected.HandleFunc("DELETE /api/currency/cache", s.handleClearCache)

	guard := auth.Middleware(s.auth.Tokens())
	transactions := guard(log.ComponentMiddleware(log.ComponentTransaction)(protected))
	mux.Handle("/api/transactions", transactions)
	mux.Handle("/api/transactions/", transactions)
	mux.Handle("/api/currency/", guard(log.ComponentMiddleware(log.ComponentCurrency)(protected)))
}

// invalidateUser drops every cached analytics response of userID.
func (s *Server) invalidateUser(userID int64) {
	prefix := userPrefix(userID)
	s.summaryCache.DeletePrefix(prefix)
	s.categoryCache.DeletePrefix(prefix)
	s.trendCache.DeletePrefix(prefix)
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
