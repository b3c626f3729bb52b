package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"moneta/internal/auth"
	"moneta/internal/cli"
	"moneta/internal/currency"
	apphttp "moneta/internal/http"
	"moneta/internal/log"
	"moneta/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel)

	be := cli.InitBackend(context.Background(), logger, cfg)

	transactions := services.NewTransactionService(be.Store, be.Events)
	authService := auth.NewService(be.Store, auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL))
	converter := currency.NewConverter(
		currency.NewOpenExchangeRates(cfg.RatesAPIURL, cfg.RatesAPIKey, cfg.RatesTimeout),
		currency.WithStaleAfter(cfg.RatesStaleAfter))

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Transactions:      transactions,
		Auth:              authService,
		Converter:         converter,
		Store:             be.Store,
		Logger:            logger,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimitRPM:      cfg.RateLimitRPM,
		TrustedProxies:    cfg.TrustedProxies,
	})

	ctx, done := cli.GracefulShutdown(context.Background(), logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting moneta server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events_enabled", be.Events != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
