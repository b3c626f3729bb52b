package main

import (
	"context"
	"errors"
	"os"
	"time"

	"moneta/internal/amqp"
	"moneta/internal/cli"
	"moneta/internal/log"
	"moneta/internal/services"
	"moneta/internal/sheets"
	gsheet "moneta/internal/sheets/google"
	memsheet "moneta/internal/sheets/memory"
	"moneta/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentWorker)

	logger.Info("Starting moneta-worker")

	be := cli.InitBackend(context.Background(), logger, cfg)

	var exporter sheets.TransactionExporter
	if cfg.ExportsToSheets() {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		if err := client.EnsureHeader(context.Background()); err != nil {
			logger.Warn("Could not verify sheet header", log.FieldError, err)
		}
		exporter = client
		logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		exporter = memsheet.New()
		logger.Info("Google Sheets disabled - exporting to memory")
	}

	exportWorker := worker.NewExportWorker(be.Store, exporter, cfg.ExportBatchSize)
	processor := services.NewExportProcessor(exportWorker, services.ExportProcessorConfig{PollInterval: cfg.ExportInterval})

	var consumer *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		consumer, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
	} else {
		logger.Info("AMQP disabled - relying on periodic pending exports")
	}

	ctx, done := cli.GracefulShutdown(context.Background(), logger, shutdownTimeout, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Error("Export processor shutdown error", log.FieldError, err)
		}
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Error("AMQP close error", log.FieldError, err)
			}
		}
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start export processor", log.FieldError, err)
		os.Exit(1)
	}

	if consumer != nil {
		go func() {
			err := consumer.ConsumeTransactionEvents(ctx, exportWorker.HandleEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumption failed", log.FieldError, err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
