package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// BatchExporter exports one batch of pending transactions and reports how
// many it handled.
type BatchExporter interface {
	ProcessPendingExports(ctx context.Context) (int, error)
}

type ExportProcessorConfig struct {
	// PollInterval is how often pending exports are retried (default: 30s).
	PollInterval time.Duration
}

func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{PollInterval: 30 * time.Second}
}

// ExportProcessor periodically re-exports transactions whose events were
// lost or failed. It runs once immediately on Start.
type ExportProcessor struct {
	exporter BatchExporter
	config   ExportProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportProcessor(exporter BatchExporter, config ExportProcessorConfig) *ExportProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultExportProcessorConfig().PollInterval
	}
	return &ExportProcessor{exporter: exporter, config: config}
}

// Start begins the processing loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Export processor started", "poll_interval", p.config.PollInterval)
	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to expire.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Export processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}
}

func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.processBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

func (p *ExportProcessor) processBatch(ctx context.Context) {
	n, err := p.exporter.ProcessPendingExports(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to process pending exports", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Processed pending exports", "count", n)
	}
}
