package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moneta/internal/amqp"
	"moneta/internal/core"
	"moneta/internal/sheets"
	"moneta/internal/storage"
)

// Store is what the worker needs from persistence.
type Store interface {
	storage.ExportStore
	FindTransaction(ctx context.Context, id int64) (core.Transaction, error)
}

// ExportWorker writes an audit trail of transaction changes to the export sheet.
type ExportWorker struct {
	storage   Store
	exporter  sheets.TransactionExporter
	batchSize int
	now       func() time.Time
}

func NewExportWorker(storage Store, exporter sheets.TransactionExporter, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &ExportWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// HandleEvent processes one transaction event from AMQP.
func (w *ExportWorker) HandleEvent(ctx context.Context, evt *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"event_id", evt.EventID,
		"action", evt.Action,
		"transaction_id", evt.TransactionID)

	if evt.Action == amqp.ActionDeleted {
		ref, err := w.exporter.Export(ctx, sheets.ExportRow{
			Action:      evt.Action,
			Transaction: core.Transaction{ID: evt.TransactionID, UserID: evt.UserID},
			At:          w.now(),
		})
		if err != nil {
			return fmt.Errorf("export deletion: %w", err)
		}
		slog.InfoContext(ctx, "Exported transaction deletion", "transaction_id", evt.TransactionID, "sheets_ref", ref)
		return nil
	}

	t, err := w.storage.FindTransaction(ctx, evt.TransactionID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted before the event was consumed; the deletion event covers it.
		slog.WarnContext(ctx, "Transaction no longer exists, skipping export", "transaction_id", evt.TransactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	return w.export(ctx, evt.Action, t)
}

// ProcessPendingExports exports transactions still marked pending, for
// events that were lost or failed. It returns how many were exported.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) (int, error) {
	pending, err := w.storage.PendingExports(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending exports: %w", err)
	}

	exported := 0
	for _, t := range pending {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		action := amqp.ActionCreated
		if t.UpdatedAt.After(t.CreatedAt) {
			action = amqp.ActionUpdated
		}
		if err := w.export(ctx, action, t); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending transaction", "transaction_id", t.ID, "error", err)
			continue
		}
		exported++
	}
	return exported, nil
}

func (w *ExportWorker) export(ctx context.Context, action string, t core.Transaction) error {
	ref, err := w.exporter.Export(ctx, sheets.ExportRow{Action: action, Transaction: t, At: w.now()})
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, t.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "transaction_id", t.ID, "error", markErr)
		}
		return fmt.Errorf("export transaction %d: %w", t.ID, err)
	}

	if err := w.storage.MarkExported(ctx, t.ID); err != nil {
		// The row is in the sheet; a retry would only duplicate it.
		slog.WarnContext(ctx, "Failed to mark transaction exported", "transaction_id", t.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"transaction_id", t.ID,
		"action", action,
		"sheets_ref", ref)
	return nil
}
