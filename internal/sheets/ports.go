package sheets

import (
	"context"
	"strconv"
	"time"

	"moneta/internal/core"
)

// Header is the column layout of the export sheet.
var Header = []any{
	"Exported At", "Action", "Transaction ID", "User ID", "Date",
	"Description", "Type", "Amount", "Category", "Notes",
}

// ExportRow is one line of the transaction audit trail.
type ExportRow struct {
	Action      string
	Transaction core.Transaction
	At          time.Time
}

// Values renders the row in Header order. Deletions carry only identifiers.
func (r ExportRow) Values() []any {
	t := r.Transaction
	row := []any{
		r.At.UTC().Format(time.RFC3339),
		r.Action,
		strconv.FormatInt(t.ID, 10),
		strconv.FormatInt(t.UserID, 10),
	}
	if t.TransactionDate.IsZero() {
		return row
	}
	return append(row,
		t.TransactionDate.Format("2006-01-02"),
		t.Description,
		string(t.Type),
		core.FormatAmount(t.Amount),
		t.Category,
		t.Notes,
	)
}

// Ports for outbound adapters.
type (
	TransactionExporter interface {
		Export(ctx context.Context, row ExportRow) (rowRef string, err error)
	}
)
