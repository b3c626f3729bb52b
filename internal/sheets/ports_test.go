package sheets

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
)

func TestExportRowValues(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	full := ExportRow{Action: "created", At: at, Transaction: core.Transaction{
		ID:              1,
		UserID:          2,
		Description:     "Coffee",
		Amount:          decimal.RequireFromString("2.50"),
		Type:            core.Expense,
		TransactionDate: at,
		Category:        "Food",
	}}
	vals := full.Values()
	if len(vals) != len(Header) {
		t.Fatalf("expected %d columns, got %d", len(Header), len(vals))
	}
	if vals[0] != "2025-01-02T03:04:05Z" || vals[4] != "2025-01-02" || vals[7] != "2.50" {
		t.Fatalf("unexpected values %v", vals)
	}

	deleted := ExportRow{Action: "deleted", At: at, Transaction: core.Transaction{ID: 1, UserID: 2}}
	if n := len(deleted.Values()); n != 4 {
		t.Fatalf("deletions carry identifiers only, got %d columns", n)
	}
}
