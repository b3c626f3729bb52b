package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/storage"
)

func TestStoreListOrderingAndPaging(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.SaveTransaction(ctx, core.Transaction{
			UserID:          1,
			Description:     "t",
			Amount:          decimal.NewFromInt(int64(i + 1)),
			Type:            core.Expense,
			TransactionDate: base.AddDate(0, 0, i),
		})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := s.ListTransactions(ctx, 1, core.TransactionFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || !got[0].Amount.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected page starting at amount 4, got %+v", got)
	}
	if n, _ := s.CountTransactions(ctx, 1, core.TransactionFilter{}); n != 5 {
		t.Fatalf("expected 5, got %d", n)
	}
	if other, _ := s.ListTransactions(ctx, 2, core.TransactionFilter{}); len(other) != 0 {
		t.Fatalf("expected no transactions for another user")
	}
}

func TestStoreExportStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	tx, _ := s.SaveTransaction(ctx, core.Transaction{UserID: 1, Amount: decimal.NewFromInt(1), Type: core.Income})

	if s.ExportStatus(tx.ID) != storage.ExportPending {
		t.Fatalf("new transactions start pending")
	}
	_ = s.MarkExported(ctx, tx.ID)
	if pending, _ := s.PendingExports(ctx, 10); len(pending) != 0 {
		t.Fatalf("expected nothing pending")
	}
	if err := s.MarkExported(ctx, 99); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreUsers(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u, err := s.CreateUser(ctx, core.User{Username: "alice", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateUser(ctx, core.User{Username: "alice", Email: "b@example.com"}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	got, err := s.FindUserByID(ctx, u.ID)
	if err != nil || got.Username != "alice" {
		t.Fatalf("find: %+v (err=%v)", got, err)
	}
}
