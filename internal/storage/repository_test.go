package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "moneta.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository, name string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func saveTx(t *testing.T, repo *SQLiteRepository, userID int64, typ core.TransactionType, amount, category string, date time.Time) core.Transaction {
	t.Helper()
	tx, err := repo.SaveTransaction(context.Background(), core.Transaction{
		UserID:          userID,
		Description:     category + " " + amount,
		Amount:          decimal.RequireFromString(amount),
		Type:            typ,
		TransactionDate: date,
		Category:        category,
	})
	if err != nil {
		t.Fatalf("save transaction: %v", err)
	}
	return tx
}

func TestSaveAndFindPreservesScaleAndZone(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "alice")
	zone := time.FixedZone("", 2*3600)
	date := time.Date(2025, 3, 1, 0, 30, 0, 0, zone)

	saved := saveTx(t, repo, u.ID, core.Expense, "10.50", "Food", date)
	got, err := repo.FindTransaction(context.Background(), saved.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if core.FormatAmount(got.Amount) != "10.50" {
		t.Fatalf("expected amount 10.50, got %s", core.FormatAmount(got.Amount))
	}
	if !got.TransactionDate.Equal(date) || got.TransactionDate.Month() != time.March {
		t.Fatalf("expected %v in its own zone, got %v", date, got.TransactionDate)
	}
}

func TestFindMissingTransaction(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.FindTransaction(context.Background(), 42); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateTransaction(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "alice")
	tx := saveTx(t, repo, u.ID, core.Expense, "5", "Food", time.Now().Add(-time.Hour))

	tx.Description = "groceries"
	tx.Amount = decimal.RequireFromString("6.25")
	if _, err := repo.SaveTransaction(context.Background(), tx); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.FindTransaction(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Description != "groceries" || core.FormatAmount(got.Amount) != "6.25" {
		t.Fatalf("update not persisted: %+v", got)
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := newTestUser(t, repo, "alice")
	bob := newTestUser(t, repo, "bob")
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	saveTx(t, repo, alice.ID, core.Income, "100", "Salary", base)
	saveTx(t, repo, alice.ID, core.Expense, "20", "Food", base.AddDate(0, 0, 1))
	saveTx(t, repo, alice.ID, core.Expense, "5", "Food", base.AddDate(0, 0, 2))
	saveTx(t, repo, bob.ID, core.Expense, "999", "Food", base)

	all, err := repo.ListTransactions(ctx, alice.ID, core.TransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || !all[0].TransactionDate.Equal(base.AddDate(0, 0, 2)) {
		t.Fatalf("expected 3 transactions newest first, got %d", len(all))
	}

	food, err := repo.ListTransactions(ctx, alice.ID, core.TransactionFilter{Category: "Food", SortBy: core.SortByAmount})
	if err != nil {
		t.Fatalf("list food: %v", err)
	}
	if len(food) != 2 || core.FormatAmount(food[0].Amount) != "5" {
		t.Fatalf("expected food sorted by amount ascending, got %+v", food)
	}

	page, err := repo.ListTransactions(ctx, alice.ID, core.TransactionFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("expected 1 item on second page, got %d", len(page))
	}

	r, _ := core.NewDateRange(base, base.AddDate(0, 0, 1))
	n, err := repo.CountTransactions(ctx, alice.ID, core.TransactionFilter{DateRange: r})
	if err != nil || n != 2 {
		t.Fatalf("expected 2 in range, got %d (err=%v)", n, err)
	}
}

func TestSumsAndCategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "alice")
	now := time.Now().Add(-time.Minute)

	saveTx(t, repo, u.ID, core.Income, "100.10", "Salary", now)
	saveTx(t, repo, u.ID, core.Expense, "0.10", "b", now)
	saveTx(t, repo, u.ID, core.Expense, "0.20", "a", now)
	saveTx(t, repo, u.ID, core.Expense, "1", "", now)

	sum, err := repo.SumByType(ctx, u.ID, core.Expense, core.DateRange{})
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if sum.String() != "1.3" {
		t.Fatalf("expected exact decimal sum 1.3, got %s", sum)
	}
	count, err := repo.CountByType(ctx, u.ID, core.Income, core.DateRange{})
	if err != nil || count != 1 {
		t.Fatalf("expected 1 income, got %d (err=%v)", count, err)
	}

	cats, err := repo.DistinctCategories(ctx, u.ID)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 3 || cats[0] != "Salary" || cats[1] != "a" || cats[2] != "b" {
		t.Fatalf("unexpected categories %v", cats)
	}
}

func TestCategoriesKeepWhitespaceOnly(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "alice")
	now := time.Now().Add(-time.Minute)

	saveTx(t, repo, u.ID, core.Expense, "1", " ", now)
	saveTx(t, repo, u.ID, core.Expense, "1", "", now)
	saveTx(t, repo, u.ID, core.Expense, "1", "a", now)

	cats, err := repo.DistinctCategories(ctx, u.ID)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 2 || cats[0] != " " || cats[1] != "a" {
		t.Fatalf("unexpected categories %q", cats)
	}
}

func TestDeleteAndExists(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := newTestUser(t, repo, "alice")
	bob := newTestUser(t, repo, "bob")
	tx := saveTx(t, repo, alice.ID, core.Expense, "1", "", time.Now().Add(-time.Minute))

	if ok, _ := repo.TransactionExists(ctx, tx.ID, bob.ID); ok {
		t.Fatalf("transaction must not exist for another user")
	}
	if ok, _ := repo.TransactionExists(ctx, tx.ID, alice.ID); !ok {
		t.Fatalf("transaction must exist for its owner")
	}
	if err := repo.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestCreateUserConflicts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	newTestUser(t, repo, "alice")

	_, err := repo.CreateUser(ctx, core.User{Username: "alice", Email: "other@example.com", PasswordHash: "x"})
	if !errors.Is(err, core.ErrConflict) || err.Error() != "username is already taken" {
		t.Fatalf("expected username conflict, got %v", err)
	}
	_, err = repo.CreateUser(ctx, core.User{Username: "alice2", Email: "alice@example.com", PasswordHash: "x"})
	if !errors.Is(err, core.ErrConflict) || err.Error() != "email is already in use" {
		t.Fatalf("expected email conflict, got %v", err)
	}

	u, err := repo.FindUserByUsername(ctx, "alice")
	if err != nil || u.Email != "alice@example.com" {
		t.Fatalf("find user: %+v (err=%v)", u, err)
	}
	if _, err := repo.FindUserByID(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestExportTracking(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "alice")
	a := saveTx(t, repo, u.ID, core.Expense, "1", "", time.Now().Add(-time.Minute))
	b := saveTx(t, repo, u.ID, core.Expense, "2", "", time.Now().Add(-time.Minute))

	if err := repo.MarkExported(ctx, a.ID); err != nil {
		t.Fatalf("mark exported: %v", err)
	}
	if err := repo.MarkExportError(ctx, b.ID); err != nil {
		t.Fatalf("mark error: %v", err)
	}
	pending, err := repo.PendingExports(ctx, 10)
	if err != nil || len(pending) != 1 || pending[0].ID != b.ID {
		t.Fatalf("expected only the failed export to be retried, got %+v (err=%v)", pending, err)
	}
	if err := repo.MarkExported(ctx, b.ID); err != nil {
		t.Fatalf("mark exported: %v", err)
	}

	// Updates put a transaction back in the export queue.
	a.Notes = "edited"
	if _, err := repo.SaveTransaction(ctx, a); err != nil {
		t.Fatalf("update: %v", err)
	}
	pending, err = repo.PendingExports(ctx, 10)
	if err != nil || len(pending) != 1 || pending[0].ID != a.ID {
		t.Fatalf("expected edited transaction pending, got %+v (err=%v)", pending, err)
	}
}
