package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"moneta/internal/amqp"
	"moneta/internal/core"
	"moneta/internal/ledger"
	"moneta/internal/log"
	"moneta/internal/storage"
)

// RecentLimit is how many transactions Recent returns.
const RecentLimit = 10

// EventPublisher announces transaction changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, evt *amqp.TransactionEvent) error
}

// TransactionInput holds the user-editable fields of a transaction.
// A zero TransactionDate means now.
type TransactionInput struct {
	Description     string
	Amount          decimal.Decimal
	Type            core.TransactionType
	TransactionDate time.Time
	Category        string
	Notes           string
}

// TransactionService orchestrates transaction operations across the store
// and the event bus. Every operation is scoped to the calling user; another
// user's transaction is reported as not found.
type TransactionService struct {
	store  storage.TransactionStore
	events EventPublisher
	now    func() time.Time
}

// NewTransactionService builds the service. events may be nil.
func NewTransactionService(store storage.TransactionStore, events EventPublisher) *TransactionService {
	return &TransactionService{
		store:  store,
		events: events,
		now:    time.Now,
	}
}

func (s *TransactionService) Create(ctx context.Context, userID int64, in TransactionInput) (core.Transaction, error) {
	t := core.Transaction{UserID: userID}
	s.apply(&t, in)
	if err := core.ValidateTransaction(t, s.now()); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.SaveTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created", transactionFields(log.OpCreate, saved)...)

	s.publish(ctx, amqp.ActionCreated, saved)
	return saved, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	t, err := s.store.FindTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Transaction{}, errTransactionNotFound()
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	if t.UserID != userID {
		slog.WarnContext(ctx, "Transaction access denied", "id", id, "user_id", userID)
		return core.Transaction{}, errTransactionNotFound()
	}
	return t, nil
}

func (s *TransactionService) Update(ctx context.Context, userID, id int64, in TransactionInput) (core.Transaction, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	s.apply(&t, in)
	if err := core.ValidateTransaction(t, s.now()); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.SaveTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction updated", transactionFields(log.OpUpdate, saved)...)
	s.publish(ctx, amqp.ActionUpdated, saved)
	return saved, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	ok, err := s.store.TransactionExists(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("check transaction: %w", err)
	}
	if !ok {
		return errTransactionNotFound()
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user_id", userID)
	s.publish(ctx, amqp.ActionDeleted, core.Transaction{ID: id, UserID: userID})
	return nil
}

// List returns one page of the user's transactions. page is zero-based.
func (s *TransactionService) List(ctx context.Context, userID int64, f core.TransactionFilter, page, size int) (core.Page, error) {
	if page < 0 {
		return core.Page{}, core.Validationf("page must not be negative")
	}
	if size <= 0 {
		size = core.DefaultPageSize
	}
	if size > core.MaxPageSize {
		size = core.MaxPageSize
	}
	f.Limit = size
	f.Offset = page * size

	f, err := f.Normalize()
	if err != nil {
		return core.Page{}, err
	}

	var (
		items []core.Transaction
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.store.ListTransactions(gctx, userID, f)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.CountTransactions(gctx, userID, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Page{}, fmt.Errorf("list transactions: %w", err)
	}
	return core.NewPage(items, page, size, total), nil
}

// Find returns every matching transaction, newest first unless f sorts otherwise.
func (s *TransactionService) Find(ctx context.Context, userID int64, f core.TransactionFilter) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	return txs, nil
}

// Recent returns the latest transactions by date.
func (s *TransactionService) Recent(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return s.Find(ctx, userID, core.TransactionFilter{Limit: RecentLimit})
}

func (s *TransactionService) Categories(ctx context.Context, userID int64) ([]string, error) {
	cats, err := s.store.DistinctCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}
	return cats, nil
}

// Summary computes income and expense totals and counts within r.
func (s *TransactionService) Summary(ctx context.Context, userID int64, r core.DateRange) (core.Summary, error) {
	var sum core.Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sum.TotalIncome, err = s.store.SumByType(gctx, userID, core.Income, r)
		return err
	})
	g.Go(func() error {
		var err error
		sum.TotalExpenses, err = s.store.SumByType(gctx, userID, core.Expense, r)
		return err
	})
	g.Go(func() error {
		var err error
		sum.IncomeCount, err = s.store.CountByType(gctx, userID, core.Income, r)
		return err
	})
	g.Go(func() error {
		var err error
		sum.ExpenseCount, err = s.store.CountByType(gctx, userID, core.Expense, r)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Summary{}, fmt.Errorf("compute summary: %w", err)
	}
	sum.NetWorth = sum.TotalIncome.Sub(sum.TotalExpenses)
	return sum, nil
}

func (s *TransactionService) CategorySummaries(ctx context.Context, userID int64) ([]core.CategorySummary, error) {
	txs, err := s.Find(ctx, userID, core.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	return ledger.CategorySummaries(txs), nil
}

// MonthlyTrends aggregates the last months calendar months; months <= 0 means all.
func (s *TransactionService) MonthlyTrends(ctx context.Context, userID int64, months int) ([]core.MonthlyTrend, error) {
	f := core.TransactionFilter{}
	now := s.now()
	if months > 0 {
		// Offsets span 26h, so pre-filter two days early; MonthlyTrends
		// applies the exact window on each transaction's local date.
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).
			AddDate(0, -(months - 1), -2)
		f.From = &from
	}
	txs, err := s.Find(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	return ledger.MonthlyTrends(txs, months, now), nil
}

func (s *TransactionService) apply(t *core.Transaction, in TransactionInput) {
	t.Description = in.Description
	t.Amount = in.Amount
	t.Type = in.Type
	t.TransactionDate = in.TransactionDate
	if t.TransactionDate.IsZero() {
		t.TransactionDate = s.now()
	}
	t.Category = in.Category
	t.Notes = in.Notes
}

// publish never fails the caller; the transaction is already stored and the
// export worker picks up anything still pending.
func (s *TransactionService) publish(ctx context.Context, action string, t core.Transaction) {
	if s.events == nil {
		return
	}
	evt := amqp.NewTransactionEvent(action, t.ID, t.UserID)
	if err := s.events.PublishTransactionEvent(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"action", action, "id", t.ID, "error", err)
	}
}

func transactionFields(op string, t core.Transaction) []any {
	return log.NewFields().
		WithOperation(op).
		WithTransaction(t.ID, t.UserID, string(t.Type), core.FormatAmount(t.Amount), t.Category).
		ToSlice()
}

func errTransactionNotFound() error {
	return core.NotFoundf("transaction not found")
}
