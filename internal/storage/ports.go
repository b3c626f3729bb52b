package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
)

// Export states of a stored transaction.
const (
	ExportPending = "pending"
	ExportDone    = "exported"
	ExportFailed  = "error"
)

type (
	// TransactionStore persists transactions. Finders return a core.ErrNotFound
	// error when nothing matches.
	TransactionStore interface {
		// SaveTransaction inserts when ID is zero and updates otherwise.
		SaveTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		FindTransaction(ctx context.Context, id int64) (core.Transaction, error)
		ListTransactions(ctx context.Context, userID int64, f core.TransactionFilter) ([]core.Transaction, error)
		CountTransactions(ctx context.Context, userID int64, f core.TransactionFilter) (int64, error)
		DeleteTransaction(ctx context.Context, id int64) error
		TransactionExists(ctx context.Context, id, userID int64) (bool, error)
		DistinctCategories(ctx context.Context, userID int64) ([]string, error)
		SumByType(ctx context.Context, userID int64, typ core.TransactionType, r core.DateRange) (decimal.Decimal, error)
		CountByType(ctx context.Context, userID int64, typ core.TransactionType, r core.DateRange) (int64, error)
	}

	UserStore interface {
		// CreateUser fails with core.ErrConflict when the username or email is taken.
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		FindUserByUsername(ctx context.Context, username string) (core.User, error)
		FindUserByID(ctx context.Context, id int64) (core.User, error)
	}

	// ExportStore tracks which transactions reached the export sheet.
	ExportStore interface {
		PendingExports(ctx context.Context, limit int) ([]core.Transaction, error)
		MarkExported(ctx context.Context, id int64) error
		MarkExportError(ctx context.Context, id int64) error
	}

	Store interface {
		TransactionStore
		UserStore
		ExportStore
		Ping(ctx context.Context) error
		Close() error
	}
)
