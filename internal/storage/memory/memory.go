// Package memory is an in-process implementation of storage.Store used by
// the memory backend and by tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/ledger"
	"moneta/internal/storage"
)

type record struct {
	tx     core.Transaction
	status string
}

// Store keeps users and transactions in maps guarded by one mutex.
type Store struct {
	mu           sync.RWMutex
	transactions map[int64]*record
	users        map[int64]core.User
	nextTxID     int64
	nextUserID   int64
}

var _ storage.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		transactions: make(map[int64]*record),
		users:        make(map[int64]core.User),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) SaveTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if t.ID == 0 {
		s.nextTxID++
		t.ID = s.nextTxID
		t.CreatedAt = now
		t.UpdatedAt = now
		s.transactions[t.ID] = &record{tx: t, status: storage.ExportPending}
		return t, nil
	}

	rec, ok := s.transactions[t.ID]
	if !ok {
		return core.Transaction{}, core.NotFoundf("transaction not found")
	}
	t.UserID = rec.tx.UserID
	t.CreatedAt = rec.tx.CreatedAt
	t.UpdatedAt = now
	rec.tx = t
	rec.status = storage.ExportPending
	return t, nil
}

func (s *Store) FindTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, core.NotFoundf("transaction not found")
	}
	return rec.tx, nil
}

func (s *Store) ListTransactions(_ context.Context, userID int64, f core.TransactionFilter) ([]core.Transaction, error) {
	f, err := f.Normalize()
	if err != nil {
		return nil, err
	}
	out := s.matching(userID, f)
	sort.SliceStable(out, less(out, f))

	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CountTransactions(_ context.Context, userID int64, f core.TransactionFilter) (int64, error) {
	return int64(len(s.matching(userID, f))), nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return core.NotFoundf("transaction not found")
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) TransactionExists(_ context.Context, id, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.transactions[id]
	return ok && rec.tx.UserID == userID, nil
}

func (s *Store) DistinctCategories(_ context.Context, userID int64) ([]string, error) {
	return ledger.DistinctCategories(s.matching(userID, core.TransactionFilter{})), nil
}

func (s *Store) SumByType(_ context.Context, userID int64, typ core.TransactionType, r core.DateRange) (decimal.Decimal, error) {
	return ledger.TotalByType(s.matching(userID, core.TransactionFilter{DateRange: r}), typ), nil
}

func (s *Store) CountByType(_ context.Context, userID int64, typ core.TransactionType, r core.DateRange) (int64, error) {
	return ledger.CountByType(s.matching(userID, core.TransactionFilter{DateRange: r}), typ), nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return core.User{}, core.Conflictf("username is already taken")
		}
		if existing.Email == u.Email {
			return core.User{}, core.Conflictf("email is already in use")
		}
	}
	s.nextUserID++
	u.ID = s.nextUserID
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) FindUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, core.NotFoundf("user not found")
}

func (s *Store) FindUserByID(_ context.Context, id int64) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.NotFoundf("user not found")
	}
	return u, nil
}

func (s *Store) PendingExports(_ context.Context, limit int) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Transaction
	for _, rec := range s.transactions {
		if rec.status != storage.ExportDone {
			out = append(out, rec.tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkExported(_ context.Context, id int64) error {
	return s.setStatus(id, storage.ExportDone)
}

func (s *Store) MarkExportError(_ context.Context, id int64) error {
	return s.setStatus(id, storage.ExportFailed)
}

// ExportStatus reports the export state of a transaction, or "" if unknown.
func (s *Store) ExportStatus(id int64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.transactions[id]; ok {
		return rec.status
	}
	return ""
}

func (s *Store) setStatus(id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.transactions[id]
	if !ok {
		return core.NotFoundf("transaction not found")
	}
	rec.status = status
	return nil
}

func (s *Store) matching(userID int64, f core.TransactionFilter) []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Transaction
	for _, rec := range s.transactions {
		if rec.tx.UserID == userID && f.Matches(rec.tx) {
			out = append(out, rec.tx)
		}
	}
	return out
}

func less(txs []core.Transaction, f core.TransactionFilter) func(i, j int) bool {
	return func(i, j int) bool {
		a, b := txs[i], txs[j]
		var c int
		switch f.SortBy {
		case core.SortByAmount:
			c = a.Amount.Cmp(b.Amount)
		case core.SortByDescription:
			c = strings.Compare(a.Description, b.Description)
		case core.SortByCreatedAt:
			c = a.CreatedAt.Compare(b.CreatedAt)
		default:
			c = a.TransactionDate.Compare(b.TransactionDate)
		}
		if c == 0 {
			c = compareIDs(a.ID, b.ID)
		}
		if f.Desc {
			return c > 0
		}
		return c < 0
	}
}

func compareIDs(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
