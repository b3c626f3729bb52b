package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"

	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically in the same order as time. Dates are stored in
// UTC with the original offset kept alongside.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const transactionColumns = `id, user_id, description, amount, type, transaction_date, tz_offset,
	category, notes, created_at, updated_at`

func (r *SQLiteRepository) SaveTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := time.Now().UTC()
	if t.ID == 0 {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO transactions (user_id, description, amount, type, transaction_date, tz_offset,
				category, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.UserID, t.Description, core.FormatAmount(t.Amount), string(t.Type),
			formatTime(t.TransactionDate), offsetOf(t.TransactionDate),
			t.Category, t.Notes, formatTime(now), formatTime(now))
		if err != nil {
			return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return core.Transaction{}, fmt.Errorf("read transaction id: %w", err)
		}
		t.ID = id
		t.CreatedAt = now
		t.UpdatedAt = now

		slog.InfoContext(ctx, "Transaction saved to SQLite",
			"id", t.ID,
			"user_id", t.UserID,
			"type", t.Type,
			"amount", core.FormatAmount(t.Amount))
		return t, nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET description = ?, amount = ?, type = ?, transaction_date = ?, tz_offset = ?,
			category = ?, notes = ?, updated_at = ?, export_status = 'pending'
		WHERE id = ?`,
		t.Description, core.FormatAmount(t.Amount), string(t.Type),
		formatTime(t.TransactionDate), offsetOf(t.TransactionDate),
		t.Category, t.Notes, formatTime(now), t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, core.NotFoundf("transaction not found")
	}
	t.UpdatedAt = now
	return t, nil
}

func (r *SQLiteRepository) FindTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NotFoundf("transaction not found")
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, f core.TransactionFilter) ([]core.Transaction, error) {
	f, err := f.Normalize()
	if err != nil {
		return nil, err
	}
	where, args := whereClause(userID, f)
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where + orderClause(f)
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CountTransactions(ctx context.Context, userID int64, f core.TransactionFilter) (int64, error) {
	where, args := whereClause(userID, f)
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFoundf("transaction not found")
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) TransactionExists(ctx context.Context, id, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE id = ? AND user_id = ?)`, id, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check transaction %d: %w", id, err)
	}
	return exists, nil
}

func (r *SQLiteRepository) DistinctCategories(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT category FROM transactions
		WHERE user_id = ? AND category != ''
		ORDER BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// SumByType adds amounts in Go; SQLite would sum the TEXT column as floats.
func (r *SQLiteRepository) SumByType(ctx context.Context, userID int64, typ core.TransactionType, dr core.DateRange) (decimal.Decimal, error) {
	where, args := whereClause(userID, core.TransactionFilter{Type: typ, DateRange: dr})
	rows, err := r.db.QueryContext(ctx, `SELECT amount FROM transactions`+where, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum %s: %w", typ, err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

func (r *SQLiteRepository) CountByType(ctx context.Context, userID int64, typ core.TransactionType, dr core.DateRange) (int64, error) {
	return r.CountTransactions(ctx, userID, core.TransactionFilter{Type: typ, DateRange: dr})
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	var taken string
	err := r.db.QueryRowContext(ctx, `
		SELECT CASE WHEN username = ? THEN 'username' ELSE 'email' END
		FROM users WHERE username = ? OR email = ? LIMIT 1`,
		u.Username, u.Username, u.Email).Scan(&taken)
	switch {
	case err == nil:
		return core.User{}, duplicateUser(taken)
	case !errors.Is(err, sql.ErrNoRows):
		return core.User{}, fmt.Errorf("check user: %w", err)
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, formatTime(now))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.User{}, core.Conflictf("username or email already exists")
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return core.User{}, fmt.Errorf("read user id: %w", err)
	}
	u.CreatedAt = now

	slog.InfoContext(ctx, "User created", "id", u.ID, "username", u.Username)
	return u, nil
}

func (r *SQLiteRepository) FindUserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.findUser(ctx, `username = ?`, username)
}

func (r *SQLiteRepository) FindUserByID(ctx context.Context, id int64) (core.User, error) {
	return r.findUser(ctx, `id = ?`, id)
}

func (r *SQLiteRepository) findUser(ctx context.Context, cond string, arg any) (core.User, error) {
	var (
		u       core.User
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE `+cond, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.NotFoundf("user not found")
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	if u.CreatedAt, err = parseTime(created, 0); err != nil {
		return core.User{}, err
	}
	return u, nil
}

// PendingExports returns the oldest transactions not yet exported, including
// ones whose last export failed.
func (r *SQLiteRepository) PendingExports(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE export_status IN ('pending', 'error')
		ORDER BY created_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending exports: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET export_status = 'exported', exported_at = ? WHERE id = ?`,
		formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("mark transaction %d exported: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE transactions SET export_status = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction %d export error: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                      core.Transaction
		amount, typ            string
		date, created, updated string
		offset                 int
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.Description, &amount, &typ, &date, &offset,
		&t.Category, &t.Notes, &created, &updated); err != nil {
		return core.Transaction{}, err
	}

	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	t.Type = core.TransactionType(typ)
	if t.TransactionDate, err = parseTime(date, offset); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt, err = parseTime(created, 0); err != nil {
		return core.Transaction{}, err
	}
	if t.UpdatedAt, err = parseTime(updated, 0); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func whereClause(userID int64, f core.TransactionFilter) (string, []any) {
	conds := []string{"user_id = ?"}
	args := []any{userID}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.From != nil {
		conds = append(conds, "transaction_date >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "transaction_date <= ?")
		args = append(args, formatTime(*f.To))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(f core.TransactionFilter) string {
	col := "transaction_date"
	switch f.SortBy {
	case core.SortByAmount:
		col = "CAST(amount AS REAL)"
	case core.SortByDescription:
		col = "description"
	case core.SortByCreatedAt:
		col = "created_at"
	}
	dir := " ASC"
	if f.Desc {
		dir = " DESC"
	}
	return " ORDER BY " + col + dir + ", id" + dir
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func offsetOf(t time.Time) int {
	_, off := t.Zone()
	return off
}

func parseTime(s string, offset int) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	if offset == 0 {
		return t, nil
	}
	return t.In(time.FixedZone("", offset)), nil
}

func duplicateUser(field string) error {
	if field == "username" {
		return core.Conflictf("username is already taken")
	}
	return core.Conflictf("email is already in use")
}
