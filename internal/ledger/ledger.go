// Package ledger aggregates a user's transactions. Every function is pure and
// expects its input already scoped to one user.
package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
)

const monthLayout = "2006-01-02"

// TotalByType sums the amounts of transactions of the given type.
func TotalByType(txs []core.Transaction, typ core.TransactionType) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		if t.Type == typ {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// NetWorth is income minus expenses.
func NetWorth(txs []core.Transaction) decimal.Decimal {
	return TotalByType(txs, core.Income).Sub(TotalByType(txs, core.Expense))
}

func CountByType(txs []core.Transaction, typ core.TransactionType) int64 {
	var n int64
	for _, t := range txs {
		if t.Type == typ {
			n++
		}
	}
	return n
}

// CategorySummaries groups by exact category string. Transactions with a
// blank category are skipped. Output is sorted by category.
func CategorySummaries(txs []core.Transaction) []core.CategorySummary {
	byCat := make(map[string]*core.CategorySummary)
	for _, t := range txs {
		if strings.TrimSpace(t.Category) == "" {
			continue
		}
		s, ok := byCat[t.Category]
		if !ok {
			s = &core.CategorySummary{
				Category:      t.Category,
				TotalAmount:   decimal.Zero,
				IncomeAmount:  decimal.Zero,
				ExpenseAmount: decimal.Zero,
			}
			byCat[t.Category] = s
		}
		s.TotalAmount = s.TotalAmount.Add(t.Amount)
		s.TransactionCount++
		switch t.Type {
		case core.Income:
			s.IncomeAmount = s.IncomeAmount.Add(t.Amount)
		case core.Expense:
			s.ExpenseAmount = s.ExpenseAmount.Add(t.Amount)
		}
	}

	out := make([]core.CategorySummary, 0, len(byCat))
	for _, s := range byCat {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// MonthlyTrends groups by the first day of each transaction's month, using the
// transaction date's own location. When months > 0 only the last months
// calendar months up to and including now's month are kept. Output is sorted
// ascending by month.
func MonthlyTrends(txs []core.Transaction, months int, now time.Time) []core.MonthlyTrend {
	var cutoff time.Time
	if months > 0 {
		cutoff = firstOfMonth(now).AddDate(0, -(months - 1), 0)
	}

	byMonth := make(map[time.Time]*core.MonthlyTrend)
	for _, t := range txs {
		m := firstOfMonth(t.TransactionDate)
		if months > 0 && monthBefore(m, cutoff) {
			continue
		}
		key := time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, time.UTC)
		tr, ok := byMonth[key]
		if !ok {
			tr = &core.MonthlyTrend{
				Month:    key.Format(monthLayout),
				Income:   decimal.Zero,
				Expenses: decimal.Zero,
			}
			byMonth[key] = tr
		}
		switch t.Type {
		case core.Income:
			tr.Income = tr.Income.Add(t.Amount)
		case core.Expense:
			tr.Expenses = tr.Expenses.Add(t.Amount)
		}
		tr.TransactionCount++
	}

	keys := make([]time.Time, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	out := make([]core.MonthlyTrend, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byMonth[k])
	}
	return out
}

// DistinctCategories returns the non-empty categories, deduplicated and sorted.
func DistinctCategories(txs []core.Transaction) []string {
	seen := make(map[string]struct{})
	for _, t := range txs {
		if t.Category == "" {
			continue
		}
		seen[t.Category] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// monthBefore compares calendar months, ignoring locations.
func monthBefore(a, b time.Time) bool {
	if a.Year() != b.Year() {
		return a.Year() < b.Year()
	}
	return a.Month() < b.Month()
}
