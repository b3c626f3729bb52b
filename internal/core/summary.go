package core

import "github.com/shopspring/decimal"

// CategorySummary aggregates one category's transactions.
// TotalAmount sums raw amounts regardless of type.
type CategorySummary struct {
	Category         string
	TotalAmount      decimal.Decimal
	TransactionCount int64
	IncomeAmount     decimal.Decimal
	ExpenseAmount    decimal.Decimal
}

// MonthlyTrend aggregates one calendar month. Month is formatted YYYY-MM-01.
type MonthlyTrend struct {
	Month            string
	Income           decimal.Decimal
	Expenses         decimal.Decimal
	TransactionCount int64
}

// Summary is the income/expense overview of a set of transactions.
type Summary struct {
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	NetWorth      decimal.Decimal
	IncomeCount   int64
	ExpenseCount  int64
}
