package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	MaxDescriptionLen = 255
	MaxCategoryLen    = 100
	MaxNotesLen       = 500
)

type (
	TransactionType string

	Transaction struct {
		ID              int64
		UserID          int64
		Description     string
		Amount          decimal.Decimal
		Type            TransactionType
		TransactionDate time.Time
		Category        string
		Notes           string
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	User struct {
		ID           int64
		Username     string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}
)

// ParseTransactionType accepts the type name in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		if strings.TrimSpace(s) == "" {
			return "", Validationf("transaction type is required")
		}
		return "", Validationf("invalid transaction type: %s", s)
	}
	return t, nil
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// ValidateTransaction checks the invariants shared by create and update.
// now bounds the transaction date; a date equal to now is accepted.
func ValidateTransaction(t Transaction, now time.Time) error {
	if !t.Amount.IsPositive() {
		return Validationf("transaction amount must be greater than 0")
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return Validationf("transaction description is required")
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLen {
		return Validationf("description must not exceed %d characters", MaxDescriptionLen)
	}
	if t.Type == "" {
		return Validationf("transaction type is required")
	}
	if !t.Type.Valid() {
		return Validationf("invalid transaction type: %s", t.Type)
	}
	if t.TransactionDate.IsZero() {
		return Validationf("transaction date is required")
	}
	if t.TransactionDate.After(now) {
		return Validationf("transaction date cannot be in the future")
	}
	if utf8.RuneCountInString(t.Category) > MaxCategoryLen {
		return Validationf("category must not exceed %d characters", MaxCategoryLen)
	}
	if utf8.RuneCountInString(t.Notes) > MaxNotesLen {
		return Validationf("notes must not exceed %d characters", MaxNotesLen)
	}
	return nil
}
