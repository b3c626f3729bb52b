package core

import (
	"strings"
	"time"
)

// Sortable transaction fields.
const (
	SortByDate        = "transactionDate"
	SortByAmount      = "amount"
	SortByDescription = "description"
	SortByCreatedAt   = "createdAt"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// DateRange bounds are inclusive. A nil pointer means unbounded on that side.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// TransactionFilter narrows a user's transactions. Zero values mean "any".
type TransactionFilter struct {
	Type     TransactionType
	Category string
	DateRange

	SortBy string
	Desc   bool
	Limit  int
	Offset int
}

// NewDateRange builds a range and checks that it is not inverted.
func NewDateRange(from, to time.Time) (DateRange, error) {
	if to.Before(from) {
		return DateRange{}, Validationf("start date must be before end date")
	}
	return DateRange{From: &from, To: &to}, nil
}

func (r DateRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// Normalize fills defaults: date descending when no sort is given.
func (f TransactionFilter) Normalize() (TransactionFilter, error) {
	switch f.SortBy {
	case "":
		f.SortBy = SortByDate
		f.Desc = true
	case SortByDate, SortByAmount, SortByDescription, SortByCreatedAt:
	default:
		return f, Validationf("invalid sort field: %s", f.SortBy)
	}
	if f.Limit < 0 || f.Offset < 0 {
		return f, Validationf("invalid pagination")
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return f, nil
}

// Matches applies the non-pagination parts of the filter.
func (f TransactionFilter) Matches(t Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	return f.DateRange.Contains(t.TransactionDate)
}

// ParseSortDir maps "asc"/"desc" (any case) to a descending flag.
func ParseSortDir(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc":
		return true, nil
	case "asc":
		return false, nil
	default:
		return false, Validationf("invalid sort direction: %s", s)
	}
}

// Page is one slice of a paginated listing.
type Page struct {
	Items         []Transaction
	Page          int
	Size          int
	TotalElements int64
	TotalPages    int
}

func NewPage(items []Transaction, page, size int, total int64) Page {
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return Page{Items: items, Page: page, Size: size, TotalElements: total, TotalPages: pages}
}
