package core

import "strings"

// Filters are the session-scoped filter criteria. The zero-ish identity
// value (empty search, CategoryAll, empty bounds) selects everything.
type Filters struct {
	Search   string   `json:"search"`
	Category Category `json:"category"`
	DateFrom Date     `json:"date_from"`
	DateTo   Date     `json:"date_to"`
}

// FilterPatch carries a partial criteria update; nil fields are left
// untouched by Merge.
type FilterPatch struct {
	Search   *string
	Category *Category
	DateFrom *Date
	DateTo   *Date
}

// DefaultFilters returns the identity criteria.
func DefaultFilters() Filters {
	return Filters{Category: CategoryAll}
}

// IsIdentity reports whether f selects the full collection.
func (f Filters) IsIdentity() bool {
	return f.Search == "" && (f.Category == CategoryAll || f.Category == "") &&
		f.DateFrom.IsEmpty() && f.DateTo.IsEmpty()
}

// Merge applies a partial update and returns the resulting criteria.
func (f Filters) Merge(p FilterPatch) Filters {
	if p.Search != nil {
		f.Search = *p.Search
	}
	if p.Category != nil {
		f.Category = *p.Category
	}
	if p.DateFrom != nil {
		f.DateFrom = *p.DateFrom
	}
	if p.DateTo != nil {
		f.DateTo = *p.DateTo
	}
	return f
}

// Matches evaluates every active predicate against a single expense.
// All active predicates must hold.
func (f Filters) Matches(e Expense) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.Description), q) &&
			!strings.Contains(strings.ToLower(string(e.Category)), q) {
			return false
		}
	}
	if f.Category != CategoryAll && f.Category != "" && e.Category != f.Category {
		return false
	}
	if !f.DateFrom.IsEmpty() && e.Date.Before(f.DateFrom.Time) {
		return false
	}
	if !f.DateTo.IsEmpty() && e.Date.After(f.DateTo.Time) {
		return false
	}
	return true
}

// ApplyFilters returns the stable-ordered subset of expenses matching
// the criteria. Identity criteria return the collection as-is.
func ApplyFilters(expenses []Expense, f Filters) []Expense {
	if f.IsIdentity() {
		return expenses
	}
	out := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}
