package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ExpenseInput is the raw, untrusted form data for create/update.
type ExpenseInput struct {
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// FieldErrors maps field names to human-readable validation messages.
// A non-empty map blocks the mutation; no partial writes happen.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fe[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewExpense validates raw input and builds a fully-formed expense with
// a fresh ID and CreatedAt == UpdatedAt == now. On any field error the
// zero expense and a non-empty FieldErrors are returned.
func NewExpense(in ExpenseInput, now time.Time) (Expense, FieldErrors) {
	errs := FieldErrors{}

	var amount Money
	if cents, err := ParseAmountToCents(in.Amount); err != nil {
		switch err {
		case ErrAmountTooLarge:
			errs["amount"] = "amount seems too large"
		default:
			errs["amount"] = "please enter a valid amount greater than 0"
		}
	} else {
		amount = Money{Cents: cents}
	}

	category, err := ParseCategory(in.Category)
	if err != nil {
		errs["category"] = "please select a valid category"
	}

	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		errs["description"] = "please enter a description"
	} else if len([]rune(desc)) > MaxDescriptionLen {
		errs["description"] = "description is too long (max 200 characters)"
	}

	var date Date
	if in.Date == "" {
		errs["date"] = "please select a date"
	} else if date, err = ParseDate(in.Date); err != nil {
		errs["date"] = "please select a valid date"
	} else if date.After(DateOf(now).Time) {
		errs["date"] = "date cannot be in the future"
	}

	if len(errs) > 0 {
		return Expense{}, errs
	}

	return Expense{
		ID:          NewID(),
		Amount:      amount,
		Category:    category,
		Description: desc,
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ExpensePatch carries a partial entity update; nil fields keep their
// current value. ID and CreatedAt are not patchable.
type ExpensePatch struct {
	Amount      *Money
	Category    *Category
	Description *string
	Date        *Date
}

// ApplyTo merges the patch into an existing expense and refreshes
// UpdatedAt. The merged result is validated by the caller.
func (p ExpensePatch) ApplyTo(e Expense, now time.Time) Expense {
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	e.UpdatedAt = now
	return e
}
