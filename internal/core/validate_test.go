package core

import (
	"testing"
	"time"
)

func TestNewExpenseValid(t *testing.T) {
	e, errs := NewExpense(ExpenseInput{
		Amount:      "42.50",
		Category:    "Food",
		Description: "Lunch",
		Date:        "2024-01-15",
	}, testNow)
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if e.ID == "" {
		t.Fatal("id must be assigned")
	}
	if !e.CreatedAt.Equal(e.UpdatedAt) {
		t.Fatal("createdAt must equal updatedAt on creation")
	}
	if e.Amount.Cents != 4250 || e.Category != CategoryFood || e.Date.String() != "2024-01-15" {
		t.Fatalf("fields mismatch: %+v", e)
	}
}

func TestNewExpenseFieldErrors(t *testing.T) {
	cases := []struct {
		name  string
		in    ExpenseInput
		field string
	}{
		{"zero amount", ExpenseInput{Amount: "0", Category: "Food", Description: "x", Date: "2024-01-15"}, "amount"},
		{"amount over limit", ExpenseInput{Amount: "1000000.01", Category: "Food", Description: "x", Date: "2024-01-15"}, "amount"},
		{"non-numeric amount", ExpenseInput{Amount: "ten", Category: "Food", Description: "x", Date: "2024-01-15"}, "amount"},
		{"bad category", ExpenseInput{Amount: "1", Category: "Misc", Description: "x", Date: "2024-01-15"}, "category"},
		{"empty description", ExpenseInput{Amount: "1", Category: "Food", Description: "  ", Date: "2024-01-15"}, "description"},
		{"missing date", ExpenseInput{Amount: "1", Category: "Food", Description: "x", Date: ""}, "date"},
		{"future date", ExpenseInput{Amount: "1", Category: "Food", Description: "x", Date: "2099-01-01"}, "date"},
		{"garbage date", ExpenseInput{Amount: "1", Category: "Food", Description: "x", Date: "15/01/2024"}, "date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, errs := NewExpense(tc.in, testNow)
			if errs == nil {
				t.Fatal("expected field errors")
			}
			if _, ok := errs[tc.field]; !ok {
				t.Fatalf("expected error on %q, got %v", tc.field, errs)
			}
		})
	}
}

func TestNewExpenseReportsAllBadFields(t *testing.T) {
	_, errs := NewExpense(ExpenseInput{}, testNow)
	for _, f := range []string{"amount", "category", "description", "date"} {
		if _, ok := errs[f]; !ok {
			t.Fatalf("missing error for %q: %v", f, errs)
		}
	}
}

func TestExpensePatchApplyTo(t *testing.T) {
	e := validExpense()
	created := e.CreatedAt
	later := testNow.Add(time.Hour)

	amount := Money{Cents: 999}
	desc := "  Dinner  "
	patched := ExpensePatch{Amount: &amount, Description: &desc}.ApplyTo(e, later)

	if patched.ID != e.ID || !patched.CreatedAt.Equal(created) {
		t.Fatal("id and createdAt are immutable")
	}
	if patched.Amount.Cents != 999 || patched.Description != "Dinner" {
		t.Fatalf("patch not applied: %+v", patched)
	}
	if patched.Category != e.Category || !patched.Date.Equal(e.Date.Time) {
		t.Fatal("untouched fields must keep their values")
	}
	if !patched.UpdatedAt.Equal(later) {
		t.Fatal("updatedAt must refresh")
	}
}

func TestExportCSV(t *testing.T) {
	expenses := []Expense{
		{
			Amount:      Money{Cents: 4250},
			Category:    CategoryFood,
			Description: `Lunch "special"`,
			Date:        NewDate(2024, time.January, 15),
		},
	}
	got := ExportCSV(expenses)
	want := "Date,Category,Description,Amount\n2024-01-15,Food,\"Lunch \"\"special\"\"\",42.50"
	if got != want {
		t.Fatalf("csv mismatch:\nwant %q\ngot  %q", want, got)
	}

	if ExportCSV(nil) != "Date,Category,Description,Amount" {
		t.Fatal("empty collection still yields the header row")
	}
}
