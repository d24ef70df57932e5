package core

import (
	"encoding/json"
	"testing"
	"time"
)

var testNow = time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)

func validExpense() Expense {
	return Expense{
		ID:          NewID(),
		Amount:      Money{Cents: 4250},
		Category:    CategoryFood,
		Description: "Lunch",
		Date:        NewDate(2026, time.August, 15),
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}
}

func TestExpenseValidate(t *testing.T) {
	if err := validExpense().Validate(testNow); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"zero amount", func(e *Expense) { e.Amount.Cents = 0 }, ErrInvalidAmount},
		{"negative amount", func(e *Expense) { e.Amount.Cents = -100 }, ErrInvalidAmount},
		{"over limit", func(e *Expense) { e.Amount.Cents = MaxAmountCents + 1 }, ErrAmountTooLarge},
		{"bad category", func(e *Expense) { e.Category = "Groceries" }, ErrInvalidCategory},
		{"all is not storable", func(e *Expense) { e.Category = CategoryAll }, ErrInvalidCategory},
		{"empty description", func(e *Expense) { e.Description = "   " }, ErrEmptyDescription},
		{"zero date", func(e *Expense) { e.Date = Date{} }, ErrInvalidDate},
		{"future date", func(e *Expense) { e.Date = NewDate(2099, time.January, 1) }, ErrFutureDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := validExpense()
			tc.mutate(&e)
			if err := e.Validate(testNow); err != tc.want {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAmountBoundaries(t *testing.T) {
	// One cent and the exact cap are both accepted.
	for _, cents := range []int64{1, MaxAmountCents} {
		e := validExpense()
		e.Amount.Cents = cents
		if err := e.Validate(testNow); err != nil {
			t.Fatalf("cents=%d: expected ok, got %v", cents, err)
		}
	}
}

func TestDescriptionLength(t *testing.T) {
	e := validExpense()
	long := make([]rune, MaxDescriptionLen)
	for i := range long {
		long[i] = 'x'
	}
	e.Description = string(long)
	if err := e.Validate(testNow); err != nil {
		t.Fatalf("200 chars should be accepted, got %v", err)
	}
	e.Description += "x"
	if err := e.Validate(testNow); err != ErrDescriptionTooLong {
		t.Fatalf("201 chars should be rejected, got %v", err)
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, err := ParseCategory(string(c))
		if err != nil || got != c {
			t.Fatalf("ParseCategory(%q) = %v, %v", c, got, err)
		}
	}
	if _, err := ParseCategory("All"); err == nil {
		t.Fatal("All must not parse as a storable category")
	}
	if _, err := ParseCategory("food"); err == nil {
		t.Fatal("category matching is case-sensitive")
	}
}

func TestExpenseJSONRoundTrip(t *testing.T) {
	e := validExpense()
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Expense
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != e.ID || got.Amount != e.Amount || got.Category != e.Category {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, e)
	}
	if got.Date.String() != "2026-08-15" {
		t.Fatalf("date round trip mismatch: %s", got.Date)
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		if id == "" || seen[id] {
			t.Fatalf("id %q empty or repeated", id)
		}
		seen[id] = true
	}
}
