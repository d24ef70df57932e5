package core

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	CategoryFood           Category = "Food"
	CategoryTransportation Category = "Transportation"
	CategoryEntertainment  Category = "Entertainment"
	CategoryShopping       Category = "Shopping"
	CategoryBills          Category = "Bills"
	CategoryOther          Category = "Other"

	// CategoryAll is a filter-only sentinel, never stored on an expense.
	CategoryAll Category = "All"
)

// MaxAmountCents caps a single expense at 1,000,000.00.
const MaxAmountCents int64 = 100_000_000

// MaxDescriptionLen is the description character limit after trimming.
const MaxDescriptionLen = 200

type (
	Category string

	// Date is a calendar day with no time component. It marshals as an
	// ISO date string (YYYY-MM-DD), so stored payloads compare the way
	// the filter engine compares dates.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense is the sole persisted entity. ID and CreatedAt are
	// immutable after creation; UpdatedAt refreshes on every mutation.
	Expense struct {
		ID          string    `json:"id"`
		Amount      Money     `json:"amount_cents"`
		Category    Category  `json:"category"`
		Description string    `json:"description"`
		Date        Date      `json:"date"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrAmountTooLarge     = errors.New("amount too large")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrInvalidDate        = errors.New("invalid date")
	ErrFutureDate         = errors.New("date cannot be in the future")
	ErrInvalidCategory    = errors.New("invalid category")
)

// Categories returns the fixed closed category set in canonical order.
// Breakdown initialization and top-category tie-breaking both depend
// on this order.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryTransportation,
		CategoryEntertainment,
		CategoryShopping,
		CategoryBills,
		CategoryOther,
	}
}

// ParseCategory validates a raw string against the fixed set.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if Category(s) == c {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

// IsValid reports whether c is a member of the fixed set (All excluded).
func (c Category) IsValid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

func (c Category) String() string { return string(c) }

const dateLayout = "2006-01-02"

// NewDate creates a Date for year, month, day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO date string (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// DateOf truncates a timestamp to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// IsEmpty reports an unset date; filter bounds use the zero value for "no bound".
func (d Date) IsEmpty() bool { return d.IsZero() }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if m.Cents > MaxAmountCents {
		return ErrAmountTooLarge
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.Cents, 10)), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseInt(strings.Trim(string(b), `"`), 10, 64)
	if err != nil {
		return ErrInvalidAmount
	}
	m.Cents = v
	return nil
}

// Validate checks entity invariants against wall-clock "now". ID
// uniqueness is a collection property enforced by the repository.
func (e Expense) Validate(now time.Time) error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Category.IsValid() {
		return ErrInvalidCategory
	}
	desc := strings.TrimSpace(e.Description)
	if desc == "" {
		return ErrEmptyDescription
	}
	if len([]rune(desc)) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if e.Date.IsEmpty() {
		return ErrInvalidDate
	}
	if e.Date.After(DateOf(now).Time) {
		return ErrFutureDate
	}
	return nil
}

// NewID generates an opaque unique expense identifier.
func NewID() string {
	return uuid.NewString()
}
