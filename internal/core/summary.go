package core

import "time"

// trendMonths is the fixed length of the trailing monthly trend: the
// five prior calendar months plus the current one, oldest first.
const trendMonths = 6

type (
	// CategoryAmount is one row of the per-category breakdown.
	CategoryAmount struct {
		Category Category `json:"category"`
		Total    Money    `json:"total_cents"`
	}

	// MonthTotal is one entry of the monthly trend.
	MonthTotal struct {
		Year  int        `json:"year"`
		Month time.Month `json:"month"`
		Label string     `json:"label"` // e.g. "Jan 26"
		Total Money      `json:"total_cents"`
	}

	// Summary is fully derived from the complete collection; it is
	// never persisted and always reflects all expenses regardless of
	// active filters.
	Summary struct {
		TotalSpending   Money            `json:"total_spending_cents"`
		MonthlySpending Money            `json:"monthly_spending_cents"`
		AverageExpense  Money            `json:"average_expense_cents"`
		ExpenseCount    int              `json:"expense_count"`
		Breakdown       []CategoryAmount `json:"category_breakdown"`
		MonthlyTrend    []MonthTotal     `json:"monthly_trend"`
		TopCategory     Category         `json:"top_category"` // empty when all totals are zero
	}
)

// BreakdownFor returns the breakdown total for a category.
func (s Summary) BreakdownFor(c Category) Money {
	for _, row := range s.Breakdown {
		if row.Category == c {
			return row.Total
		}
	}
	return Money{}
}

// Summarize computes the full summary for a collection. The caller
// supplies "now"; the current calendar month and the trend window are
// both anchored to it.
func Summarize(expenses []Expense, now time.Time) Summary {
	s := Summary{ExpenseCount: len(expenses)}

	totals := make(map[Category]int64, len(Categories()))
	for _, e := range expenses {
		s.TotalSpending.Cents += e.Amount.Cents
		totals[e.Category] += e.Amount.Cents
		if e.Date.Year() == now.Year() && e.Date.Month() == now.Month() {
			s.MonthlySpending.Cents += e.Amount.Cents
		}
	}

	if len(expenses) > 0 {
		s.AverageExpense.Cents = s.TotalSpending.Cents / int64(len(expenses))
	}

	// Every fixed category appears in the breakdown, used or not.
	// Ties keep the first category in canonical order; an all-zero
	// breakdown yields no top category.
	var max int64
	s.Breakdown = make([]CategoryAmount, 0, len(Categories()))
	for _, c := range Categories() {
		total := totals[c]
		s.Breakdown = append(s.Breakdown, CategoryAmount{Category: c, Total: Money{Cents: total}})
		if total > max {
			max = total
			s.TopCategory = c
		}
	}

	s.MonthlyTrend = monthlyTrend(expenses, now)
	return s
}

func monthlyTrend(expenses []Expense, now time.Time) []MonthTotal {
	trend := make([]MonthTotal, 0, trendMonths)
	for i := trendMonths - 1; i >= 0; i-- {
		anchor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		entry := MonthTotal{
			Year:  anchor.Year(),
			Month: anchor.Month(),
			Label: anchor.Format("Jan 06"),
		}
		for _, e := range expenses {
			if e.Date.Year() == entry.Year && e.Date.Month() == entry.Month {
				entry.Total.Cents += e.Amount.Cents
			}
		}
		trend = append(trend, entry)
	}
	return trend
}
