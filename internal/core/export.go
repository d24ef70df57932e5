package core

import "strings"

// ExportCSV renders expenses as CSV: header row first, one row per
// expense with date, category, quoted-escaped description, and the
// amount with two decimal places. Never persisted, generated on demand
// from either the filtered view or the full collection.
func ExportCSV(expenses []Expense) string {
	var b strings.Builder
	b.WriteString("Date,Category,Description,Amount")
	for _, e := range expenses {
		b.WriteByte('\n')
		b.WriteString(e.Date.String())
		b.WriteByte(',')
		b.WriteString(string(e.Category))
		b.WriteByte(',')
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(e.Description, `"`, `""`))
		b.WriteByte('"')
		b.WriteByte(',')
		b.WriteString(e.Amount.Decimal())
	}
	return b.String()
}
