package cloudexport

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"tally/internal/core"
)

// ExportXLSX renders expenses as a single-sheet spreadsheet: header
// row, then one row per expense with the date, category, description,
// and decimal amount.
func ExportXLSX(expenses []core.Expense) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Expenses"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := []any{"Date", "Category", "Description", "Amount"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, e := range expenses {
		cell := fmt.Sprintf("A%d", i+2)
		row := []any{e.Date.String(), string(e.Category), e.Description, e.Amount.Float()}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
