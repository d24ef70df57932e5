package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"tally/internal/cli"
	"tally/internal/cloudexport"
	"tally/internal/core"
	"tally/internal/storage"
)

// tally-report prints a spending summary and recent export activity
// for the configured store.
func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	backendResult := cli.InitBackend(logger, cfg)
	defer func() {
		if backendResult.Cleanup != nil {
			_ = backendResult.Cleanup()
		}
	}()

	ctx := context.Background()
	gateway := storage.NewExpenseGateway(backendResult.Store)
	expenses := gateway.Load(ctx)
	summary := core.Summarize(expenses, time.Now())

	printSummary(summary)
	printBreakdown(summary)
	printTrend(summary)

	hub := cloudexport.NewService(backendResult.Store)
	printHistory(hub.History(ctx))
}

func printSummary(s core.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Spending Summary")
	t.AppendRows([]table.Row{
		{"Total spending", "$" + s.TotalSpending.Decimal()},
		{"This month", "$" + s.MonthlySpending.Decimal()},
		{"Average expense", "$" + s.AverageExpense.Decimal()},
		{"Expense count", s.ExpenseCount},
	})
	if s.TopCategory != "" {
		t.AppendRow(table.Row{"Top category", string(s.TopCategory)})
	}
	t.Render()
	fmt.Println()
}

func printBreakdown(s core.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("By Category")
	t.AppendHeader(table.Row{"Category", "Total"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	for _, row := range s.Breakdown {
		t.AppendRow(table.Row{string(row.Category), "$" + row.Total.Decimal()})
	}
	t.Render()
	fmt.Println()
}

func printTrend(s core.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Monthly Trend")
	t.AppendHeader(table.Row{"Month", "Total"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	for _, month := range s.MonthlyTrend {
		t.AppendRow(table.Row{month.Label, "$" + month.Total.Decimal()})
	}
	t.Render()
	fmt.Println()
}

func printHistory(items []cloudexport.ExportHistoryItem) {
	if len(items) == 0 {
		fmt.Println("No exports recorded.")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Recent Exports")
	t.AppendHeader(table.Row{"When", "Template", "Destination", "Status", "Records"})
	limit := len(items)
	if limit > 10 {
		limit = 10
	}
	for _, item := range items[:limit] {
		t.AppendRow(table.Row{
			item.Timestamp.Format("2006-01-02 15:04"),
			string(item.Template),
			item.Destination,
			string(item.Status),
			item.RecordCount,
		})
	}
	t.Render()
}
