package storage

import (
	"context"
	"encoding/json"
	"log/slog"

	"tally/internal/core"
)

// ExpenseGateway reads and writes the complete expense collection
// under its fixed namespace. Durability is best-effort by design: the
// in-memory collection is the source of truth for the session, so read
// and write failures are logged and swallowed, never surfaced as
// blocking errors.
type ExpenseGateway struct {
	kv KV
}

func NewExpenseGateway(kv KV) *ExpenseGateway {
	return &ExpenseGateway{kv: kv}
}

// Load returns the stored collection. Missing data, a failing backend,
// and a corrupt payload all yield an empty collection.
func (g *ExpenseGateway) Load(ctx context.Context) []core.Expense {
	raw, ok, err := g.kv.Get(ctx, KeyExpenses)
	if err != nil {
		slog.WarnContext(ctx, "Failed reading expense collection, starting empty",
			"namespace", KeyExpenses, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var expenses []core.Expense
	if err := json.Unmarshal(raw, &expenses); err != nil {
		slog.WarnContext(ctx, "Expense payload is corrupt, starting empty",
			"namespace", KeyExpenses, "error", err)
		return nil
	}
	return expenses
}

// Save overwrites the stored collection with the given one. There are
// no partial writes; every mutation re-serializes everything.
func (g *ExpenseGateway) Save(ctx context.Context, expenses []core.Expense) error {
	raw, err := json.Marshal(expenses)
	if err != nil {
		return err
	}
	return g.kv.Set(ctx, KeyExpenses, raw)
}
