package storage

import (
	"context"
	"log/slog"
	"time"

	"tally/internal/core"
)

// ExpenseRepository runs CRUD over the expense collection. Every
// mutation reads the current collection, applies the change, asks the
// gateway to persist the result, and returns the post-mutation
// collection so callers always hold fresh, authoritative state.
//
// A persist failure does not roll the mutation back: the session keeps
// working against the returned collection (best-effort durability, see
// ExpenseGateway).
type ExpenseRepository struct {
	gateway *ExpenseGateway
}

func NewExpenseRepository(gateway *ExpenseGateway) *ExpenseRepository {
	return &ExpenseRepository{gateway: gateway}
}

// List returns the stored collection.
func (r *ExpenseRepository) List(ctx context.Context) []core.Expense {
	return r.gateway.Load(ctx)
}

// Add prepends the new record (newest-first convention) and persists.
func (r *ExpenseRepository) Add(ctx context.Context, e core.Expense) []core.Expense {
	expenses := append([]core.Expense{e}, r.gateway.Load(ctx)...)
	r.persist(ctx, expenses, "add", e.ID)
	return expenses
}

// Update merges the patch into the record with the given id and
// refreshes its UpdatedAt. An unknown id is a silent no-op; the
// collection is returned unchanged and nothing is persisted twice.
func (r *ExpenseRepository) Update(ctx context.Context, id string, patch core.ExpensePatch, now time.Time) []core.Expense {
	expenses := r.gateway.Load(ctx)
	for i, e := range expenses {
		if e.ID == id {
			expenses[i] = patch.ApplyTo(e, now)
			r.persist(ctx, expenses, "update", id)
			return expenses
		}
	}
	slog.DebugContext(ctx, "Update of unknown expense ignored", "expense_id", id)
	return expenses
}

// Delete removes the record with the given id if present; an unknown
// id is a silent no-op.
func (r *ExpenseRepository) Delete(ctx context.Context, id string) []core.Expense {
	expenses := r.gateway.Load(ctx)
	for i, e := range expenses {
		if e.ID == id {
			expenses = append(expenses[:i], expenses[i+1:]...)
			r.persist(ctx, expenses, "delete", id)
			return expenses
		}
	}
	slog.DebugContext(ctx, "Delete of unknown expense ignored", "expense_id", id)
	return expenses
}

func (r *ExpenseRepository) persist(ctx context.Context, expenses []core.Expense, op, id string) {
	if err := r.gateway.Save(ctx, expenses); err != nil {
		slog.WarnContext(ctx, "Failed persisting expense collection, session continues in memory",
			"operation", op, "expense_id", id, "count", len(expenses), "error", err)
	}
}
