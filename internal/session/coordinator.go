// Package session owns the authoritative in-memory expense collection
// and the active filter criteria for the lifetime of a session.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/storage"
)

// State is the coordinator lifecycle state. The transition is
// one-directional and happens once: Loading -> Ready.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
)

// Coordinator mediates between views and the repository. It holds the
// collection and criteria, funnels every mutation through the
// repository, and recomputes the derived filtered view and summary
// whenever either input changes. Derivations are pure recomputations;
// collections are small enough that no incremental caching is needed.
type Coordinator struct {
	mu       sync.Mutex
	repo     *storage.ExpenseRepository
	state    State
	expenses []core.Expense
	filters  core.Filters
	revision uint64
	now      func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the wall clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(repo *storage.ExpenseRepository, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:    repo,
		state:   StateLoading,
		filters: core.DefaultFilters(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start performs the one-time load from the repository and moves the
// coordinator to Ready. Calling it again is a no-op.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateReady {
		return
	}
	c.expenses = c.repo.List(ctx)
	c.state = StateReady
	c.revision++
	slog.InfoContext(ctx, "Session ready", log.FieldComponent, log.ComponentSession, log.FieldCount, len(c.expenses))
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Revision increments on every observable change; derived-view caches
// key on it.
func (c *Coordinator) Revision() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

// Expenses returns a copy of the full collection.
func (c *Coordinator) Expenses() []core.Expense {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Expense(nil), c.expenses...)
}

// Filtered returns the derived filtered view for the current criteria.
func (c *Coordinator) Filtered() []core.Expense {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Expense(nil), core.ApplyFilters(c.expenses, c.filters)...)
}

// Filters returns the current criteria.
func (c *Coordinator) Filters() core.Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// Summary is always derived from the full collection, independent of
// active filters, against wall-clock "now".
func (c *Coordinator) Summary() core.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return core.Summarize(c.expenses, c.now())
}

// AddExpense validates raw input, assigns id and timestamps, delegates
// to the repository, and replaces the held collection with its return
// value. Field errors block the mutation entirely.
func (c *Coordinator) AddExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, core.FieldErrors) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, errs := core.NewExpense(in, c.now())
	if errs != nil {
		slog.DebugContext(ctx, "Expense rejected", log.FieldComponent, log.ComponentSession, log.FieldError, errs)
		return core.Expense{}, errs
	}

	c.expenses = c.repo.Add(ctx, e)
	c.revision++
	slog.InfoContext(ctx, "Expense added",
		log.FieldComponent, log.ComponentSession,
		log.FieldExpenseID, e.ID,
		log.FieldCategory, string(e.Category),
		log.FieldAmountCents, e.Amount.Cents)
	return e, nil
}

// UpdateExpense merges the patch into the identified record. The merged
// entity is validated before anything is written; an unknown id is a
// silent no-op (deliberate, mirroring the delete semantics).
func (c *Coordinator) UpdateExpense(ctx context.Context, id string, patch core.ExpensePatch) core.FieldErrors {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, e := range c.expenses {
		if e.ID != id {
			continue
		}
		merged := patch.ApplyTo(e, now)
		if err := merged.Validate(now); err != nil {
			return fieldErrorsFrom(err)
		}
		c.expenses = c.repo.Update(ctx, id, patch, now)
		c.revision++
		slog.InfoContext(ctx, "Expense updated", log.FieldComponent, log.ComponentSession, log.FieldExpenseID, id)
		return nil
	}
	return nil
}

// DeleteExpense removes the identified record; unknown ids are ignored.
func (c *Coordinator) DeleteExpense(ctx context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	before := len(c.expenses)
	c.expenses = c.repo.Delete(ctx, id)
	if len(c.expenses) != before {
		c.revision++
		slog.InfoContext(ctx, "Expense deleted", log.FieldComponent, log.ComponentSession, log.FieldExpenseID, id)
	}
}

// SetFilters merges a partial criteria update into the active criteria.
func (c *Coordinator) SetFilters(patch core.FilterPatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = c.filters.Merge(patch)
	c.revision++
}

// ResetFilters restores the identity criteria.
func (c *Coordinator) ResetFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = core.DefaultFilters()
	c.revision++
}

// fieldErrorsFrom maps entity validation sentinels onto the per-field
// error shape used for raw input.
func fieldErrorsFrom(err error) core.FieldErrors {
	switch {
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrAmountTooLarge):
		return core.FieldErrors{"amount": err.Error()}
	case errors.Is(err, core.ErrInvalidCategory):
		return core.FieldErrors{"category": err.Error()}
	case errors.Is(err, core.ErrEmptyDescription), errors.Is(err, core.ErrDescriptionTooLong):
		return core.FieldErrors{"description": err.Error()}
	case errors.Is(err, core.ErrInvalidDate), errors.Is(err, core.ErrFutureDate):
		return core.FieldErrors{"date": err.Error()}
	default:
		return core.FieldErrors{"_": err.Error()}
	}
}
