// Package worker runs scheduled exports in the background. It polls
// the schedule registry on a fixed interval, executes whatever is due,
// and advances each schedule's next-run marker.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/cloudexport"
	"tally/internal/core"
	"tally/internal/storage"
)

// ScheduleWorker executes due scheduled exports against the hub.
type ScheduleWorker struct {
	gateway *storage.ExpenseGateway
	hub     *cloudexport.Service
	now     func() time.Time
}

func NewScheduleWorker(gateway *storage.ExpenseGateway, hub *cloudexport.Service) *ScheduleWorker {
	return &ScheduleWorker{
		gateway: gateway,
		hub:     hub,
		now:     time.Now,
	}
}

// Run polls for due schedules every interval until the context is
// cancelled. One failing schedule never blocks the others.
func (w *ScheduleWorker) Run(ctx context.Context, interval time.Duration) error {
	slog.InfoContext(ctx, "Schedule worker started", "interval", interval.String())

	// Catch up on anything that came due while the worker was down.
	if err := w.RunDue(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup schedule check failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Schedule worker stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.RunDue(ctx); err != nil {
				slog.ErrorContext(ctx, "Schedule pass failed", "error", err)
			}
		}
	}
}

// RunDue executes every enabled schedule whose next run has passed.
func (w *ScheduleWorker) RunDue(ctx context.Context) error {
	now := w.now()
	due := w.hub.DueSchedules(ctx, now)
	if len(due) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing due schedules", "count", len(due))

	expenses := w.gateway.Load(ctx)
	var firstErr error
	for _, sched := range due {
		if err := w.runSchedule(ctx, sched, expenses, now); err != nil {
			slog.ErrorContext(ctx, "Scheduled export failed",
				"schedule_id", sched.ID,
				"template", string(sched.Template),
				"error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (w *ScheduleWorker) runSchedule(ctx context.Context, sched cloudexport.ScheduledExport, expenses []core.Expense, now time.Time) error {
	item, err := w.hub.ExportToCloud(ctx, expenses, sched.Template, sched.Destination)
	if err != nil {
		return fmt.Errorf("run scheduled export: %w", err)
	}
	// Advance even after a simulated upload failure: the run happened
	// and is recorded in the history.
	w.hub.AdvanceSchedule(ctx, sched.ID, now)

	slog.InfoContext(ctx, "Scheduled export finished",
		"schedule_id", sched.ID,
		"export_id", item.ID,
		"template", string(sched.Template),
		"destination", string(sched.Destination),
		"status", string(item.Status))
	return nil
}
