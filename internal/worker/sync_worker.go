package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ausgaben/internal/amqp"
	"ausgaben/internal/core"
	"ausgaben/internal/ports"
	"ausgaben/internal/services"
)

// Store is what the worker needs from the backend.
type Store interface {
	ports.CategorySource
	ports.ExpenseReader
	ports.SyncTracker
}

// BudgetReporter computes the budget state after an expense lands.
type BudgetReporter interface {
	Report(ctx context.Context, categoryName string, today core.Date) (services.Report, error)
}

// SyncWorker handles synchronization of expenses from the store to the spreadsheet
type SyncWorker struct {
	store     Store
	exporter  ports.ExpenseExporter
	budgets   BudgetReporter
	batchSize int
	now       func() time.Time
}

type Option func(*SyncWorker)

// WithBudgetAlerts logs a warning whenever a synced expense leaves its
// category over budget.
func WithBudgetAlerts(b BudgetReporter) Option {
	return func(w *SyncWorker) { w.budgets = b }
}

// WithClock sets the clock used for budget alerts.
func WithClock(now func() time.Time) Option {
	return func(w *SyncWorker) { w.now = now }
}

func NewSyncWorker(store Store, exporter ports.ExpenseExporter, batchSize int, opts ...Option) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	w := &SyncWorker{
		store:     store,
		exporter:  exporter,
		batchSize: batchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleSyncMessage processes a single expense sync message from AMQP.
// Messages for deleted expenses are dropped.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ExpenseSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	expense, err := w.store.GetExpense(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "Expense no longer exists, dropping sync message", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	if err := w.syncExpense(ctx, expense, msg.Version); err != nil {
		return fmt.Errorf("sync expense to sheets: %w", err)
	}
	return nil
}

// ProcessPendingExpenses processes any expenses that haven't been synced yet
// This is a backup mechanism in case AMQP messages are lost
func (w *SyncWorker) ProcessPendingExpenses(ctx context.Context) error {
	synced, failed, err := w.processPending(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if synced+failed > 0 {
		slog.InfoContext(ctx, "Processed pending expenses", "synced", synced, "errors", failed)
	}
	return nil
}

// StartupSyncCheck syncs a larger batch of pending expenses at worker
// startup to recover from missed messages or downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced+failed == 0 {
		slog.InfoContext(ctx, "No pending expenses found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"total", synced+failed,
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.store.PendingSync(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending expenses: %w", err)
	}

	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		if err := w.syncExpense(ctx, p.Expense, p.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to sync expense", "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

func (w *SyncWorker) syncExpense(ctx context.Context, e core.Expense, version int64) error {
	categoryName, err := w.categoryName(ctx, e.CategoryID)
	if err != nil {
		return err
	}

	ref, err := w.exporter.Export(ctx, e, categoryName)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, e.ID, err.Error()); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", e.ID, "error", markErr)
		}
		return fmt.Errorf("export expense: %w", err)
	}

	// The export worked; a failed mark only means a harmless re-export later.
	if err := w.store.MarkSynced(ctx, e.ID, version, ref); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", e.ID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced expense",
		"id", e.ID,
		"version", version,
		"sheets_ref", ref,
		"amount_cents", e.Amount.Cents)

	if categoryName != "" {
		w.checkBudget(ctx, categoryName)
	}
	return nil
}

func (w *SyncWorker) checkBudget(ctx context.Context, categoryName string) {
	if w.budgets == nil {
		return
	}
	rep, err := w.budgets.Report(ctx, categoryName, core.DateOf(w.now()))
	if err != nil {
		slog.WarnContext(ctx, "Budget check failed", "category", categoryName, "error", err)
		return
	}
	if rep.Danger() {
		slog.WarnContext(ctx, "Budget alert",
			"category", rep.Category,
			"month", rep.Month.String(),
			"spent_cents", rep.Spent.Cents,
			"remaining_pace", rep.PerDay.Message,
			"allowance_today", rep.Allowance.Message)
	}
}

func (w *SyncWorker) categoryName(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	cats, err := w.store.ListCategories(ctx)
	if err != nil {
		return "", fmt.Errorf("list categories: %w", err)
	}
	return core.CategoryNames(cats)[id], nil
}
