// Package ports declares the collaborator interfaces the services depend on.
package ports

import (
	"context"
	"io"

	"ausgaben/internal/core"
)

// PendingExpense is an expense whose latest version has not reached the
// spreadsheet yet.
type PendingExpense struct {
	core.Expense
	Version int64
}

type (
	CategorySource interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	CategoryWriter interface {
		// SaveCategory inserts or replaces the category with the same ID.
		SaveCategory(ctx context.Context, c core.Category) error
		DeleteCategory(ctx context.Context, id string) error
	}

	// ExpenseSource feeds the budget projection.
	ExpenseSource interface {
		ListExpensesForCategoryAndMonth(ctx context.Context, categoryID string, ym core.YearMonth) ([]core.Expense, error)
	}

	ExpenseLister interface {
		ListExpenses(ctx context.Context) ([]core.Expense, error)
	}

	ExpenseReader interface {
		// GetExpense returns core.ErrNotFound for unknown IDs.
		GetExpense(ctx context.Context, id string) (core.Expense, error)
	}

	ExpenseWriter interface {
		// SaveExpense inserts or replaces the expense and returns its new
		// sync version.
		SaveExpense(ctx context.Context, e core.Expense) (version int64, err error)
		DeleteExpense(ctx context.Context, id string) error
	}

	// OverrideStore keeps manual month-to-date spend corrections by key.
	OverrideStore interface {
		GetOverride(ctx context.Context, key string) (value core.Money, ok bool, err error)
		SetOverride(ctx context.Context, key string, value core.Money) error
		ClearOverride(ctx context.Context, key string) error
	}

	SyncTracker interface {
		PendingSync(ctx context.Context, limit int) ([]PendingExpense, error)
		// MarkSynced records ref for the given version. It is a no-op when
		// the expense has changed since.
		MarkSynced(ctx context.Context, id string, version int64, ref string) error
		MarkSyncError(ctx context.Context, id string, msg string) error
	}

	// Store is everything a backend provides.
	Store interface {
		CategorySource
		CategoryWriter
		ExpenseSource
		ExpenseLister
		ExpenseReader
		ExpenseWriter
		OverrideStore
		SyncTracker
		io.Closer
	}

	// ExpenseExporter appends an expense to an external ledger.
	ExpenseExporter interface {
		Export(ctx context.Context, e core.Expense, categoryName string) (ref string, err error)
	}

	SyncPublisher interface {
		PublishExpenseSync(ctx context.Context, id string, version int64) error
	}
)
