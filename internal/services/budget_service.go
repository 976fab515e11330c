package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"ausgaben/internal/budget"
	"ausgaben/internal/core"
	"ausgaben/internal/ports"
)

type BudgetStore interface {
	ports.CategorySource
	ports.ExpenseSource
	ports.OverrideStore
}

// Report is the budget picture for one category and month.
type Report struct {
	Category   string
	Month      core.YearMonth
	Budget     *core.Money
	Spent      core.Money
	Overridden bool
	PerDay     budget.Status
	Allowance  budget.Status
}

// Danger reports whether either projection is over budget.
func (r Report) Danger() bool {
	return r.PerDay.Classification == budget.ClassDanger || r.Allowance.Classification == budget.ClassDanger
}

type BudgetService struct {
	store BudgetStore
}

func NewBudgetService(store BudgetStore) *BudgetService {
	return &BudgetService{store: store}
}

// Report computes both projections for the named category as of today.
// An unknown category yields muted statuses rather than an error.
func (s *BudgetService) Report(ctx context.Context, categoryName string, today core.Date) (Report, error) {
	ym := today.YearMonth()
	rep := Report{Category: categoryName, Month: ym}

	var (
		cats        []core.Category
		override    core.Money
		hasOverride bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cats, err = s.store.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		override, hasOverride, err = s.store.GetOverride(gctx, budget.OverrideKey(categoryName, ym))
		if err != nil {
			return fmt.Errorf("get override: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	cat, ok := core.FindCategory(cats, categoryName)
	if !ok {
		rep.PerDay = budget.NoCategory()
		rep.Allowance = budget.NoCategory()
		return rep, nil
	}
	rep.Category = cat.Name
	rep.Budget = cat.MonthlyBudget

	var expenses []core.Expense
	if !hasOverride {
		var err error
		expenses, err = s.store.ListExpensesForCategoryAndMonth(ctx, cat.ID, ym)
		if err != nil {
			return Report{}, fmt.Errorf("list expenses: %w", err)
		}
	}
	rep.Spent = budget.MonthToDate(expenses, override, hasOverride)
	rep.Overridden = hasOverride

	in := budget.Input{MonthlyBudget: cat.MonthlyBudget, MonthToDateSpend: rep.Spent, Today: today}
	rep.PerDay = budget.RemainingPacePerDay(in)
	rep.Allowance = budget.ProjectedAllowanceToday(in)

	slog.DebugContext(ctx, "Computed budget report",
		"category", cat.Name,
		"month", ym.String(),
		"spent_cents", rep.Spent.Cents,
		"overridden", hasOverride,
		"status", rep.PerDay.Classification)
	return rep, nil
}

// GetOverride returns the manual month-to-date spend for a category, if set.
func (s *BudgetService) GetOverride(ctx context.Context, categoryName string, ym core.YearMonth) (core.Money, bool, error) {
	v, ok, err := s.store.GetOverride(ctx, budget.OverrideKey(categoryName, ym))
	if err != nil {
		return core.Money{}, false, fmt.Errorf("get override: %w", err)
	}
	return v, ok, nil
}

// SetOverride replaces the computed month-to-date spend with value.
func (s *BudgetService) SetOverride(ctx context.Context, categoryName string, ym core.YearMonth, value core.Money) error {
	if err := value.Validate(); err != nil {
		return err
	}
	key := budget.OverrideKey(categoryName, ym)
	if err := s.store.SetOverride(ctx, key, value); err != nil {
		return fmt.Errorf("set override: %w", err)
	}
	slog.InfoContext(ctx, "Set spend override", "key", key, "amount_cents", value.Cents)
	return nil
}

func (s *BudgetService) ClearOverride(ctx context.Context, categoryName string, ym core.YearMonth) error {
	key := budget.OverrideKey(categoryName, ym)
	if err := s.store.ClearOverride(ctx, key); err != nil {
		return fmt.Errorf("clear override: %w", err)
	}
	slog.InfoContext(ctx, "Cleared spend override", "key", key)
	return nil
}
