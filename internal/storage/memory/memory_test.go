package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ausgaben/internal/core"
)

func TestMemoryStoreExpenses(t *testing.T) {
	ctx := context.Background()
	s := New()

	add := func(id string, d core.Date, cat string, cents int64) {
		t.Helper()
		if _, err := s.SaveExpense(ctx, core.Expense{ID: id, Name: id, Amount: core.Money{Cents: cents}, Date: d, CategoryID: cat}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	add("a", core.NewDate(2024, time.March, 2), "food", 100)
	add("b", core.NewDate(2024, time.March, 2), "food", 200)
	add("c", core.NewDate(2024, time.April, 1), "food", 300)
	add("d", core.NewDate(2024, time.March, 9), "bus", 400)

	all, _ := s.ListExpenses(ctx)
	if len(all) != 4 || all[0].ID != "c" || all[1].ID != "d" || all[2].ID != "b" || all[3].ID != "a" {
		t.Fatalf("unexpected order: %+v", all)
	}

	march, _ := s.ListExpensesForCategoryAndMonth(ctx, "food", core.YearMonth{Year: 2024, Month: time.March})
	if len(march) != 2 || march[0].ID != "a" {
		t.Fatalf("unexpected march: %+v", march)
	}

	if err := s.DeleteExpense(ctx, "zz"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetExpense(ctx, "zz"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreCategoryUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New(core.Category{ID: "1", Name: "Lebensmittel"})
	if err := s.SaveCategory(ctx, core.Category{ID: "2", Name: "LEBENSMITTEL"}); err == nil {
		t.Fatalf("expected duplicate name error")
	}
	budget := core.Money{Cents: 500}
	if err := s.SaveCategory(ctx, core.Category{ID: "1", Name: "Lebensmittel", MonthlyBudget: &budget}); err != nil {
		t.Fatalf("update: %v", err)
	}
	budget.Cents = 1 // must not leak into the store
	cats, _ := s.ListCategories(ctx)
	if cats[0].MonthlyBudget.Cents != 500 {
		t.Fatalf("store shares budget pointer with caller")
	}
}

func TestMemoryStoreSync(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := core.Expense{ID: "a", Name: "a", Amount: core.Money{Cents: 1}, Date: core.NewDate(2024, 1, 1)}
	v1, _ := s.SaveExpense(ctx, e)
	v2, _ := s.SaveExpense(ctx, e)
	if v1 != 1 || v2 != 2 {
		t.Fatalf("versions = %d, %d", v1, v2)
	}
	_ = s.MarkSynced(ctx, "a", v1, "mem:1")
	if p, _ := s.PendingSync(ctx, 10); len(p) != 1 || p[0].Version != 2 {
		t.Fatalf("pending = %+v", p)
	}
	_ = s.MarkSynced(ctx, "a", v2, "mem:2")
	if p, _ := s.PendingSync(ctx, 10); len(p) != 0 {
		t.Fatalf("pending = %+v", p)
	}
	if ref, _ := s.SyncRef("a"); ref != "mem:2" {
		t.Fatalf("ref = %q", ref)
	}
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir)
	if cats, _ := s.ListCategories(context.Background()); len(cats) != 0 {
		t.Fatalf("expected no categories without a seed file, got %v", cats)
	}

	content := "# header\nKino;40\nBus\nkino\n\nLebensmittel;300,50\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFiles(dir)
	cats, _ := s.ListCategories(context.Background())
	if len(cats) != 3 {
		t.Fatalf("unexpected cats: %+v", cats)
	}
	if cats[0].Name != "Bus" || cats[0].MonthlyBudget != nil {
		t.Fatalf("unexpected first category: %+v", cats[0])
	}
	if cats[1].Name != "Kino" || cats[1].MonthlyBudget.Cents != 4000 {
		t.Fatalf("unexpected Kino: %+v", cats[1])
	}
	if cats[2].MonthlyBudget.Cents != 30050 {
		t.Fatalf("unexpected budget: %+v", cats[2].MonthlyBudget)
	}
}
