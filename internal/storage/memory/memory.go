// Package memory is a process-local store for development and tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ausgaben/internal/core"
	"ausgaben/internal/ports"
)

var _ ports.Store = (*Store)(nil)

type record struct {
	expense       core.Expense
	seq           int
	version       int64
	syncedVersion int64
	ref           string
	syncErr       string
}

type Store struct {
	mu        sync.Mutex
	cats      map[string]core.Category
	expenses  map[string]*record
	overrides map[string]core.Money
	seq       int
}

func New(cats ...core.Category) *Store {
	s := &Store{
		cats:      make(map[string]core.Category),
		expenses:  make(map[string]*record),
		overrides: make(map[string]core.Money),
	}
	for _, c := range cats {
		s.cats[c.ID] = c
	}
	return s
}

// NewFromFiles seeds categories from base/seed_categories.txt. Each line is
// a name, optionally followed by ";" and a monthly budget ("Kino;40").
// Blank lines, comments and repeated names are skipped.
func NewFromFiles(base string) *Store {
	var cats []core.Category
	seen := map[string]bool{}
	for _, line := range readLines(filepath.Join(base, "seed_categories.txt")) {
		name, rawBudget, _ := strings.Cut(line, ";")
		name = strings.TrimSpace(name)
		key := core.NormalizeCategory(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		c := core.Category{ID: uuid.NewString(), Name: name}
		if strings.TrimSpace(rawBudget) != "" {
			if m, err := core.ParseAmount(rawBudget); err == nil {
				c.MonthlyBudget = &m
			}
		}
		cats = append(cats, c)
	}
	return New(cats...)
}

func (s *Store) Close() error { return nil }

// ListCategories implements ports.CategorySource
func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.cats))
	for _, c := range s.cats {
		out = append(out, copyCategory(c))
	}
	sort.Slice(out, func(i, j int) bool {
		return core.NormalizeCategory(out[i].Name) < core.NormalizeCategory(out[j].Name)
	})
	return out, nil
}

// SaveCategory implements ports.CategoryWriter
func (s *Store) SaveCategory(_ context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, other := range s.cats {
		if id != c.ID && other.Matches(c.Name) {
			return fmt.Errorf("save category: name %q already used", c.Name)
		}
	}
	s.cats[c.ID] = copyCategory(c)
	return nil
}

// DeleteCategory implements ports.CategoryWriter
func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[id]; !ok {
		return fmt.Errorf("delete category %s: %w", id, core.ErrNotFound)
	}
	delete(s.cats, id)
	return nil
}

// ListExpenses implements ports.ExpenseLister, newest date first.
func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(*record) bool { return true }, true), nil
}

// ListExpensesForCategoryAndMonth implements ports.ExpenseSource
func (s *Store) ListExpensesForCategoryAndMonth(_ context.Context, categoryID string, ym core.YearMonth) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(r *record) bool {
		return r.expense.CategoryID == categoryID && ym.Contains(r.expense.Date)
	}, false), nil
}

// GetExpense implements ports.ExpenseReader
func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, core.ErrNotFound)
	}
	return r.expense, nil
}

// SaveExpense implements ports.ExpenseWriter
func (s *Store) SaveExpense(_ context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.expenses[e.ID]; ok {
		r.expense = e
		r.version++
		return r.version, nil
	}
	s.seq++
	s.expenses[e.ID] = &record{expense: e, seq: s.seq, version: 1}
	return 1, nil
}

// DeleteExpense implements ports.ExpenseWriter
func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return fmt.Errorf("delete expense %s: %w", id, core.ErrNotFound)
	}
	delete(s.expenses, id)
	return nil
}

// GetOverride implements ports.OverrideStore
func (s *Store) GetOverride(_ context.Context, key string) (core.Money, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.overrides[key]
	return v, ok, nil
}

func (s *Store) SetOverride(_ context.Context, key string, value core.Money) error {
	if err := value.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[key] = value
	return nil
}

func (s *Store) ClearOverride(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, key)
	return nil
}

// PendingSync implements ports.SyncTracker, oldest first.
func (s *Store) PendingSync(_ context.Context, limit int) ([]ports.PendingExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recs []*record
	for _, r := range s.expenses {
		if r.syncedVersion < r.version {
			recs = append(recs, r)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	out := make([]ports.PendingExpense, len(recs))
	for i, r := range recs {
		out[i] = ports.PendingExpense{Expense: r.expense, Version: r.version}
	}
	return out, nil
}

func (s *Store) MarkSynced(_ context.Context, id string, version int64, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.expenses[id]; ok && r.version == version {
		r.syncedVersion = version
		r.ref = ref
		r.syncErr = ""
	}
	return nil
}

func (s *Store) MarkSyncError(_ context.Context, id string, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.expenses[id]; ok {
		r.syncErr = msg
	}
	return nil
}

// SyncRef returns the spreadsheet reference and last sync error of an expense.
func (s *Store) SyncRef(id string) (ref, syncErr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.expenses[id]; ok {
		return r.ref, r.syncErr
	}
	return "", ""
}

// sorted returns matching expenses by date, newest first when desc is set.
// Ties keep insertion order (reversed when desc).
func (s *Store) sorted(keep func(*record) bool, desc bool) []core.Expense {
	var recs []*record
	for _, r := range s.expenses {
		if keep(r) {
			recs = append(recs, r)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.expense.Date.Equal(b.expense.Date.Time) {
			if desc {
				return a.expense.Date.After(b.expense.Date.Time)
			}
			return a.expense.Date.Before(b.expense.Date.Time)
		}
		if desc {
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})
	out := make([]core.Expense, len(recs))
	for i, r := range recs {
		out[i] = r.expense
	}
	return out
}

func copyCategory(c core.Category) core.Category {
	if c.MonthlyBudget != nil {
		b := *c.MonthlyBudget
		c.MonthlyBudget = &b
	}
	return c
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
