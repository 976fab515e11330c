package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"ausgaben/internal/core"
	"ausgaben/internal/ports"
	"ausgaben/internal/quickentry"
)

// maxSuggestDistance bounds the edit distance of "did you mean" hints.
const maxSuggestDistance = 2

type CategoryStore interface {
	ports.CategorySource
	ports.CategoryWriter
}

// CategoryService finds, creates and budgets categories by name.
type CategoryService struct {
	store CategoryStore
}

func NewCategoryService(store CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

// EnsureDefaults creates the food category when it does not exist yet.
func (s *CategoryService) EnsureDefaults(ctx context.Context) error {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	if _, ok := core.FindCategory(cats, core.FoodCategory); ok {
		return nil
	}
	c := core.Category{ID: uuid.NewString(), Name: "Lebensmittel"}
	if err := s.store.SaveCategory(ctx, c); err != nil {
		return fmt.Errorf("create default category: %w", err)
	}
	slog.InfoContext(ctx, "Created default category", "category", c.Name)
	return nil
}

// Ensure returns the category with the given name, ignoring case, and
// creates it without a budget when missing. New categories are stored
// under the normalized name.
func (s *CategoryService) Ensure(ctx context.Context, name string) (core.Category, error) {
	key := core.NormalizeCategory(name)
	if key == "" {
		return core.Category{}, core.ErrEmptyName
	}
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return core.Category{}, fmt.Errorf("list categories: %w", err)
	}
	if c, ok := core.FindCategory(cats, key); ok {
		return c, nil
	}

	c := core.Category{ID: uuid.NewString(), Name: key}
	if err := s.store.SaveCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("create category %q: %w", key, err)
	}
	slog.InfoContext(ctx, "Created category", "category", key, "id", c.ID)
	return c, nil
}

func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// Find looks a category up by name without creating it.
func (s *CategoryService) Find(ctx context.Context, name string) (core.Category, error) {
	cats, err := s.List(ctx)
	if err != nil {
		return core.Category{}, err
	}
	c, ok := core.FindCategory(cats, name)
	if !ok {
		return core.Category{}, fmt.Errorf("%w: %q", ErrCategoryNotFound, name)
	}
	return c, nil
}

// SetBudget sets or, with a nil budget, clears the monthly budget.
func (s *CategoryService) SetBudget(ctx context.Context, name string, budget *core.Money) (core.Category, error) {
	c, err := s.Find(ctx, name)
	if err != nil {
		return core.Category{}, err
	}
	if budget != nil {
		if err := budget.Validate(); err != nil {
			return core.Category{}, err
		}
		b := *budget
		budget = &b
	}
	c.MonthlyBudget = budget
	if err := s.store.SaveCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	slog.InfoContext(ctx, "Updated category budget", "category", c.Name, "budget_set", budget != nil)
	return c, nil
}

// Delete removes the category. Expenses keep their category ID.
func (s *CategoryService) Delete(ctx context.Context, name string) error {
	c, err := s.Find(ctx, name)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCategory(ctx, c.ID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	slog.InfoContext(ctx, "Deleted category", "category", c.Name)
	return nil
}

// Suggest returns the closest existing category name to a misspelled one.
func (s *CategoryService) Suggest(ctx context.Context, name string) (string, bool) {
	key := core.NormalizeCategory(name)
	cats, err := s.store.ListCategories(ctx)
	if err != nil || key == "" {
		return "", false
	}
	best, bestDist := "", maxSuggestDistance+1
	for _, c := range cats {
		d := levenshtein.ComputeDistance(key, core.NormalizeCategory(c.Name))
		if d > 0 && d < bestDist {
			best, bestDist = c.Name, d
		}
	}
	return best, best != ""
}

// Tagger builds a quick-entry tagger over the current category names.
func (s *CategoryService) Tagger(ctx context.Context) (*quickentry.Tagger, error) {
	cats, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		if strings.TrimSpace(c.Name) != "" {
			names = append(names, c.Name)
		}
	}
	return quickentry.NewTagger(names...), nil
}
