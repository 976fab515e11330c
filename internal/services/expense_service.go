package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ausgaben/internal/core"
	"ausgaben/internal/csvio"
	"ausgaben/internal/ports"
	"ausgaben/internal/quickentry"
)

// Range limits List to a window around today.
type Range string

const (
	RangeToday Range = "today"
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
	RangeAll   Range = "all"
)

// ParseRange accepts the range names case-insensitively. Empty means month.
func ParseRange(s string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RangeMonth, nil
	case RangeToday, RangeWeek, RangeMonth, RangeAll:
		return r, nil
	default:
		return "", fmt.Errorf("unknown range %q: must be today, week, month or all", s)
	}
}

// Contains reports whether d falls in the range relative to today.
// Weeks run Monday to Sunday.
func (r Range) Contains(d, today core.Date) bool {
	switch r {
	case RangeToday:
		return d.Equal(today.Time)
	case RangeWeek:
		start := today.StartOfWeek()
		return !d.Before(start.Time) && !d.After(start.AddDays(6).Time)
	case RangeMonth:
		return today.YearMonth().Contains(d)
	default:
		return true
	}
}

type Filter struct {
	Range Range
	// Query is matched case-insensitively against name, note and category name.
	Query string
}

// ExpenseView is an expense with its category name resolved.
type ExpenseView struct {
	core.Expense
	Category string
}

// ExpenseInput carries user-provided fields for Add and Update. An empty
// Category leaves the expense uncategorized.
type ExpenseInput struct {
	Name     string
	Amount   core.Money
	Date     core.Date
	Category string
	Note     string
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Imported int
	Skipped  int
}

// ExpenseService orchestrates expense operations across the store and AMQP
type ExpenseService struct {
	store      ports.Store
	categories *CategoryService
	publisher  ports.SyncPublisher

	defaultCategory string
	dynamicTags     bool
}

type ExpenseOption func(*ExpenseService)

// WithPublisher announces every write on the sync queue.
func WithPublisher(p ports.SyncPublisher) ExpenseOption {
	return func(s *ExpenseService) { s.publisher = p }
}

// WithDefaultCategory sets the category for untagged quick entries and
// imported rows without a category.
func WithDefaultCategory(name string) ExpenseOption {
	return func(s *ExpenseService) {
		if strings.TrimSpace(name) != "" {
			s.defaultCategory = name
		}
	}
}

// WithDynamicTags makes quick entry recognize every stored category name
// instead of only the food category.
func WithDynamicTags(enabled bool) ExpenseOption {
	return func(s *ExpenseService) { s.dynamicTags = enabled }
}

func NewExpenseService(store ports.Store, categories *CategoryService, opts ...ExpenseOption) *ExpenseService {
	s := &ExpenseService{
		store:           store,
		categories:      categories,
		defaultCategory: core.FoodCategory,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preview parses a quick-entry line without saving anything.
func (s *ExpenseService) Preview(ctx context.Context, line string, now time.Time) (quickentry.Result, error) {
	parser, err := s.parser(ctx)
	if err != nil {
		return quickentry.Result{}, err
	}
	res, ok := parser.Parse(line, now)
	if !ok {
		return quickentry.Result{}, ErrEmptyInput
	}
	return res, nil
}

// QuickAdd parses a free-text line and saves the expense. Entries without a
// category tag go to the default category.
func (s *ExpenseService) QuickAdd(ctx context.Context, line string, now time.Time) (ExpenseView, error) {
	res, err := s.Preview(ctx, line, now)
	if err != nil {
		return ExpenseView{}, err
	}
	if !res.HasAmount {
		return ExpenseView{}, ErrNoAmount
	}

	category := res.Category
	if category == "" {
		category = s.defaultCategory
	}
	return s.Add(ctx, ExpenseInput{
		Name:     res.Name,
		Amount:   res.Amount,
		Date:     res.Date,
		Category: category,
	})
}

// Add creates an expense, creating its category on first use.
func (s *ExpenseService) Add(ctx context.Context, in ExpenseInput) (ExpenseView, error) {
	return s.save(ctx, uuid.NewString(), in, "create")
}

// Update replaces all fields of an existing expense.
func (s *ExpenseService) Update(ctx context.Context, id string, in ExpenseInput) (ExpenseView, error) {
	if _, err := s.store.GetExpense(ctx, id); err != nil {
		return ExpenseView{}, fmt.Errorf("get expense: %w", err)
	}
	return s.save(ctx, id, in, "update")
}

func (s *ExpenseService) save(ctx context.Context, id string, in ExpenseInput, op string) (ExpenseView, error) {
	e := core.Expense{
		ID:     id,
		Name:   strings.TrimSpace(in.Name),
		Amount: in.Amount,
		Date:   in.Date,
		Note:   strings.TrimSpace(in.Note),
	}
	if e.Name == "" {
		e.Name = core.Untitled
	}

	var view ExpenseView
	if strings.TrimSpace(in.Category) != "" {
		c, err := s.categories.Ensure(ctx, in.Category)
		if err != nil {
			return ExpenseView{}, err
		}
		e.CategoryID = c.ID
		view.Category = c.Name
	}

	version, err := s.store.SaveExpense(ctx, e)
	if err != nil {
		return ExpenseView{}, fmt.Errorf("save expense: %w", err)
	}
	view.Expense = e

	slog.InfoContext(ctx, "Saved expense",
		"operation", op,
		"expense_id", e.ID,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.ISO(),
		"category", view.Category)

	s.publishSyncMessage(ctx, e.ID, version)
	return view, nil
}

// Delete removes an expense. Rows already exported to the spreadsheet stay there.
func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	slog.InfoContext(ctx, "Deleted expense", "expense_id", id)
	return nil
}

// Get returns one expense with its category name.
func (s *ExpenseService) Get(ctx context.Context, id string) (ExpenseView, error) {
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return ExpenseView{}, fmt.Errorf("get expense: %w", err)
	}
	cats, err := s.categories.List(ctx)
	if err != nil {
		return ExpenseView{}, err
	}
	return ExpenseView{Expense: e, Category: categoryName(cats, e.CategoryID)}, nil
}

// List returns matching expenses, newest date first.
func (s *ExpenseService) List(ctx context.Context, f Filter, now time.Time) ([]ExpenseView, error) {
	all, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	today := core.DateOf(now)
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]ExpenseView, 0, len(all))
	for _, e := range all {
		if f.Range != "" && !f.Range.Contains(e.Date, today) {
			continue
		}
		v := ExpenseView{Expense: e, Category: categoryName(cats, e.CategoryID)}
		if q != "" && !strings.Contains(strings.ToLower(v.Name+" "+v.Note+" "+v.Category), q) {
			continue
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out, nil
}

// Import reads a CSV/TSV file and adds every readable row. Rows without a
// category go to the default category.
func (s *ExpenseService) Import(ctx context.Context, r io.Reader, filename string) (ImportResult, error) {
	parsed, err := csvio.Read(r, filename)
	if err != nil {
		return ImportResult{}, err
	}
	res := ImportResult{Skipped: parsed.Skipped}
	for _, row := range parsed.Rows {
		category := row.Category
		if category == "" {
			category = s.defaultCategory
		}
		if _, err := s.Add(ctx, ExpenseInput{
			Name:     row.Name,
			Amount:   row.Amount,
			Date:     row.Date,
			Category: category,
			Note:     row.Note,
		}); err != nil {
			return res, fmt.Errorf("import %q: %w", row.Name, err)
		}
		res.Imported++
	}
	slog.InfoContext(ctx, "Imported expenses", "file", filename, "imported", res.Imported, "skipped", res.Skipped)
	return res, nil
}

// Export writes every expense as CSV, newest first.
func (s *ExpenseService) Export(ctx context.Context, w io.Writer) error {
	views, err := s.List(ctx, Filter{Range: RangeAll}, time.Now())
	if err != nil {
		return err
	}
	rows := make([]csvio.Row, len(views))
	for i, v := range views {
		rows[i] = csvio.Row{Name: v.Name, Amount: v.Amount, Date: v.Date, Category: v.Category, Note: v.Note}
	}
	return csvio.Write(w, rows)
}

func (s *ExpenseService) parser(ctx context.Context) (*quickentry.Parser, error) {
	if !s.dynamicTags {
		return quickentry.NewParser(), nil
	}
	tagger, err := s.categories.Tagger(ctx)
	if err != nil {
		return nil, err
	}
	return quickentry.NewParser(quickentry.WithTagger(tagger)), nil
}

func (s *ExpenseService) publishSyncMessage(ctx context.Context, id string, version int64) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No sync publisher configured, skipping sync message", "expense_id", id)
		return
	}
	// The expense is saved; the pending sweep picks it up if this fails.
	if err := s.publisher.PublishExpenseSync(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "expense_id", id, "version", version, "error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *ExpenseService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}

	return nil
}

func categoryName(cats []core.Category, id string) string {
	if id == "" {
		return ""
	}
	for _, c := range cats {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}
