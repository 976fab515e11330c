package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ausgaben/internal/core"
	"ausgaben/internal/ports"

	_ "modernc.org/sqlite"
)

var _ ports.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListCategories implements ports.CategorySource
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, monthly_budget_cents FROM categories ORDER BY name_key`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c      core.Category
			budget sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Name, &budget); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if budget.Valid {
			c.MonthlyBudget = &core.Money{Cents: budget.Int64}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// SaveCategory implements ports.CategoryWriter
func (r *SQLiteRepository) SaveCategory(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	var budget sql.NullInt64
	if c.MonthlyBudget != nil {
		budget = sql.NullInt64{Int64: c.MonthlyBudget.Cents, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, name_key, monthly_budget_cents)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			name_key = excluded.name_key,
			monthly_budget_cents = excluded.monthly_budget_cents`,
		c.ID, c.Name, core.NormalizeCategory(c.Name), budget)
	if err != nil {
		return fmt.Errorf("save category: %w", err)
	}

	slog.DebugContext(ctx, "Category saved", "id", c.ID, "name", c.Name)
	return nil
}

// DeleteCategory implements ports.CategoryWriter. Expenses keep the ID.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res, "category", id)
}

const expenseColumns = `id, name, amount_cents, day, category_id, note`

// ListExpenses implements ports.ExpenseLister
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses ORDER BY day DESC, created_at DESC`)
}

// ListExpensesForCategoryAndMonth implements ports.ExpenseSource
func (r *SQLiteRepository) ListExpensesForCategoryAndMonth(ctx context.Context, categoryID string, ym core.YearMonth) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE category_id = ? AND substr(day, 1, 7) = ?
		 ORDER BY day`,
		categoryID, ym.String())
}

// GetExpense implements ports.ExpenseReader
func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return e, nil
}

// SaveExpense implements ports.ExpenseWriter. Every save bumps the version
// so the sync worker picks the change up.
func (r *SQLiteRepository) SaveExpense(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	var version int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO expenses (id, name, amount_cents, day, category_id, note)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			amount_cents = excluded.amount_cents,
			day = excluded.day,
			category_id = excluded.category_id,
			note = excluded.note,
			version = expenses.version + 1,
			updated_at = CURRENT_TIMESTAMP
		RETURNING version`,
		e.ID, e.Name, e.Amount.Cents, e.Date.ISO(), e.CategoryID, e.Note,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"name", e.Name,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.ISO(),
		"version", version)
	return version, nil
}

// DeleteExpense implements ports.ExpenseWriter
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireAffected(res, "expense", id)
}

// GetOverride implements ports.OverrideStore
func (r *SQLiteRepository) GetOverride(ctx context.Context, key string) (core.Money, bool, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `SELECT value_cents FROM meta WHERE key = ?`, key).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, false, nil
	}
	if err != nil {
		return core.Money{}, false, fmt.Errorf("get override %s: %w", key, err)
	}
	return core.Money{Cents: cents}, true, nil
}

// SetOverride implements ports.OverrideStore
func (r *SQLiteRepository) SetOverride(ctx context.Context, key string, value core.Money) error {
	if err := value.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO meta (key, value_cents) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value_cents = excluded.value_cents, updated_at = CURRENT_TIMESTAMP`,
		key, value.Cents)
	if err != nil {
		return fmt.Errorf("set override %s: %w", key, err)
	}
	return nil
}

// ClearOverride implements ports.OverrideStore. Clearing a missing key is not an error.
func (r *SQLiteRepository) ClearOverride(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM meta WHERE key = ?`, key); err != nil {
		return fmt.Errorf("clear override %s: %w", key, err)
	}
	return nil
}

// PendingSync returns expenses whose latest version has not been synced yet
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]ports.PendingExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+expenseColumns+`, version FROM expenses
		WHERE synced_version < version
		ORDER BY created_at
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}
	defer rows.Close()

	var out []ports.PendingExpense
	for rows.Next() {
		var (
			p   ports.PendingExpense
			day string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Amount.Cents, &day, &p.CategoryID, &p.Note, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending expense: %w", err)
		}
		if p.Date, err = core.ParseISODate(day); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending expenses: %w", err)
	}
	return out, nil
}

// MarkSynced marks an expense version as successfully synced
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64, ref string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses SET synced_version = ?, sheet_ref = ?, sync_error = ''
		WHERE id = ? AND version = ?`, version, ref, id, version)
	if err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.DebugContext(ctx, "Expense changed before sync completed", "id", id, "version", version)
		return nil
	}

	slog.InfoContext(ctx, "Expense marked as synced", "id", id, "version", version, "ref", ref)
	return nil
}

// MarkSyncError records the last sync failure of an expense
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string, msg string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET sync_error = ? WHERE id = ?`, msg, id); err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}

	slog.WarnContext(ctx, "Expense marked with sync error", "id", id, "error", msg)
	return nil
}

func (r *SQLiteRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e   core.Expense
		day string
	)
	if err := s.Scan(&e.ID, &e.Name, &e.Amount.Cents, &day, &e.CategoryID, &e.Note); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseISODate(day)
	if err != nil {
		return core.Expense{}, err
	}
	e.Date = d
	return e, nil
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}
