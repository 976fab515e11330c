package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Untitled is the label used for expenses entered without a name.
const Untitled = "(untitled)"

// FoodCategory is the category the quick-entry tagger always recognizes
// and the default target for untagged quick entries.
const FoodCategory = "lebensmittel"

type (
	// Date is a calendar day. The wrapped time is always midnight UTC.
	Date struct {
		time.Time
	}

	// YearMonth identifies a calendar month.
	YearMonth struct {
		Year  int
		Month time.Month
	}

	Money struct {
		Cents int64
	}

	Category struct {
		ID            string
		Name          string
		MonthlyBudget *Money // nil means no budget set
	}

	Expense struct {
		ID         string
		Name       string
		Amount     Money
		Date       Date
		CategoryID string // empty when uncategorized
		Note       string
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyName     = errors.New("empty name")
	ErrEmptyID       = errors.New("empty id")
	ErrNotFound      = errors.New("not found")
)

const isoLayout = "2006-01-02"

// NewDate creates a new Date from year, month, day. Out-of-range values are
// normalized the way time.Date does it.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseISODate parses a YYYY-MM-DD string.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse(isoLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// ValidDate reports whether year, month and day name an existing calendar day.
func ValidDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	d := NewDate(year, time.Month(month), day)
	return d.Year() == year && int(d.Month()) == month && d.Day() == day
}

// ISO renders the date as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format(isoLayout)
}

func (d Date) String() string {
	return d.ISO()
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// YearMonth returns the month the date falls in.
func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

// DaysInMonth returns the number of days of the date's month.
func (d Date) DaysInMonth() int {
	return NewDate(d.Year(), d.Month()+1, 0).Day()
}

// EndOfMonth returns the last day of the date's month.
func (d Date) EndOfMonth() Date {
	return NewDate(d.Year(), d.Month()+1, 0)
}

// StartOfWeek returns the Monday of the date's week.
func (d Date) StartOfWeek() Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero date", ErrInvalidDate)
	}
	return nil
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Contains reports whether d falls in the month.
func (ym YearMonth) Contains(d Date) bool {
	return d.Year() == ym.Year && d.Month() == ym.Month
}

// ParseYearMonth parses a YYYY-MM string.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// NormalizeCategory returns the case-insensitive lookup key of a category name.
func NormalizeCategory(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Matches reports whether the category carries the given name, ignoring case.
func (c Category) Matches(name string) bool {
	return NormalizeCategory(c.Name) == NormalizeCategory(name)
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.MonthlyBudget != nil && c.MonthlyBudget.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if len(e.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return e.Date.Validate()
}

// FindCategory returns the category whose name matches, ignoring case.
func FindCategory(cats []Category, name string) (Category, bool) {
	for _, c := range cats {
		if c.Matches(name) {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryNames maps category IDs to names.
func CategoryNames(cats []Category) map[string]string {
	out := make(map[string]string, len(cats))
	for _, c := range cats {
		out[c.ID] = c.Name
	}
	return out
}
