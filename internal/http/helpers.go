package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ausgaben/internal/budget"
	"ausgaben/internal/core"
	"ausgaben/internal/log"
	"ausgaben/internal/services"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks client errors that have no domain sentinel.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("empty request body")
		}
		return badRequest("invalid JSON: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNoAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrCategoryNotFound), errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrEmptyInput),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server-side failures and hides their details from clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// amountField accepts a JSON number or a string in user notation ("12,50").
type amountField struct {
	core.Money
}

func (a *amountField) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	m, err := core.ParseAmount(raw)
	if err != nil {
		return fmt.Errorf("amount %s: %w", raw, err)
	}
	a.Money = m
	return nil
}

type moneyDTO struct {
	Cents   int64  `json:"cents"`
	Amount  string `json:"amount"`
	Display string `json:"display"`
}

func newMoneyDTO(m core.Money) moneyDTO {
	return moneyDTO{Cents: m.Cents, Amount: m.Euros().StringFixed(2), Display: m.String()}
}

func optionalMoney(m *core.Money) *moneyDTO {
	if m == nil {
		return nil
	}
	dto := newMoneyDTO(*m)
	return &dto
}

type expenseDTO struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Amount   moneyDTO `json:"amount"`
	Date     string   `json:"date"`
	Category string   `json:"category,omitempty"`
	Note     string   `json:"note,omitempty"`
}

func newExpenseDTO(v services.ExpenseView) expenseDTO {
	return expenseDTO{
		ID:       v.ID,
		Name:     v.Name,
		Amount:   newMoneyDTO(v.Amount),
		Date:     v.Date.ISO(),
		Category: v.Category,
		Note:     v.Note,
	}
}

type previewDTO struct {
	Name      string    `json:"name"`
	Amount    *moneyDTO `json:"amount"`
	Date      string    `json:"date"`
	Category  string    `json:"category,omitempty"`
	HasAmount bool      `json:"has_amount"`
}

type categoryDTO struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	MonthlyBudget *moneyDTO `json:"monthly_budget"`
}

func newCategoryDTO(c core.Category) categoryDTO {
	return categoryDTO{ID: c.ID, Name: c.Name, MonthlyBudget: optionalMoney(c.MonthlyBudget)}
}

type reportDTO struct {
	Category   string        `json:"category"`
	Month      string        `json:"month"`
	Budget     *moneyDTO     `json:"budget"`
	Spent      moneyDTO      `json:"spent"`
	Overridden bool          `json:"overridden"`
	PerDay     budget.Status `json:"per_day"`
	Allowance  budget.Status `json:"allowance"`
}

func newReportDTO(rep services.Report) reportDTO {
	return reportDTO{
		Category:   rep.Category,
		Month:      rep.Month.String(),
		Budget:     optionalMoney(rep.Budget),
		Spent:      newMoneyDTO(rep.Spent),
		Overridden: rep.Overridden,
		PerDay:     rep.PerDay,
		Allowance:  rep.Allowance,
	}
}
