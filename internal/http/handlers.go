package http

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"ausgaben/internal/core"
	"ausgaben/internal/log"
	"ausgaben/internal/services"
)

type quickRequest struct {
	Line string `json:"line"`
}

type quickAddResponse struct {
	Expense expenseDTO `json:"expense"`
	Budget  *reportDTO `json:"budget,omitempty"`
}

func (s *Server) handleQuickAdd(w http.ResponseWriter, r *http.Request) {
	var req quickRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := s.expenses.QuickAdd(r.Context(), sanitizeInput(req.Line), s.now().In(s.loc))
	if err != nil {
		s.metrics.quickEntries.WithLabelValues(quickResult(err)).Inc()
		writeError(w, r, err)
		return
	}
	s.metrics.quickEntries.WithLabelValues("created").Inc()
	s.reports.Purge()

	resp := quickAddResponse{Expense: newExpenseDTO(view)}
	if view.Category != "" {
		if rep, err := s.report(r, view.Category); err == nil {
			dto := newReportDTO(rep)
			resp.Budget = &dto
		} else {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Budget report after quick add failed",
				log.FieldCategory, view.Category, log.FieldError, err)
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func quickResult(err error) string {
	switch {
	case errors.Is(err, services.ErrEmptyInput):
		return "empty"
	case errors.Is(err, services.ErrNoAmount):
		return "no_amount"
	default:
		return "error"
	}
}

func (s *Server) handleQuickPreview(w http.ResponseWriter, r *http.Request) {
	var req quickRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.expenses.Preview(r.Context(), sanitizeInput(req.Line), s.now().In(s.loc))
	if err != nil {
		writeError(w, r, err)
		return
	}
	dto := previewDTO{
		Name:      res.Name,
		Date:      res.Date.ISO(),
		Category:  res.Category,
		HasAmount: res.HasAmount,
	}
	if res.HasAmount {
		dto.Amount = optionalMoney(&res.Amount)
	}
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	rng, err := services.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, r, badRequest("%v", err))
		return
	}
	views, err := s.expenses.List(r.Context(), services.Filter{
		Range: rng,
		Query: sanitizeInput(r.URL.Query().Get("q")),
	}, s.now().In(s.loc))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]expenseDTO, len(views))
	var total core.Money
	for i, v := range views {
		out[i] = newExpenseDTO(v)
		total.Cents += v.Amount.Cents
	}
	writeJSON(w, http.StatusOK, struct {
		Expenses []expenseDTO `json:"expenses"`
		Total    moneyDTO     `json:"total"`
	}{out, newMoneyDTO(total)})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.reports.Purge()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.categories.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryDTO, len(cats))
	for i, c := range cats {
		out[i] = newCategoryDTO(c)
	}
	writeJSON(w, http.StatusOK, out)
}

type budgetRequest struct {
	// Amount nil clears the budget.
	Amount *amountField `json:"amount"`
}

func (s *Server) handleSetCategoryBudget(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, badRequest("category name: %v", err))
		return
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var amount *core.Money
	if req.Amount != nil {
		amount = &req.Amount.Money
	}
	cat, err := s.categories.SetBudget(r.Context(), name, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.reports.Purge()
	writeJSON(w, http.StatusOK, newCategoryDTO(cat))
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	name := sanitizeInput(r.URL.Query().Get("category"))
	if name == "" {
		name = core.FoodCategory
	}
	rep, err := s.report(r, name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.metrics.budgetReports.WithLabelValues(string(rep.PerDay.Classification)).Inc()
	writeJSON(w, http.StatusOK, newReportDTO(rep))
}

// report serves budget reports from the cache until the next write.
func (s *Server) report(r *http.Request, category string) (services.Report, error) {
	today := s.today()
	key := core.NormalizeCategory(category) + "|" + today.ISO()
	if rep, ok := s.reports.Get(key); ok {
		return rep, nil
	}
	rep, err := s.budgets.Report(r.Context(), category, today)
	if err != nil {
		return services.Report{}, err
	}
	s.reports.Set(key, rep)
	return rep, nil
}

type overrideRequest struct {
	Category string       `json:"category"`
	Month    string       `json:"month"`
	Amount   *amountField `json:"amount"`
}

func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Amount == nil {
		writeError(w, r, badRequest("amount is required"))
		return
	}
	category, ym, err := s.overrideTarget(req.Category, req.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.budgets.SetOverride(r.Context(), category, ym, req.Amount.Money); err != nil {
		writeError(w, r, err)
		return
	}
	s.reports.Purge()
	writeJSON(w, http.StatusOK, struct {
		Category string   `json:"category"`
		Month    string   `json:"month"`
		Amount   moneyDTO `json:"amount"`
	}{category, ym.String(), newMoneyDTO(req.Amount.Money)})
}

func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	category, ym, err := s.overrideTarget(r.URL.Query().Get("category"), r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.budgets.ClearOverride(r.Context(), category, ym); err != nil {
		writeError(w, r, err)
		return
	}
	s.reports.Purge()
	w.WriteHeader(http.StatusNoContent)
}

// overrideTarget validates the category and month of an override request.
// The month defaults to the current one.
func (s *Server) overrideTarget(category, month string) (string, core.YearMonth, error) {
	category = sanitizeInput(category)
	if category == "" {
		return "", core.YearMonth{}, badRequest("category is required")
	}
	if strings.TrimSpace(month) == "" {
		return category, s.today().YearMonth(), nil
	}
	ym, err := core.ParseYearMonth(strings.TrimSpace(month))
	if err != nil {
		return "", core.YearMonth{}, badRequest("month %q: want YYYY-MM", month)
	}
	return category, ym, nil
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.expenses.Export(r.Context(), &buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="ausgaben.csv"`)
	_, _ = w.Write(buf.Bytes())
}
