package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ausgaben/internal/services"
	"ausgaben/internal/storage/memory"
)

// friday is 2024-03-15, a Friday.
var friday = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, mutate func(*Deps)) *Server {
	t.Helper()
	store := memory.New()
	cats := services.NewCategoryService(store)
	if err := cats.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("EnsureDefaults() error = %v", err)
	}
	deps := Deps{
		Expenses:   services.NewExpenseService(store, cats, services.WithDynamicTags(true)),
		Categories: cats,
		Budgets:    services.NewBudgetService(store),
		Location:   time.UTC,
		Now:        func() time.Time { return friday },
	}
	if mutate != nil {
		mutate(&deps)
	}
	srv := NewServer(":0", deps)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthReadyAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `ausgaben_http_requests_total{code="200",method="GET",route="/healthz"} 1`) {
		t.Fatalf("metrics missing request counter:\n%s", rr.Body.String())
	}

	notReady := newTestServer(t, func(d *Deps) {
		d.Ready = func(context.Context) error { return errors.New("db down") }
	})
	if rr := do(t, notReady, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d, want 503", rr.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, nil)
	rr := do(t, srv, http.MethodGet, "/api/categories", "")
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("security headers missing: %v", rr.Header())
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("API responses must not be cached")
	}
}

func TestQuickAdd(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty line", `{"line":"   "}`, http.StatusBadRequest},
		{"no amount", `{"line":"Brot gestern"}`, http.StatusUnprocessableEntity},
		{"invalid json", `{"line":`, http.StatusBadRequest},
		{"unknown field", `{"line":"5 Brot","extra":1}`, http.StatusBadRequest},
		{"no body", ``, http.StatusBadRequest},
		{"created", `{"line":"12,50 Lebensmittel Brot gestern"}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/quick", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d body=%s, want %d", rr.Code, rr.Body.String(), tt.want)
			}
		})
	}

	rr := do(t, srv, http.MethodPost, "/api/quick", `{"line":"3,20 Kaffee"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decode[quickAddResponse](t, rr)
	if got.Expense.Name != "Kaffee" || got.Expense.Amount.Cents != 320 || got.Expense.Amount.Amount != "3.20" {
		t.Fatalf("expense = %+v", got.Expense)
	}
	if got.Expense.Date != "2024-03-15" || got.Expense.Category != "Lebensmittel" {
		t.Fatalf("untagged entries go to the default category on today: %+v", got.Expense)
	}
	if got.Budget == nil || got.Budget.PerDay.Classification != "warn" {
		t.Fatalf("budget without a limit should warn: %+v", got.Budget)
	}

	metrics := do(t, srv, http.MethodGet, "/metrics", "").Body.String()
	for _, want := range []string{
		`ausgaben_quick_entries_total{result="created"} 2`,
		`ausgaben_quick_entries_total{result="no_amount"} 1`,
		`ausgaben_quick_entries_total{result="empty"} 1`,
	} {
		if !strings.Contains(metrics, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestQuickPreviewDoesNotSave(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodPost, "/api/quick/preview", `{"line":"Kino 9 mo"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decode[previewDTO](t, rr)
	if !got.HasAmount || got.Amount == nil || got.Amount.Cents != 900 || got.Date != "2024-03-11" || got.Name != "Kino" {
		t.Fatalf("preview = %+v", got)
	}

	rr = do(t, srv, http.MethodPost, "/api/quick/preview", `{"line":"Kino"}`)
	if got := decode[previewDTO](t, rr); got.HasAmount || got.Amount != nil {
		t.Fatalf("preview without amount = %+v", got)
	}

	list := decode[struct {
		Expenses []expenseDTO `json:"expenses"`
	}](t, do(t, srv, http.MethodGet, "/api/expenses?range=all", ""))
	if len(list.Expenses) != 0 {
		t.Fatalf("preview must not save, got %+v", list.Expenses)
	}
}

func TestListAndDeleteExpenses(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, line := range []string{"2,50 Brot heute", "4 Bus 1.2.2024", "7 Kino gestern"} {
		if rr := do(t, srv, http.MethodPost, "/api/quick", `{"line":"`+line+`"}`); rr.Code != http.StatusCreated {
			t.Fatalf("add %q: %d %s", line, rr.Code, rr.Body.String())
		}
	}

	type listResponse struct {
		Expenses []expenseDTO `json:"expenses"`
		Total    moneyDTO     `json:"total"`
	}
	tests := []struct {
		query     string
		wantNames []string
		wantTotal int64
	}{
		{"", []string{"Brot", "Kino"}, 950},
		{"?range=today", []string{"Brot"}, 250},
		{"?range=all", []string{"Brot", "Kino", "Bus"}, 1350},
		{"?range=all&q=BUS", []string{"Bus"}, 400},
		{"?range=all&q=lebensmittel", []string{"Brot", "Kino", "Bus"}, 1350},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, "/api/expenses"+tt.query, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d", rr.Code)
			}
			got := decode[listResponse](t, rr)
			var names []string
			for _, e := range got.Expenses {
				names = append(names, e.Name)
			}
			if strings.Join(names, ",") != strings.Join(tt.wantNames, ",") || got.Total.Cents != tt.wantTotal {
				t.Fatalf("names=%v total=%d, want %v %d", names, got.Total.Cents, tt.wantNames, tt.wantTotal)
			}
		})
	}

	if rr := do(t, srv, http.MethodGet, "/api/expenses?range=year", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown range status=%d", rr.Code)
	}

	all := decode[listResponse](t, do(t, srv, http.MethodGet, "/api/expenses?range=all", ""))
	id := all.Expenses[0].ID
	if rr := do(t, srv, http.MethodDelete, "/api/expenses/"+id, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/expenses/"+id, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d, want 404", rr.Code)
	}
}

func TestCategoryBudgetAndOverrides(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodPut, "/api/categories/Lebensmittel/budget", `{"amount":"310"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("set budget status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[categoryDTO](t, rr); got.MonthlyBudget == nil || got.MonthlyBudget.Cents != 31000 {
		t.Fatalf("category = %+v", got)
	}
	if rr := do(t, srv, http.MethodPut, "/api/categories/Theater/budget", `{"amount":5}`); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown category status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPut, "/api/categories/Lebensmittel/budget", `{"amount":"abc"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad amount status=%d", rr.Code)
	}

	do(t, srv, http.MethodPost, "/api/quick", `{"line":"50 Lebensmittel Wocheneinkauf 1.3.2024"}`)

	rep := decode[reportDTO](t, do(t, srv, http.MethodGet, "/api/budget", ""))
	if rep.Category != "Lebensmittel" || rep.Month != "2024-03" || rep.Spent.Cents != 5000 || rep.Overridden {
		t.Fatalf("report = %+v", rep)
	}
	if rep.PerDay.Classification != "ok" || rep.Allowance.Classification != "ok" {
		t.Fatalf("report statuses = %+v / %+v", rep.PerDay, rep.Allowance)
	}

	rr = do(t, srv, http.MethodPut, "/api/budget/override", `{"category":"lebensmittel","amount":"305"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("override status=%d body=%s", rr.Code, rr.Body.String())
	}
	rep = decode[reportDTO](t, do(t, srv, http.MethodGet, "/api/budget?category=Lebensmittel", ""))
	if !rep.Overridden || rep.Spent.Cents != 30500 || rep.Allowance.Classification != "danger" {
		t.Fatalf("overridden report = %+v", rep)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/budget/override?category=lebensmittel&month=2024-03", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("clear override status=%d", rr.Code)
	}
	rep = decode[reportDTO](t, do(t, srv, http.MethodGet, "/api/budget", ""))
	if rep.Overridden || rep.Spent.Cents != 5000 {
		t.Fatalf("report after clear = %+v", rep)
	}

	for _, body := range []string{
		`{"amount":"5"}`,
		`{"category":"lebensmittel"}`,
		`{"category":"lebensmittel","month":"März","amount":"5"}`,
		`{"category":"lebensmittel","amount":"-5"}`,
	} {
		if rr := do(t, srv, http.MethodPut, "/api/budget/override", body); rr.Code != http.StatusBadRequest {
			t.Errorf("override %s status=%d, want 400", body, rr.Code)
		}
	}

	rep = decode[reportDTO](t, do(t, srv, http.MethodGet, "/api/budget?category=Urlaub", ""))
	if rep.PerDay.Classification != "muted" || rep.Budget != nil {
		t.Fatalf("unknown category report = %+v", rep)
	}

	cats := decode[[]categoryDTO](t, do(t, srv, http.MethodGet, "/api/categories", ""))
	if len(cats) != 1 || cats[0].Name != "Lebensmittel" {
		t.Fatalf("categories = %+v", cats)
	}
}

func TestRateLimitOnlyAppliesToPost(t *testing.T) {
	srv := newTestServer(t, func(d *Deps) { d.RequestsPerMinute = 2 })

	for i, want := range []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests} {
		rr := do(t, srv, http.MethodPost, "/api/quick", `{"line":"1 Brot"}`)
		if rr.Code != want {
			t.Fatalf("request %d status=%d, want %d", i+1, rr.Code, want)
		}
	}
	if rr := do(t, srv, http.MethodGet, "/api/expenses", ""); rr.Code != http.StatusOK {
		t.Fatalf("GET should not be limited, status=%d", rr.Code)
	}
	if !strings.Contains(do(t, srv, http.MethodGet, "/metrics", "").Body.String(), "ausgaben_rate_limited_requests_total 1") {
		t.Fatalf("rate limit hit not counted")
	}
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t, nil)
	do(t, srv, http.MethodPost, "/api/quick", `{"line":"2,50 Brot"}`)

	rr := do(t, srv, http.MethodGet, "/api/export.csv", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("Content-Type = %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], `"Brot","2,5","2024-03-15","Lebensmittel"`) {
		t.Fatalf("export = %q", rr.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, nil)
	if rr := do(t, srv, http.MethodGet, "/.env", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := srv.detector.GetMetrics().SuspiciousRequests; got != 1 {
		t.Fatalf("SuspiciousRequests = %d", got)
	}
}
