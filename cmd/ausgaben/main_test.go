package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"ausgaben/internal/core"
	"ausgaben/internal/services"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandsAgainstSQLite(t *testing.T) {
	t.Setenv("AUSGABEN_CONFIG", "")
	t.Setenv("AMQP_URL", "")
	db := filepath.Join(t.TempDir(), "ausgaben.db")
	base := []string{"--backend", "sqlite", "--db", db}

	out, err := execute(t, append(base, "add", "12,50", "Brot")...)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	for _, want := range []string{"Brot", "12,50 €", "Lebensmittel", "no monthly budget set"} {
		if !strings.Contains(out, want) {
			t.Errorf("add output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, append(base, "categories", "budget", "lebensmittel", "300")...); err != nil {
		t.Fatalf("categories budget: %v", err)
	}
	out, err = execute(t, append(base, "budget")...)
	if err != nil {
		t.Fatalf("budget: %v", err)
	}
	if !strings.Contains(out, "300,00 €") || !strings.Contains(out, "12,50 €") {
		t.Errorf("budget output:\n%s", out)
	}

	out, err = execute(t, append(base, "list", "--range", "all", "--query", "brot")...)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Brot") || !strings.Contains(out, "Total") {
		t.Errorf("list output:\n%s", out)
	}

	out, err = execute(t, append(base, "parse", "7", "Kino", "gestern")...)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.Contains(out, "Kino") || !strings.Contains(out, "7,00 €") {
		t.Errorf("parse output:\n%s", out)
	}

	_, err = execute(t, append(base, "categories", "budget", "lebensmitel", "300")...)
	if !errors.Is(err, services.ErrCategoryNotFound) || !strings.Contains(err.Error(), `"Lebensmittel"`) {
		t.Errorf("expected a suggestion, got %v", err)
	}
}

func TestMatchExpense(t *testing.T) {
	views := []services.ExpenseView{
		{Expense: core.Expense{ID: "abc123", Name: "Brot"}},
		{Expense: core.Expense{ID: "abd456", Name: "Bus"}},
	}

	tests := []struct {
		name    string
		prefix  string
		want    string
		wantErr bool
	}{
		{"full id", "abd456", "Bus", false},
		{"unique prefix", "abc", "Brot", false},
		{"upper case", "ABD", "Bus", false},
		{"ambiguous", "ab", "", true},
		{"unknown", "ff", "", true},
		{"empty", " ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := matchExpense(views, tt.prefix)
			if (err != nil) != tt.wantErr {
				t.Fatalf("matchExpense(%q) error = %v, wantErr %v", tt.prefix, err, tt.wantErr)
			}
			if got.Name != tt.want {
				t.Errorf("matchExpense(%q) = %q, want %q", tt.prefix, got.Name, tt.want)
			}
		})
	}
}
