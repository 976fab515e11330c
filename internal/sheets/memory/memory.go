// Package memory is an in-process stand-in for the spreadsheet, used when
// no Google credentials are configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"ausgaben/internal/core"
	"ausgaben/internal/ports"
)

var _ ports.ExpenseExporter = (*Exporter)(nil)

// Row is one exported spreadsheet line.
type Row struct {
	Expense  core.Expense
	Category string
}

// Exporter keeps one row per expense ID, like the Sheets exporter does.
type Exporter struct {
	mu    sync.Mutex
	rows  []Row
	index map[string]int
}

func New() *Exporter {
	return &Exporter{index: make(map[string]int)}
}

// Export inserts or replaces the expense's row and returns a synthetic
// row reference.
func (x *Exporter) Export(_ context.Context, e core.Expense, categoryName string) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	row := Row{Expense: e, Category: categoryName}
	i, ok := x.index[e.ID]
	if ok {
		x.rows[i] = row
	} else {
		i = len(x.rows)
		x.index[e.ID] = i
		x.rows = append(x.rows, row)
	}
	return fmt.Sprintf("mem:%d", i+1), nil
}

// Rows returns a copy of the exported rows in insertion order.
func (x *Exporter) Rows() []Row {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]Row(nil), x.rows...)
}
