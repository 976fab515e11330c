package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ausgaben/internal/budget"
	"ausgaben/internal/core"
	"ausgaben/internal/quickentry"
	"ausgaben/internal/services"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
)

// Styles
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(ColorText)
	dimStyle    = lipgloss.NewStyle().Foreground(ColorTextDim)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorTextMuted)

	okStyle     = lipgloss.NewStyle().Foreground(ColorGreen)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorOrange)
	dangerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)

	// ErrorStyle prefixes fatal errors.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)
)

// StatusStyle picks the color of a budget classification.
func StatusStyle(c budget.Classification) lipgloss.Style {
	switch c {
	case budget.ClassOK:
		return okStyle
	case budget.ClassWarn:
		return warnStyle
	case budget.ClassDanger:
		return dangerStyle
	default:
		return mutedStyle
	}
}

// RenderStatus renders one projection as "label  [class] message".
func RenderStatus(label string, st budget.Status) string {
	tag := StatusStyle(st.Classification).Render(fmt.Sprintf("[%s]", st.Classification))
	return fmt.Sprintf("%s  %s %s", headerStyle.Render(fmt.Sprintf("%-10s", label)), tag, valueStyle.Render(st.Message))
}

// RenderReport renders the budget block shown after adds and by "budget".
func RenderReport(rep services.Report) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s · %s", rep.Category, rep.Month)))
	b.WriteString("\n")

	limit := "none"
	if rep.Budget != nil {
		limit = rep.Budget.String()
	}
	spent := rep.Spent.String()
	if rep.Overridden {
		spent += mutedStyle.Render(" (override)")
	}
	fmt.Fprintf(&b, "%s %s   %s %s\n",
		mutedStyle.Render("budget"), valueStyle.Render(limit),
		mutedStyle.Render("spent"), valueStyle.Render(spent))
	b.WriteString(RenderStatus("per day", rep.PerDay))
	b.WriteString("\n")
	b.WriteString(RenderStatus("today", rep.Allowance))
	b.WriteString("\n")
	return b.String()
}

// RenderPreview shows what a quick-entry line would be saved as.
func RenderPreview(res quickentry.Result) string {
	amount := mutedStyle.Render("no amount")
	if res.HasAmount {
		amount = valueStyle.Render(res.Amount.String())
	}
	category := mutedStyle.Render("-")
	if res.Category != "" {
		category = valueStyle.Render(res.Category)
	}
	return RenderTable(Table{
		Headers: []string{"Name", "Amount", "Date", "Category"},
		Rows:    [][]string{{res.Name, amount, res.Date.String(), category}},
	})
}

// RenderExpenses renders expenses with a total row.
func RenderExpenses(views []services.ExpenseView) string {
	if len(views) == 0 {
		return mutedStyle.Render("No expenses.") + "\n"
	}
	rows := make([][]string, 0, len(views)+2)
	var total core.Money
	for _, v := range views {
		rows = append(rows, []string{v.Date.String(), v.Name, v.Category, v.Amount.String(), shortID(v.ID)})
		total.Cents += v.Amount.Cents
	}
	rows = append(rows, []string{"---"}, []string{"Total", "", "", total.String(), ""})
	return RenderTable(Table{
		Headers: []string{"Date", "Name", "Category", "Amount", "ID"},
		Rows:    rows,
	})
}

// RenderCategories renders categories with their monthly budgets.
func RenderCategories(cats []core.Category) string {
	rows := make([][]string, len(cats))
	for i, c := range cats {
		limit := "-"
		if c.MonthlyBudget != nil {
			limit = c.MonthlyBudget.String()
		}
		rows[i] = []string{c.Name, limit}
	}
	return RenderTable(Table{Headers: []string{"Category", "Monthly budget"}, Rows: rows})
}

// shortID keeps the first block of a UUID; "delete" accepts unique prefixes.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Table represents a bordered text table for CLI output.
type Table struct {
	Headers []string
	Rows    [][]string
}

// RenderTable renders a bordered table. A row holding only "---" draws a
// separator.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = max(widths[i], lipgloss.Width(h))
	}
	for _, row := range t.Rows {
		if isSeparator(row) {
			continue
		}
		for i, cell := range row {
			if i < numCols {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var b strings.Builder
	rule := func(left, mid, right string) {
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right))
		b.WriteString("\n")
	}
	line := func(cells []string, style lipgloss.Style) {
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(style.Render(" " + pad(cell, widths[i]) + " "))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		line(t.Headers, headerStyle)
		rule("├", "┼", "┤")
	}
	for _, row := range t.Rows {
		if isSeparator(row) {
			rule("├", "┼", "┤")
			continue
		}
		line(row, valueStyle)
	}
	rule("╰", "┴", "╯")
	return b.String()
}

func isSeparator(row []string) bool {
	return len(row) == 1 && row[0] == "---"
}

// pad right-pads by display width, so umlauts and the euro sign line up.
func pad(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
