// Package budget computes spending-pace signals for a monthly category budget.
//
// Two projections are offered. RemainingPacePerDay spreads what is left of
// the budget over the remaining days of the month. ProjectedAllowanceToday
// compares spend against an even daily pace up to and including today.
// Both are pure functions of their input.
package budget

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ausgaben/internal/core"
)

type Classification string

const (
	ClassOK     Classification = "ok"
	ClassWarn   Classification = "warn"
	ClassDanger Classification = "danger"
	ClassMuted  Classification = "muted"
)

const (
	MsgNoBudget   = "no monthly budget set"
	MsgNoCategory = "no matching category found"
)

// Input carries the figures a projection needs. MonthToDateSpend is already
// the override value when one exists.
type Input struct {
	MonthlyBudget    *core.Money // nil means no budget set
	MonthToDateSpend core.Money
	Today            core.Date
}

// Status is the outcome of a projection. The numeric fields are filled only
// by the formula that produced them and are rounded to whole cents.
type Status struct {
	Message        string         `json:"message"`
	Classification Classification `json:"classification"`

	Left        int64 `json:"left_cents,omitempty"`
	PerDay      int64 `json:"per_day_cents,omitempty"`
	DaysLeft    int   `json:"days_left,omitempty"`
	TargetSoFar int64 `json:"target_so_far_cents,omitempty"`
	AllowToday  int64 `json:"allow_today_cents,omitempty"`
}

// NoCategory is the status reported when the budgeted category does not exist.
func NoCategory() Status {
	return Status{Message: MsgNoCategory, Classification: ClassMuted}
}

func noBudget() Status {
	return Status{Message: MsgNoBudget, Classification: ClassWarn}
}

// RemainingPacePerDay divides the unspent budget by the days left in the
// month, today included. The status is danger once nothing is left.
func RemainingPacePerDay(in Input) Status {
	mustHaveToday(in.Today)
	if in.MonthlyBudget == nil {
		return noBudget()
	}

	left := max(0, in.MonthlyBudget.Cents-in.MonthToDateSpend.Cents)
	daysLeft := in.Today.DaysInMonth() - in.Today.Day() + 1
	perDay := decimal.NewFromInt(left).Div(decimal.NewFromInt(int64(daysLeft))).Round(0).IntPart()

	class := ClassDanger
	if left > 0 {
		class = ClassOK
	}
	return Status{
		Message: fmt.Sprintf("%s left this month, avg %s per day (%d days left)",
			core.FormatEuro(left), core.FormatEuro(perDay), daysLeft),
		Classification: class,
		Left:           left,
		PerDay:         perDay,
		DaysLeft:       daysLeft,
	}
}

// ProjectedAllowanceToday compares spend with the share of the budget an
// even pace would have used by the end of today:
//
//	targetSoFar = budget / daysInMonth * dayOfMonth
//	allowToday  = targetSoFar - spent
//
// The status is danger when allowToday is negative.
func ProjectedAllowanceToday(in Input) Status {
	mustHaveToday(in.Today)
	if in.MonthlyBudget == nil {
		return noBudget()
	}

	dim := int64(in.Today.DaysInMonth())
	day := int64(in.Today.Day())
	budgetSoFar := in.MonthlyBudget.Cents * day
	// allowToday * dim, exact
	scaledAllow := budgetSoFar - in.MonthToDateSpend.Cents*dim

	divisor := decimal.NewFromInt(dim)
	target := decimal.NewFromInt(budgetSoFar).Div(divisor).Round(0).IntPart()
	allow := decimal.NewFromInt(scaledAllow).Div(divisor).Round(0).IntPart()

	class := ClassDanger
	if scaledAllow >= 0 {
		class = ClassOK
	}
	return Status{
		Message:        fmt.Sprintf("%s available today by plan", core.FormatEuro(allow)),
		Classification: class,
		TargetSoFar:    target,
		AllowToday:     allow,
	}
}

func mustHaveToday(d core.Date) {
	if d.IsZero() {
		panic("budget: projection called with zero date")
	}
}
