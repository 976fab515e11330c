package budget

import (
	"strings"

	"ausgaben/internal/core"
)

const foodScope = "food_spent_override"

// OverrideScope returns the override scope for a category. The food
// category keeps the historic "food_spent_override" scope.
func OverrideScope(categoryName string) string {
	n := core.NormalizeCategory(categoryName)
	if n == core.FoodCategory {
		return foodScope
	}
	return "spent_override_" + strings.Join(strings.Fields(n), "_")
}

// OverrideKey builds the override store key "<scope>_<YYYY-MM>".
func OverrideKey(categoryName string, ym core.YearMonth) string {
	return OverrideScope(categoryName) + "_" + ym.String()
}

// MonthToDate returns the spend to project with: the override when present,
// otherwise the sum of the given expenses.
func MonthToDate(expenses []core.Expense, override core.Money, hasOverride bool) core.Money {
	if hasOverride {
		return override
	}
	var sum int64
	for _, e := range expenses {
		sum += e.Amount.Cents
	}
	return core.Money{Cents: sum}
}
