package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ausgaben/internal/cli"
	"ausgaben/internal/core"
	"ausgaben/internal/services"
)

var (
	flagRange string
	flagQuery string
)

var addCmd = &cobra.Command{
	Use:   "add <quick entry>",
	Short: "Record an expense from a quick-entry line",
	Example: `  ausgaben add 12,50 Brot gestern
  ausgaben add "Kino 9€ #freizeit"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var parseCmd = &cobra.Command{
	Use:   "parse <quick entry>",
	Short: "Show how a quick-entry line would be recorded, without saving it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List expenses",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an expense by ID or unique ID prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	listCmd.Flags().StringVarP(&flagRange, "range", "r", "month", "today, week, month or all")
	listCmd.Flags().StringVarP(&flagQuery, "query", "q", "", "Filter by name, note or category")

	rootCmd.AddCommand(addCmd, parseCmd, listCmd, deleteCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	view, err := s.backend.Expenses.QuickAdd(ctx, strings.Join(args, " "), s.now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, cli.RenderExpenses([]services.ExpenseView{view}))
	if view.Category == "" {
		return nil
	}
	rep, err := s.backend.Budgets.Report(ctx, view.Category, core.DateOf(s.now()))
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, cli.RenderReport(rep))
	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.backend.Expenses.Preview(ctx, strings.Join(args, " "), s.now())
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), cli.RenderPreview(res))
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	rng, err := services.ParseRange(flagRange)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	views, err := s.backend.Expenses.List(ctx, services.Filter{Range: rng, Query: flagQuery}, s.now())
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), cli.RenderExpenses(views))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	views, err := s.backend.Expenses.List(ctx, services.Filter{Range: services.RangeAll}, s.now())
	if err != nil {
		return err
	}
	view, err := matchExpense(views, args[0])
	if err != nil {
		return err
	}
	if err := s.backend.Expenses.Delete(ctx, view.ID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s, %s)\n", view.Name, view.Amount, view.Date)
	return nil
}

// matchExpense resolves an ID or an unambiguous ID prefix.
func matchExpense(views []services.ExpenseView, prefix string) (services.ExpenseView, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return services.ExpenseView{}, core.ErrEmptyID
	}
	var found []services.ExpenseView
	for _, v := range views {
		if v.ID == prefix {
			return v, nil
		}
		if strings.HasPrefix(strings.ToLower(v.ID), prefix) {
			found = append(found, v)
		}
	}
	switch len(found) {
	case 0:
		return services.ExpenseView{}, fmt.Errorf("expense %q: %w", prefix, core.ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return services.ExpenseView{}, fmt.Errorf("expense prefix %q matches %d expenses", prefix, len(found))
	}
}
