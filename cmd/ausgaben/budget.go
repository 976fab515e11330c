package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ausgaben/internal/budget"
	"ausgaben/internal/cli"
	"ausgaben/internal/core"
	"ausgaben/internal/services"
)

var flagMonth string

var budgetCmd = &cobra.Command{
	Use:   "budget [category]",
	Short: "Show the month's budget projection for a category",
	Long:  "Show month-to-date spend, the remaining pace per day and today's allowance by plan. The category defaults to lebensmittel.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBudget,
}

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Manage manual month-to-date spend overrides",
}

var overrideSetCmd = &cobra.Command{
	Use:   "set <category> <amount>",
	Short: "Replace a month's computed spend with a fixed amount",
	Args:  cobra.ExactArgs(2),
	RunE:  runOverrideSet,
}

var overrideClearCmd = &cobra.Command{
	Use:   "clear <category>",
	Short: "Go back to the computed spend",
	Args:  cobra.ExactArgs(1),
	RunE:  runOverrideClear,
}

var overrideShowCmd = &cobra.Command{
	Use:   "show <category>",
	Short: "Print the override for a month, if any",
	Args:  cobra.ExactArgs(1),
	RunE:  runOverrideShow,
}

func init() {
	overrideCmd.PersistentFlags().StringVarP(&flagMonth, "month", "m", "", "Month as YYYY-MM (default current month)")
	overrideCmd.AddCommand(overrideSetCmd, overrideClearCmd, overrideShowCmd)

	rootCmd.AddCommand(budgetCmd, overrideCmd)
}

func runBudget(cmd *cobra.Command, args []string) error {
	category := core.FoodCategory
	if len(args) == 1 {
		category = args[0]
	}

	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	rep, err := s.backend.Budgets.Report(ctx, category, core.DateOf(s.now()))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), cli.RenderReport(rep))
	if rep.PerDay.Message == budget.MsgNoCategory {
		if hint, ok := s.backend.Categories.Suggest(ctx, category); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "Did you mean %q?\n", hint)
		}
	}
	return nil
}

func runOverrideSet(cmd *cobra.Command, args []string) error {
	amount, err := core.ParseAmount(args[1])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	ym, err := overrideMonth(s)
	if err != nil {
		return err
	}
	if _, err := knownCategory(ctx, s, args[0]); err != nil {
		return err
	}
	if err := s.backend.Budgets.SetOverride(ctx, args[0], ym, amount); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Spend for %s in %s set to %s\n", args[0], ym, amount)
	return nil
}

func runOverrideClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	ym, err := overrideMonth(s)
	if err != nil {
		return err
	}
	if err := s.backend.Budgets.ClearOverride(ctx, args[0], ym); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Override for %s in %s cleared\n", args[0], ym)
	return nil
}

func runOverrideShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	ym, err := overrideMonth(s)
	if err != nil {
		return err
	}
	v, ok, err := s.backend.Budgets.GetOverride(ctx, args[0], ym)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "No override for %s in %s\n", args[0], ym)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s in %s: %s\n", args[0], ym, v)
	return nil
}

func overrideMonth(s *session) (core.YearMonth, error) {
	if strings.TrimSpace(flagMonth) == "" {
		return core.DateOf(s.now()).YearMonth(), nil
	}
	ym, err := core.ParseYearMonth(strings.TrimSpace(flagMonth))
	if err != nil {
		return core.YearMonth{}, fmt.Errorf("month %q: want YYYY-MM", flagMonth)
	}
	return ym, nil
}

// knownCategory finds a category and suggests a near match when it is missing.
func knownCategory(ctx context.Context, s *session, name string) (core.Category, error) {
	c, err := s.backend.Categories.Find(ctx, name)
	if errors.Is(err, services.ErrCategoryNotFound) {
		if hint, ok := s.backend.Categories.Suggest(ctx, name); ok {
			return core.Category{}, fmt.Errorf("%w (did you mean %q?)", err, hint)
		}
	}
	return c, err
}
