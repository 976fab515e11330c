package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ausgaben/internal/cli"
	"ausgaben/internal/core"
)

var flagClear bool

var categoriesCmd = &cobra.Command{
	Use:     "categories",
	Aliases: []string{"cat"},
	Short:   "Manage categories and their monthly budgets",
	Args:    cobra.NoArgs,
	RunE:    runCategoriesList,
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories",
	Args:  cobra.NoArgs,
	RunE:  runCategoriesList,
}

var categoriesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a category",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategoriesAdd,
}

var categoriesBudgetCmd = &cobra.Command{
	Use:   "budget <name> [amount]",
	Short: "Set the monthly budget of a category, or clear it with --clear",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCategoriesBudget,
}

var categoriesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a category; its expenses keep their reference",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategoriesDelete,
}

func init() {
	categoriesBudgetCmd.Flags().BoolVar(&flagClear, "clear", false, "Remove the monthly budget")
	categoriesCmd.AddCommand(categoriesListCmd, categoriesAddCmd, categoriesBudgetCmd, categoriesDeleteCmd)

	rootCmd.AddCommand(categoriesCmd)
}

func runCategoriesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	cats, err := s.backend.Categories.List(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), cli.RenderCategories(cats))
	return nil
}

func runCategoriesAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	c, err := s.backend.Categories.Ensure(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Category %s ready\n", c.Name)
	return nil
}

func runCategoriesBudget(cmd *cobra.Command, args []string) error {
	var amount *core.Money
	switch {
	case flagClear && len(args) == 2:
		return fmt.Errorf("--clear takes no amount")
	case !flagClear && len(args) == 1:
		return fmt.Errorf("missing amount (or pass --clear)")
	case len(args) == 2:
		m, err := core.ParseAmount(args[1])
		if err != nil {
			return err
		}
		amount = &m
	}

	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := knownCategory(ctx, s, args[0]); err != nil {
		return err
	}
	c, err := s.backend.Categories.SetBudget(ctx, args[0], amount)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), cli.RenderCategories([]core.Category{c}))
	return nil
}

func runCategoriesDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	c, err := knownCategory(ctx, s, args[0])
	if err != nil {
		return err
	}
	if err := s.backend.Categories.Delete(ctx, c.Name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %s\n", c.Name)
	return nil
}
