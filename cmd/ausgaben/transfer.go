package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write all expenses as CSV to a file or stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import expenses from a CSV or TSV file",
	Long:  "Import expenses from a CSV or TSV file with name, amount, date, category and note columns. Rows with an unreadable amount or date are skipped.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if len(args) == 0 || args[0] == "-" {
		return s.backend.Expenses.Export(ctx, cmd.OutOrStdout())
	}

	path := args[0]
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ausgaben-export-*")
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.backend.Expenses.Export(ctx, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", path)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.backend.Expenses.Import(ctx, f, filepath.Base(args[0]))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d expenses, skipped %d rows\n", res.Imported, res.Skipped)
	return nil
}
