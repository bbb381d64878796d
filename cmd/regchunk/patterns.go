package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/coolbeans/regchunk/pkg/pattern"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect and validate pattern tables",
		Long: `Pattern tables define how lines are classified into structural
elements. The built-in table is brazilian-norms; more tables are loaded
from patterns.dir.

Examples:
  regchunk patterns list
  regchunk patterns show brazilian-norms
  regchunk patterns validate my-table.yaml`,
	}

	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsShowCmd())
	cmd.AddCommand(patternsValidateCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded pattern tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			reg, err := a.registry()
			if err != nil {
				return err
			}

			fmt.Printf("%-20s %-36s %-10s %-14s %6s\n", "ID", "NAME", "VERSION", "JURISDICTION", "LEVELS")
			fmt.Println(strings.Repeat("-", 90))
			for _, t := range reg.List() {
				marker := ""
				if t.ID == a.cfg.Patterns.Table {
					marker = " *"
				}
				fmt.Printf("%-20s %-36s %-10s %-14s %6d%s\n",
					t.ID, truncateString(t.Name, 36), t.Version, t.Jurisdiction, len(t.Levels), marker)
			}
			return nil
		},
	}
}

func patternsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print a pattern table as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			reg, err := a.registry()
			if err != nil {
				return err
			}

			table, err := reg.Table(args[0])
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(table)
			if err != nil {
				return fmt.Errorf("failed to marshal table: %w", err)
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}

func patternsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate pattern table files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				if err := validateTableFile(path); err != nil {
					fmt.Printf("  [FAIL] %s\n", path)
					for _, line := range strings.Split(err.Error(), "\n") {
						fmt.Printf("         %s\n", line)
					}
					failed++
					continue
				}
				fmt.Printf("  [OK]   %s\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d table(s) invalid", failed, len(args))
			}
			return nil
		},
	}
}

// validateTableFile checks a table file against the schema, then checks
// its structure and compiles its expressions.
func validateTableFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	table, err := pattern.ParseTable(data)
	if err != nil {
		return err
	}
	if err := table.Validate(); err != nil {
		return err
	}
	if errs := pattern.ValidateTable(table); len(errs) > 0 {
		return errs
	}
	return table.Compile()
}
