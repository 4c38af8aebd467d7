package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thomaskoefod/ainews/internal/database"
)

const (
	resetModeClear  = "clear"
	resetModeDelete = "delete"
)

var resetMode string

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear or delete the database",
	Long: `Reset removes every stored article and cached page.

  --mode clear    empty every table but keep the file (default)
  --mode delete   delete the database file; it is recreated on next use`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().StringVar(&resetMode, "mode", resetModeClear, "reset mode: clear or delete")
}

func runReset(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	switch resetMode {
	case resetModeClear:
		db, err := database.New(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(out, "Cleared all tables in %s\n", cfg.Database.Path)

	case resetModeDelete:
		if err := database.Remove(cfg.Database.Path); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %s\n", cfg.Database.Path)

	default:
		return fmt.Errorf("unknown reset mode %q (want %s or %s)", resetMode, resetModeClear, resetModeDelete)
	}
	return nil
}
