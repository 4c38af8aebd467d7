package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/thomaskoefod/ainews/internal/database"
)

var cacheOlderThan time.Duration

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached pages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := database.New(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		var cleared int64
		if cacheOlderThan > 0 {
			cleared, err = db.ClearCacheOlderThan(cmd.Context(), cacheOlderThan)
		} else {
			cleared, err = db.ClearCache(cmd.Context())
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cache entries\n", cleared)
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().DurationVar(&cacheOlderThan, "older-than", 0, "only remove entries older than this (e.g. 1h); 0 removes everything")
	cacheCmd.AddCommand(cacheClearCmd)
}
