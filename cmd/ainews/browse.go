package main

import (
	"github.com/spf13/cobra"
	"github.com/thomaskoefod/ainews/internal/logger"
	"github.com/thomaskoefod/ainews/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse stored articles in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		// Log lines on stderr would tear the alternate screen, so only log
		// when the output goes somewhere else.
		uiLog := log
		if len(cfg.Logging.OutputPaths) == 0 {
			uiLog = logger.NewNop()
		}

		a, err := newApp(cfg, uiLog)
		if err != nil {
			return err
		}
		defer a.Close()

		return tui.Run(tui.New(cfg.UI, a.db, a.scraper))
	},
}
