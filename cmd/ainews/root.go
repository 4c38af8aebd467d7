package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thomaskoefod/ainews/internal/config"
	"github.com/thomaskoefod/ainews/internal/logger"
)

var (
	cfgFile string
	debug   bool
	cfg     *config.Config
	log     logger.Logger = logger.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "ainews",
	Short: "Scrape, store and serve AI news articles",
	Long: `ainews collects AI-related news articles from a news site's search
listings (and optional RSS/Atom feeds), stores them in a local SQLite
database, and serves them through a small JSON API.

Example usage:
  ainews scrape                 # Run one scrape
  ainews serve                  # Start the HTTP API on :8000
  ainews browse                 # Browse stored articles in the terminal
  ainews cache clear            # Drop cached listing and article pages`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = log.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $CONFIG_PATH, ./config.yaml or "+config.DefaultConfigPath()+")")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging with the console encoder")

	rootCmd.AddCommand(serveCmd, scrapeCmd, resetCmd, cacheCmd, browseCmd, configCmd, versionCmd)
}

func initConfig(*cobra.Command, []string) error {
	var err error

	path := config.ResolvePath(cfgFile)
	cfg, err = config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Development = true
	}

	log, err = logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	log.Debug("Configuration loaded",
		logger.String("config_path", path),
		logger.String("database", cfg.Database.Path),
		logger.String("base_url", cfg.Scraper.BaseURL),
	)
	return nil
}
