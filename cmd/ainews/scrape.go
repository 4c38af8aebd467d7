package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/thomaskoefod/ainews/internal/logger"
)

var resetCache bool

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one scrape and store new articles",
	Long: `Fetch the configured search listings page by page, store every article
not seen before, then ingest the configured feeds. Cached pages older than
scraper.cache_ttl are pruned first.`,
	RunE: runScrape,
}

func init() {
	scrapeCmd.Flags().BoolVar(&resetCache, "reset-cache", false, "drop the whole response cache before scraping")
}

func runScrape(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if resetCache {
		cleared, err := a.db.ClearCache(ctx)
		if err != nil {
			return err
		}
		log.Info("Reset response cache", logger.Int64("entries", cleared))
	} else if pruned, err := a.db.ClearCacheOlderThan(ctx, cfg.Scraper.CacheTTL); err != nil {
		log.Warn("Failed to prune response cache", logger.Error(err))
	} else if pruned > 0 {
		log.Info("Pruned stale cache entries", logger.Int64("entries", pruned))
	}

	inserted, err := a.scraper.Scrape(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Scraped %d new articles\n", inserted)
	return nil
}
