package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/lead-scraper/internal/config"
	"github.com/jonathan/lead-scraper/internal/crawler"
	"github.com/jonathan/lead-scraper/internal/events"
	"github.com/jonathan/lead-scraper/internal/observability"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl a LinkedIn search listing and store one row per current role",
	Long: `Opens the search listing in Chrome, enriches every lead page by page and appends the rows
to the configured store. The crawl ends when there is no next page, when --max-pages is reached,
or on Ctrl-C, which stops after the current lead.`,
	RunE: runCrawl,
}

var (
	crawlBrowser browserFlags
	crawlStore   storeFlags
)

func init() {
	crawlBrowser.register(crawlCmd)
	crawlStore.register(crawlCmd)
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(func(cfg *config.Config) {
		crawlBrowser.apply(cmd, cfg)
		crawlStore.apply(cmd, cfg)
	})
	if err != nil {
		return err
	}

	ctx := context.Background()
	rows, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	host, err := startChrome(ctx, cfg)
	if err != nil {
		return err
	}
	defer host.Close()

	hub := events.NewHub()
	c, err := newCrawler(host, rows, hub, cfg)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(os.Stdout)
	if cfg.Verbose {
		ch := hub.Subscribe()
		defer hub.Unsubscribe(ch)
		go func() {
			for evt := range ch {
				printer.PrintEvent(evt)
			}
		}()
	}

	// The first interrupt asks the crawl to stop at its next checkpoint; the
	// default handler is restored so a second one exits immediately.
	sigCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	go func() {
		<-sigCtx.Done()
		stopSignals()
		_ = c.Stop()
	}()

	status, err := c.Run(ctx, crawler.RunOptions{SearchURL: cfg.SearchURL, MaxPages: cfg.MaxPages})
	printer.PrintCrawlSummary(status)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	return nil
}
