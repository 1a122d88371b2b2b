package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/lead-scraper/internal/config"
	"github.com/jonathan/lead-scraper/internal/events"
	"github.com/jonathan/lead-scraper/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the control API server",
	Long: `Start Chrome and an HTTP server exposing REST endpoints to start and stop crawls, stream
progress over Server-Sent Events, and read or export the collected rows.

Set CONTROL_JWT_SECRET to require bearer tokens (see the token command).`,
	RunE: runServe,
}

var (
	servePort    int
	serveBrowser browserFlags
	serveStore   storeFlags
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: 8080)")
	serveBrowser.register(serveCmd)
	serveStore.register(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(func(cfg *config.Config) {
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}
		serveBrowser.apply(cmd, cfg)
		serveStore.apply(cmd, cfg)
	})
	if err != nil {
		return err
	}

	jwtCfg, err := config.OptionalJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to load JWT config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rows, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	host, err := startChrome(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer host.Close()

	hub := events.NewHub()
	c, err := newCrawler(host, rows, hub, cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Port:      cfg.Port,
		Crawler:   c,
		Rows:      rows,
		Hub:       hub,
		JWT:       jwtCfg,
		SearchURL: cfg.SearchURL,
		MaxPages:  cfg.MaxPages,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		// A crawl still running at shutdown is cancelled by the server; wait
		// for it so its final rows are stored before the backend closes.
		<-gctx.Done()
		c.Wait()
		return nil
	})
	return g.Wait()
}
