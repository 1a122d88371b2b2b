package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/jonathan/lead-scraper/internal/browser"
	"github.com/jonathan/lead-scraper/internal/config"
	"github.com/jonathan/lead-scraper/internal/crawler"
	"github.com/jonathan/lead-scraper/internal/events"
	"github.com/jonathan/lead-scraper/internal/extract"
	"github.com/jonathan/lead-scraper/internal/session"
	"github.com/jonathan/lead-scraper/internal/store"
)

// storeFlags are shared by every command that touches the row store.
type storeFlags struct {
	backend     string
	sqlitePath  string
	databaseURL string
	storeKey    string
	dataDir     string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.backend, "backend", "", "Row store backend: memory, sqlite or postgres (default: sqlite)")
	cmd.Flags().StringVar(&f.sqlitePath, "sqlite-path", "", "SQLite database file (default: <data-dir>/leads.db)")
	cmd.Flags().StringVar(&f.databaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	cmd.Flags().StringVar(&f.storeKey, "store-key", "", "Key holding the row sequence (default: scrapedData)")
	cmd.Flags().StringVar(&f.dataDir, "data-dir", "", "Directory for the SQLite file and the run lock (default: .lead_scraper)")
}

// apply copies explicitly set flags over cfg.
func (f *storeFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("backend") {
		cfg.StoreBackend = f.backend
	}
	if cmd.Flags().Changed("sqlite-path") {
		cfg.SQLitePath = f.sqlitePath
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = f.databaseURL
	}
	if cmd.Flags().Changed("store-key") {
		cfg.StoreKey = f.storeKey
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = f.dataDir
	}
}

// browserFlags are shared by the commands that drive Chrome.
type browserFlags struct {
	searchURL   string
	maxPages    int
	headless    bool
	chromePath  string
	userDataDir string
	navRate     float64
	verbose     bool
}

func (f *browserFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.searchURL, "search-url", "u", "", "LinkedIn search listing URL (opened before crawling)")
	cmd.Flags().IntVar(&f.maxPages, "max-pages", 0, "Maximum listing pages to crawl (0 = until there is no next page)")
	cmd.Flags().BoolVar(&f.headless, "headless", false, "Run Chrome without a window")
	cmd.Flags().StringVar(&f.chromePath, "chrome-path", "", "Chrome/Chromium executable (default: auto-detect)")
	cmd.Flags().StringVar(&f.userDataDir, "user-data-dir", "", "Chrome profile directory holding a logged-in session")
	cmd.Flags().Float64Var(&f.navRate, "nav-rate", 0, "Background pages opened per second (default: 0.5)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print detailed progress")
}

// apply copies explicitly set flags over cfg.
func (f *browserFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("search-url") {
		cfg.SearchURL = f.searchURL
	}
	if cmd.Flags().Changed("max-pages") {
		cfg.MaxPages = f.maxPages
	}
	if cmd.Flags().Changed("headless") {
		cfg.Headless = f.headless
	}
	if cmd.Flags().Changed("chrome-path") {
		cfg.ChromePath = f.chromePath
	}
	if cmd.Flags().Changed("user-data-dir") {
		cfg.UserDataDir = f.userDataDir
	}
	if cmd.Flags().Changed("nav-rate") {
		cfg.NavRate = f.navRate
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = f.verbose
	}
}

// loadConfig loads the --config file and environment overrides, lets apply
// copy explicitly set flags over them, then fills defaults and validates.
func loadConfig(apply func(*config.Config)) (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}
	cfg.ApplyEnv()
	if apply != nil {
		apply(&cfg)
	}

	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openStore opens the configured row store. The returned close function
// releases the backend.
func openStore(ctx context.Context, cfg config.Config) (*store.Store, func(), error) {
	var kv store.KV
	switch cfg.StoreBackend {
	case config.BackendMemory:
		kv = store.NewMemoryKV()
	case config.BackendPostgres:
		pg, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		kv = pg
	default:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
		}
		db, err := store.OpenSQLite(ctx, cfg.SQLiteFile())
		if err != nil {
			return nil, nil, err
		}
		kv = db
	}

	closeFn := func() {
		if err := kv.Close(); err != nil {
			log.Printf("[STORE] Failed to close %s backend: %v", cfg.StoreBackend, err)
		}
	}
	return store.New(kv, &store.Options{Key: cfg.StoreKey, Verbose: cfg.Verbose}), closeFn, nil
}

// acquireRunLock takes the crawl lock so the store cannot change underneath a
// command that reads or clears it. It fails with crawler.ErrAlreadyRunning
// while a crawl holds the lock.
func acquireRunLock(cfg config.Config) (func(), error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}
	lock := flock.New(cfg.LockFile())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		return nil, crawler.ErrAlreadyRunning
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			log.Printf("[CRAWL] Failed to release run lock: %v", err)
		}
	}, nil
}

// startChrome launches Chrome with the saved LinkedIn session cookie, if any.
func startChrome(ctx context.Context, cfg config.Config) (*browser.ChromeHost, error) {
	cookies, err := session.NewStore(session.DefaultAccount).Cookies()
	if err != nil {
		log.Printf("[BROWSER] Could not read saved session, continuing without it: %v", err)
		cookies = nil
	}
	if len(cookies) == 0 && cfg.UserDataDir == "" {
		log.Printf("[BROWSER] No saved session cookie; LinkedIn may require a login (see `lead_scraper session set`)")
	}

	return browser.NewChromeHost(ctx, browser.ChromeOptions{
		Headless:    cfg.Headless,
		ExecPath:    cfg.ChromePath,
		UserDataDir: cfg.UserDataDir,
		Cookies:     cookies,
		Verbose:     cfg.Verbose,
	})
}

// newCrawler wires a crawler around a running browser host.
func newCrawler(host *browser.ChromeHost, rows *store.Store, hub *events.Hub, cfg config.Config) (*crawler.Crawler, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}

	navOpts := browser.DefaultNavigatorOptions()
	navOpts.RatePerSec = cfg.NavRate
	navOpts.Burst = cfg.NavBurst
	navOpts.Verbose = cfg.Verbose

	inspectOpts := extract.DefaultInspectorOptions()
	inspectOpts.Verbose = cfg.Verbose

	opts := crawler.DefaultOptions()
	opts.MaxPages = cfg.MaxPages
	opts.LockPath = cfg.LockFile()
	opts.Verbose = cfg.Verbose

	return crawler.New(crawler.Deps{
		Host:      host,
		Navigator: browser.NewNavigator(host, navOpts),
		Driver:    extract.NewInspector(host, inspectOpts),
		Sink:      rows,
		Hub:       hub,
		Opener:    host,
	}, opts), nil
}
