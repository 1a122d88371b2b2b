package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/jonathan/lead-scraper/internal/config"
	"github.com/jonathan/lead-scraper/internal/crawler"
	"github.com/jonathan/lead-scraper/internal/server"
	"github.com/jonathan/lead-scraper/internal/session"
	"github.com/jonathan/lead-scraper/internal/types"
)

func withConfigPath(t *testing.T, path string) {
	t.Helper()
	old := configPath
	configPath = path
	t.Cleanup(func() { configPath = old })
}

func TestExportPath(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		outDir  string
		format  string
		want    string
		wantErr bool
	}{
		{name: "explicit file", out: "leads.xlsx", outDir: "ignored", format: "csv", want: "leads.xlsx"},
		{name: "csv default", outDir: "exports", format: "csv", want: filepath.Join("exports", "linkedin_data.csv")},
		{name: "empty format", outDir: ".", want: "linkedin_data.csv"},
		{name: "xlsx", outDir: "exports", format: "XLSX", want: filepath.Join("exports", "linkedin_data.xlsx")},
		{name: "unknown", outDir: ".", format: "pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := exportPath(tt.out, tt.outDir, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "search_url: https://www.linkedin.com/sales/search/people?page=1\nmax_pages: 3\nport: 9000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	withConfigPath(t, path)

	t.Setenv("LEADSCRAPER_MAX_PAGES", "5")
	t.Setenv("LEADSCRAPER_STORE_BACKEND", "memory")

	cfg, err := loadConfig(func(cfg *config.Config) {
		cfg.Port = 9100
	})
	require.NoError(t, err)

	assert.Equal(t, "https://www.linkedin.com/sales/search/people?page=1", cfg.SearchURL)
	assert.Equal(t, 5, cfg.MaxPages, "environment overrides the file")
	assert.Equal(t, 9100, cfg.Port, "flags override the environment")
	assert.Equal(t, config.BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "scrapedData", cfg.StoreKey, "defaults fill the rest")
}

func TestLoadConfig_Invalid(t *testing.T) {
	withConfigPath(t, "")

	_, err := loadConfig(func(cfg *config.Config) {
		cfg.StoreBackend = "redis"
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config error")
}

func TestStoreFlags_OnlyChangedApply(t *testing.T) {
	var f storeFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--backend", "memory"}))

	cfg := config.Config{StoreKey: "fromFile", DataDir: "fromFile"}
	f.apply(cmd, &cfg)

	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, "fromFile", cfg.StoreKey)
	assert.Equal(t, "fromFile", cfg.DataDir)
}

func TestBrowserFlags_OnlyChangedApply(t *testing.T) {
	var f browserFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--headless", "--max-pages", "2"}))

	cfg := config.Config{SearchURL: "https://example.com/list", NavRate: 1}
	f.apply(cmd, &cfg)

	assert.True(t, cfg.Headless)
	assert.Equal(t, 2, cfg.MaxPages)
	assert.Equal(t, "https://example.com/list", cfg.SearchURL)
	assert.Equal(t, 1.0, cfg.NavRate)
}

func TestOpenStore_SQLitePersists(t *testing.T) {
	ctx := context.Background()
	cfg := config.Defaults()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")

	rows, closeStore, err := openStore(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, rows.AppendLead(ctx, types.LeadRow{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		LeadLocation:    "London",
		CompanyName:     "Analytical Engines",
		JobTitle:        "Programmer",
		CompanyWebsite:  types.WebsiteNotFound,
		CompanyIndustry: types.IndustryNotFound,
		CompanyLocation: types.LocationNotFound,
	}))
	closeStore()

	assert.FileExists(t, filepath.Join(cfg.DataDir, "leads.db"))

	rows, closeStore, err = openStore(ctx, cfg)
	require.NoError(t, err)
	defer closeStore()

	n, err := rows.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpenStore_Memory(t *testing.T) {
	cfg := config.Defaults()
	cfg.StoreBackend = config.BackendMemory

	rows, closeStore, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	defer closeStore()

	n, err := rows.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunClear_RequiresConfirmation(t *testing.T) {
	old := clearYes
	clearYes = false
	t.Cleanup(func() { clearYes = old })

	err := runClear(&cobra.Command{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestRunToken(t *testing.T) {
	t.Setenv("CONTROL_JWT_SECRET", "test-secret")

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, runToken(cmd, nil))

	jwtCfg, err := config.NewJWTConfig()
	require.NoError(t, err)
	claims, err := server.NewJWTService(jwtCfg).ValidateToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Subject)
}

func TestRunToken_NoSecret(t *testing.T) {
	t.Setenv("CONTROL_JWT_SECRET", "")

	err := runToken(&cobra.Command{}, nil)
	assert.Error(t, err)
}

func TestSessionCommands(t *testing.T) {
	keyring.MockInit()

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	require.NoError(t, runSessionSet(cmd, []string{"  AQEDAR-cookie \n"}))
	value, err := session.NewStore(sessionAccount).Load()
	require.NoError(t, err)
	assert.Equal(t, "AQEDAR-cookie", value)

	require.NoError(t, runSessionClear(cmd, nil))
	_, err = session.NewStore(sessionAccount).Load()
	assert.ErrorIs(t, err, session.ErrNoSession)

	assert.Contains(t, out.String(), "Session cookie saved")
	assert.Contains(t, out.String(), "Session cookie cleared")
}

func TestSessionSet_FromStdin(t *testing.T) {
	keyring.MockInit()

	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("from-stdin\n"))
	cmd.SetOut(&bytes.Buffer{})

	require.NoError(t, runSessionSet(cmd, nil))
	value, err := session.NewStore(sessionAccount).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-stdin", value)
}

// holdCrawlLock points the commands at a fresh data dir and takes its run lock
// the way an active crawl does.
func holdCrawlLock(t *testing.T) config.Config {
	t.Helper()
	withConfigPath(t, "")
	dataDir := t.TempDir()
	t.Setenv("LEADSCRAPER_DATA_DIR", dataDir)
	t.Setenv("LEADSCRAPER_STORE_BACKEND", "sqlite")

	cfg := config.Defaults()
	cfg.DataDir = dataDir
	lock := flock.New(cfg.LockFile())
	locked, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	t.Cleanup(func() { _ = lock.Unlock() })
	return cfg
}

func seedRow(t *testing.T, cfg config.Config) {
	t.Helper()
	ctx := context.Background()
	rows, closeStore, err := openStore(ctx, cfg)
	require.NoError(t, err)
	defer closeStore()
	require.NoError(t, rows.AppendLead(ctx, types.LeadRow{FirstName: "Ada", LastName: "Lovelace"}))
}

func countRows(t *testing.T, cfg config.Config) int {
	t.Helper()
	ctx := context.Background()
	rows, closeStore, err := openStore(ctx, cfg)
	require.NoError(t, err)
	defer closeStore()
	n, err := rows.Count(ctx)
	require.NoError(t, err)
	return n
}

func TestRunClear_RefusedWhileCrawling(t *testing.T) {
	cfg := holdCrawlLock(t)
	seedRow(t, cfg)

	old := clearYes
	clearYes = true
	t.Cleanup(func() { clearYes = old })

	err := runClear(&cobra.Command{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, crawler.ErrAlreadyRunning)
	assert.Equal(t, 1, countRows(t, cfg), "rows survive a refused clear")
}

func TestRunExport_RefusedWhileCrawling(t *testing.T) {
	cfg := holdCrawlLock(t)
	seedRow(t, cfg)

	oldOut := exportOut
	exportOut = filepath.Join(t.TempDir(), "leads.csv")
	t.Cleanup(func() { exportOut = oldOut })

	err := runExport(&cobra.Command{}, nil)
	assert.ErrorIs(t, err, crawler.ErrAlreadyRunning)
	assert.NoFileExists(t, exportOut)
}

func TestRunClear_ReleasesLock(t *testing.T) {
	withConfigPath(t, "")
	dataDir := t.TempDir()
	t.Setenv("LEADSCRAPER_DATA_DIR", dataDir)
	t.Setenv("LEADSCRAPER_STORE_BACKEND", "sqlite")
	cfg := config.Defaults()
	cfg.DataDir = dataDir
	seedRow(t, cfg)

	old := clearYes
	clearYes = true
	t.Cleanup(func() { clearYes = old })

	require.NoError(t, runClear(&cobra.Command{}, nil))
	assert.Zero(t, countRows(t, cfg))

	lock := flock.New(cfg.LockFile())
	locked, err := lock.TryLock()
	require.NoError(t, err)
	assert.True(t, locked, "clear releases the run lock")
	_ = lock.Unlock()
}
