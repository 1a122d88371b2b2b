package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/lead-scraper/internal/config"
	"github.com/jonathan/lead-scraper/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the stored rows to a CSV or XLSX file",
	Long: `Writes every stored row, header first, to linkedin_data.csv (or linkedin_data.xlsx with
--format xlsx) in the output directory. --out names the file directly; its extension picks the format.`,
	RunE: runExport,
}

var (
	exportOut    string
	exportOutDir string
	exportFormat string
	exportStore  storeFlags
)

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file path (overrides --out-dir and --format)")
	exportCmd.Flags().StringVar(&exportOutDir, "out-dir", "", "Output directory (default: current directory)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Output format: csv or xlsx")
	exportStore.register(exportCmd)
	rootCmd.AddCommand(exportCmd)
}

// exportPath resolves the destination file from the flags.
func exportPath(out, outDir, format string) (string, error) {
	if out != "" {
		return out, nil
	}
	switch strings.ToLower(format) {
	case "", "csv":
		return filepath.Join(outDir, export.DefaultCSVName), nil
	case "xlsx":
		return filepath.Join(outDir, export.DefaultXLSXName), nil
	default:
		return "", fmt.Errorf("unsupported format %q (use csv or xlsx)", format)
	}
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(func(cfg *config.Config) {
		if cmd.Flags().Changed("out-dir") {
			cfg.OutDir = exportOutDir
		}
		exportStore.apply(cmd, cfg)
	})
	if err != nil {
		return err
	}

	path, err := exportPath(exportOut, cfg.OutDir, exportFormat)
	if err != nil {
		return err
	}

	unlock, err := acquireRunLock(cfg)
	if err != nil {
		return fmt.Errorf("cannot export rows: %w", err)
	}
	defer unlock()

	ctx := context.Background()
	rows, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	snapshot, err := rows.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read rows: %w", err)
	}
	if err := export.WriteFile(path, snapshot); err != nil {
		return fmt.Errorf("failed to export rows: %w", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "Exported %d rows to %s\n", len(snapshot)-1, path)
	return nil
}
