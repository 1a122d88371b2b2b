package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/lead-scraper/internal/config"
	"github.com/jonathan/lead-scraper/internal/observability"
)

var rowsCmd = &cobra.Command{
	Use:   "rows",
	Short: "Preview the stored rows",
	RunE:  runRows,
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of stored rows",
	RunE:  runCount,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored row",
	RunE:  runClear,
}

var (
	rowsLimit  int
	rowsStore  storeFlags
	countStore storeFlags
	clearStore storeFlags
	clearYes   bool
)

func init() {
	rowsCmd.Flags().IntVarP(&rowsLimit, "limit", "n", 20, "Maximum rows to show")
	rowsStore.register(rowsCmd)
	countStore.register(countCmd)
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Confirm deleting every stored row")
	clearStore.register(clearCmd)

	rootCmd.AddCommand(rowsCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(clearCmd)
}

func runRows(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(func(cfg *config.Config) { rowsStore.apply(cmd, cfg) })
	if err != nil {
		return err
	}

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
	observability.NewPrinter(os.Stdout).PrintRows(snapshot, rowsLimit)
	return nil
}

func runCount(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(func(cfg *config.Config) { countStore.apply(cmd, cfg) })
	if err != nil {
		return err
	}

	ctx := context.Background()
	rows, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	n, err := rows.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count rows: %w", err)
	}
	_, _ = fmt.Fprintln(os.Stdout, n)
	return nil
}

func runClear(cmd *cobra.Command, _ []string) error {
	if !clearYes {
		return fmt.Errorf("refusing to delete stored rows without --yes")
	}
	cfg, err := loadConfig(func(cfg *config.Config) { clearStore.apply(cmd, cfg) })
	if err != nil {
		return err
	}

	unlock, err := acquireRunLock(cfg)
	if err != nil {
		return fmt.Errorf("cannot clear rows: %w", err)
	}
	defer unlock()

	ctx := context.Background()
	rows, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	n, err := rows.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count rows: %w", err)
	}
	if err := rows.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear rows: %w", err)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Deleted %d rows\n", n)
	return nil
}
