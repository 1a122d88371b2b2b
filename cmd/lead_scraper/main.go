// Package main provides the entry point for the lead_scraper CLI and control API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lead_scraper",
	Short: "LinkedIn lead list scraper",
	Long: `lead_scraper walks a LinkedIn search result listing page by page, enriches every lead
from its profile and company pages, and stores one row per current role.

Configuration can be loaded from a YAML or JSON file using --config. LEADSCRAPER_* environment
variables override file values, and command-line flags override both.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config.yaml or config.json file")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
