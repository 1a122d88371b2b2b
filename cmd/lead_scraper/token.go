package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/lead-scraper/internal/config"
	"github.com/jonathan/lead-scraper/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the control API",
	Long:  "Signs a token with CONTROL_JWT_SECRET, valid for CONTROL_JWT_EXPIRATION_HOURS (default: 24).",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

var tokenOperator string

func init() {
	tokenCmd.Flags().StringVar(&tokenOperator, "operator", "operator", "Name recorded as the token subject")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	token, err := server.NewJWTService(jwtCfg).GenerateToken(tokenOperator)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
