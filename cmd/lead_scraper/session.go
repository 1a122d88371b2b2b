package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/lead-scraper/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the saved LinkedIn session cookie",
	Long: `The li_at cookie of a logged-in LinkedIn session is kept in the OS keychain and injected
into Chrome before the listing page is opened.`,
}

var sessionSetCmd = &cobra.Command{
	Use:   "set [cookie]",
	Short: "Save the li_at session cookie (read from stdin when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionSet,
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved session cookie",
	Args:  cobra.NoArgs,
	RunE:  runSessionClear,
}

var sessionAccount string

func init() {
	sessionCmd.PersistentFlags().StringVar(&sessionAccount, "account", session.DefaultAccount, "Keychain account holding the cookie")
	sessionCmd.AddCommand(sessionSetCmd)
	sessionCmd.AddCommand(sessionClearCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionSet(cmd *cobra.Command, args []string) error {
	var value string
	if len(args) == 1 {
		value = args[0]
	} else {
		_, _ = fmt.Fprint(os.Stderr, "Paste the li_at cookie value: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read cookie: %w", err)
		}
		value = line
	}

	if err := session.NewStore(sessionAccount).Save(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Session cookie saved")
	return nil
}

func runSessionClear(cmd *cobra.Command, _ []string) error {
	if err := session.NewStore(sessionAccount).Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Session cookie cleared")
	return nil
}
