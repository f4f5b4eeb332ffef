package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and manage stored sessions",
	Long:  `List, inspect, reset and remove the dialogue sessions of the configured store.`,
}

// openSessions builds the app for operator commands, which never call the backend.
func openSessions(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	cfg.Gateway.Offline = true
	return newApp(cmd.Context(), cfg, newLogger(cfg.Log), appOptions{})
}

var sessionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all users with a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		users, err := a.sessions.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing sessions: %w", err)
		}
		if len(users) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No sessions found.")
			return nil
		}
		for _, u := range users {
			fmt.Fprintln(cmd.OutOrStdout(), u)
		}
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:     "show <user-id>",
	Aliases: []string{"inspect"},
	Short:   "Print the session of a user as JSON",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.sessions.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading session '%s': %w", args[0], err)
		}
		return printJSON(cmd, s)
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset <user-id>...",
	Short: "Send users back to the access code step",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var errs []error
		for _, userID := range args {
			if _, err := a.sessions.Reset(cmd.Context(), userID); err != nil {
				errs = append(errs, fmt.Errorf("error resetting '%s': %w", userID, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset session '%s'\n", userID)
		}
		return errors.Join(errs...)
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:     "delete <user-id>...",
	Aliases: []string{"rm"},
	Short:   "Remove one or more sessions",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var errs []error
		for _, userID := range args {
			if err := a.sessions.Delete(cmd.Context(), userID); err != nil {
				errs = append(errs, fmt.Errorf("error removing '%s': %w", userID, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", userID)
		}
		return errors.Join(errs...)
	},
}

var sessionHistoryCmd = &cobra.Command{
	Use:   "history <user-id>",
	Short: "Print the transition journal of a user (sqlite backend)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.journal == nil {
			return fmt.Errorf("history needs the sqlite backend, not %q", a.cfg.Store.Backend)
		}
		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := a.journal.History(cmd.Context(), args[0], limit)
		if err != nil {
			return fmt.Errorf("error reading history: %w", err)
		}
		return printJSON(cmd, entries)
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionShowCmd, sessionResetCmd, sessionDeleteCmd, sessionHistoryCmd)
	sessionHistoryCmd.Flags().Int("limit", 20, "show only the most recent transitions (0 for all)")
}
