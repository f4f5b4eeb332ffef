package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/nutri/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the dialogue as a Mermaid flowchart",
	Long: `Prints the dialogue steps and their transitions in Mermaid syntax.
With --user the steps that user went through and their current step are highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(nil))
			return nil
		}

		a, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.sessions.LoadOrNew(cmd.Context(), userID)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(graph.OverlayFor(s)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("user", "", "highlight the progress of this user")
}
