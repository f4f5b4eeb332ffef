package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/nutri/internal/presentation/tui"
	"github.com/aretw0/nutri/pkg/dispatch"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot from the terminal",
	Long: `Starts an interactive conversation through the same dispatcher the server uses.
With --offline the remote backend is replaced by an in-process one that accepts
the configured gateway.offline_codes (DEMO by default).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if offline, _ := cmd.Flags().GetBool("offline"); offline {
			cfg.Gateway.Offline = true
		}
		userID, _ := cmd.Flags().GetString("user")
		plain, _ := cmd.Flags().GetBool("plain")
		logger := newLogger(cfg.Log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		out := cmd.OutOrStdout()
		var notifierOpts []tui.NotifierOption
		if f, ok := out.(*os.File); ok && !plain && tui.IsTerminal(f) {
			tui.PrintBanner(f)
			if render, err := tui.NewRenderer(tui.Width(f)); err == nil {
				notifierOpts = append(notifierOpts, tui.WithRenderer(render))
			}
		}

		a, err := newApp(ctx, cfg, logger, appOptions{notifier: tui.NewWriterNotifier(out, notifierOpts...)})
		if err != nil {
			return err
		}
		defer a.Close()

		return runChat(ctx, a.dispatcher, userID, cmd.InOrStdin(), out)
	},
}

// runChat feeds every line of in to the dispatcher until EOF, "exit" or "quit".
// Replies reach out through the dispatcher's notifier.
func runChat(ctx context.Context, d *dispatch.Dispatcher, userID string, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "exit" || line == "quit" {
			fmt.Fprintln(out, "Bye!")
			return nil
		}
		if line == "" {
			continue
		}
		// Store failures are already answered with a retry message.
		_, _ = d.Handle(ctx, dispatch.Event{UserID: userID, Text: line})
		if ctx.Err() != nil {
			return nil
		}
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("offline", false, "use the in-process backend instead of gateway.base_url")
	chatCmd.Flags().String("user", "cli", "user id of the conversation")
	chatCmd.Flags().Bool("plain", false, "disable markdown rendering and the banner")
}
