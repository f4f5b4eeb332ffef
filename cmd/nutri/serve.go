package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	httpAdapter "github.com/aretw0/nutri/pkg/adapters/http"
	"github.com/aretw0/nutri/pkg/adapters/telegram"
	"github.com/aretw0/nutri/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (Telegram webhook and message API)",
	Long: `Starts the bot in server mode. Telegram updates arrive on POST /telegram/webhook
and replies are sent with the Bot API; POST /v1/messages answers synchronously.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}
		logger := newLogger(cfg.Log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var notifier ports.Notifier
		if cfg.Telegram.Token != "" {
			opts := []telegram.Option{telegram.WithLogger(logger)}
			if cfg.Telegram.APIEndpoint != "" {
				opts = append(opts, telegram.WithAPIEndpoint(cfg.Telegram.APIEndpoint))
			}
			tg, err := telegram.New(cfg.Telegram.Token, opts...)
			if err != nil {
				return fmt.Errorf("telegram: %w", err)
			}
			logger.Info("Telegram notifier ready", "bot", tg.Username())
			notifier = tg
		} else {
			logger.Warn("No telegram token: replies are only returned by /v1/messages")
		}

		a, err := newApp(ctx, cfg, logger, appOptions{notifier: notifier})
		if err != nil {
			return err
		}
		defer a.Close()

		handler := httpAdapter.NewHandler(a.dispatcher, a.sessions,
			httpAdapter.WithMetricsHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})),
			httpAdapter.WithWebhookSecret(cfg.Telegram.WebhookSecret),
			httpAdapter.WithLogger(logger),
		)

		srv := &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting nutri server", "addr", srv.Addr, "backend", cfg.Store.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			logger.Info("Start shutdown")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", cfg.HTTP.ShutdownTimeout, "err", err)
				if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("nutri server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "override http.addr")
}
