package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/amarnathcjd/waitfor/internal/utils"
	"github.com/amarnathcjd/waitfor/telegram"
	"github.com/amarnathcjd/waitfor/transport/botmodels"
	"github.com/amarnathcjd/waitfor/transport/telebot"
	"github.com/amarnathcjd/waitfor/transport/telego"
)

func serveCmd(config func() *Config) *cobra.Command {
	var transport string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a bot that asks for names, over telebot, telego or a webhook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config()
			if cmd.Flags().Changed("transport") {
				cfg.Transport = transport
			}
			if cfg.Token == "" {
				return errors.New("[EmptyToken] set WAITFOR_BOT_TOKEN")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(cfg))
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "telebot", "telebot, telego or webhook")
	return cmd
}

func serve(ctx context.Context, cfg *Config, log *utils.Logger) error {
	switch cfg.Transport {
	case "telebot":
		tb, err := telebot.New(telebot.Config{Token: cfg.Token, URL: cfg.APIServer}, log.WithPrefix("waitfor telebot"))
		if err != nil {
			return err
		}
		c, err := startClient(ctx, cfg, log, tb)
		if err != nil {
			return err
		}
		tb.Attach(c)
		tb.Start(ctx)
		return nil

	case "telego":
		tg, err := telego.New(telego.Config{Token: cfg.Token, APIServer: cfg.APIServer}, log.WithPrefix("waitfor telego"))
		if err != nil {
			return err
		}
		c, err := startClient(ctx, cfg, log, tg)
		if err != nil {
			return err
		}
		return tg.Run(ctx, c)

	case "webhook":
		b, err := botmodels.NewBot(cfg.Token, cfg.APIServer)
		if err != nil {
			return err
		}
		c, err := startClient(ctx, cfg, log, b)
		if err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle(cfg.WebhookPath, &botmodels.Webhook{Client: c, Secret: cfg.WebhookSecret, Log: log.WithPrefix("waitfor webhook")})
		srv := &http.Server{Addr: cfg.WebhookAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		errc := make(chan error, 1)
		go func() { errc <- srv.ListenAndServe() }()
		log.Info("webhook listening on %s%s", cfg.WebhookAddr, cfg.WebhookPath)
		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdown)
		}
	}
	return errors.Errorf("[UnknownTransport] %q, want telebot, telego or webhook", cfg.Transport)
}

// startClient builds the client and registers the demo commands; the client
// stops when ctx ends.
func startClient(ctx context.Context, cfg *Config, log *utils.Logger, transport any) (*telegram.Client, error) {
	c, err := newClient(cfg, log, transport)
	if err != nil {
		return nil, err
	}
	if err := registerCommands(ctx, c, cfg.Timeout); err != nil {
		c.Stop()
		return nil, err
	}
	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return c, nil
}
