package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"salesbot/internal/catalog"
	"salesbot/internal/config"
	"salesbot/internal/httpserver"
	"salesbot/internal/messaging"
	"salesbot/internal/orchestrator"
	"salesbot/internal/retry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "salesbot",
		Short:        "WhatsApp sales assistant for a boutique catalog",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (env overrides it)")

	load := func() (config.Config, *slog.Logger, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return config.Config{}, nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, newLogger(cfg.LogLevel), nil
	}

	root.AddCommand(
		newServeCmd(load),
		newPingCmd(load),
		newAskCmd(load),
		newSeedCmd(load),
	)
	return root
}

type loadFunc func() (config.Config, *slog.Logger, error)

func newServeCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the inbound webhook and admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		responder messaging.Responder
		stats     httpserver.StatsSource
		aiStatus  = httpserver.AIStatusFallback
	)
	if a.orchestrator != nil {
		responder = a.orchestrator
		stats = a.orchestrator
		aiStatus = probeBackend(ctx, a.orchestrator, logger)
	} else {
		responder = messaging.FallbackOnly{Fallback: a.fallback}
	}

	webhook := messaging.NewWebhookHandler(messaging.WebhookDeps{
		Responder:     responder,
		Limiter:       messaging.NewSenderLimiter(cfg.InboundRatePerMinute),
		Logger:        logger,
		WebhookSecret: cfg.WebhookSecret,
	})

	deps := httpserver.APIDeps{
		Stats:    stats,
		Catalog:  a.catalog,
		Counter:  webhook,
		AIStatus: aiStatus,
		Logger:   logger,
	}
	if cfg.Gateway.URL != "" {
		deps.Sender = messaging.NewGatewayClient(messaging.GatewayConfig{
			URL:   cfg.Gateway.URL,
			Token: cfg.Gateway.Token,
			Retry: retry.DeliveryPolicy(),
		}, a.httpClient, logger)
	}

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Logger:         logger,
		InboundHandler: webhook,
		API:            httpserver.NewAPI(deps),
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", slog.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.catalog.Refresh(gctx); err != nil {
			logger.Warn("initial catalog load failed", slog.String("error", err.Error()))
			return nil
		}
		if snap, ok := a.catalog.Peek(); ok {
			logger.Info("catalog loaded", slog.Int("products", len(snap.Products)))
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("server stopped",
		slog.Int64("messages", webhook.MessageCount()),
		slog.Int64("replies", webhook.ReplyCount()),
	)
	return err
}

// probeBackend проверяет бэкенд при старте. Неудача не блокирует запуск:
// сервис продолжает работать, ответы уйдут в откат.
func probeBackend(ctx context.Context, o *orchestrator.Orchestrator, logger *slog.Logger) string {
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stats := o.Stats(pingCtx)
	if err := o.Ping(pingCtx); err != nil {
		logger.Warn("completion backend unreachable, fallback mode",
			slog.String("provider", stats.Provider),
			slog.String("model", stats.Model),
			slog.String("error", err.Error()),
		)
		return httpserver.AIStatusFallback
	}
	logger.Info("completion backend ready",
		slog.String("provider", stats.Provider),
		slog.String("model", stats.Model),
	)
	return httpserver.AIStatusReady
}

func newPingCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Send a one-message test completion to the configured backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.orchestrator == nil {
				return errors.New("completion backend is not configured")
			}

			stats := a.orchestrator.Stats(cmd.Context())
			if err := a.orchestrator.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("%s/%s: %w", stats.Provider, stats.Model, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s/%s: ok\n", stats.Provider, stats.Model)
			return nil
		},
	}
}

func newAskCmd(load loadFunc) *cobra.Command {
	var (
		userID string
		name   string
	)
	cmd := &cobra.Command{
		Use:   "ask <text>",
		Short: "Run one message through the orchestrator and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			text := strings.Join(args, " ")
			var reply string
			if a.orchestrator != nil {
				reply = a.orchestrator.ProcessMessage(cmd.Context(), text, userID, name)
			} else {
				reply = a.fallback.Reply(text)
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "cli", "sender id used as the history key")
	cmd.Flags().StringVar(&name, "name", "", "sender display name")
	return cmd
}

func newSeedCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the demo products into the sqlite catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			db, err := catalog.OpenSQLite(cfg.Catalog.SQLitePath)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := catalog.NewSQLiteSource(db).Seed(cmd.Context(), catalog.DemoProducts())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products into %s\n", n, cfg.Catalog.SQLitePath)
			return nil
		},
	}
}
