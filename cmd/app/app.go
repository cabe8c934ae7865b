package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/supabase-community/supabase-go"

	"salesbot/internal/catalog"
	"salesbot/internal/config"
	"salesbot/internal/customer"
	"salesbot/internal/fallback"
	"salesbot/internal/history"
	"salesbot/internal/intent"
	"salesbot/internal/llm"
	"salesbot/internal/orchestrator"
	"salesbot/internal/prompt"
	"salesbot/internal/relevance"
	"salesbot/internal/transport"
)

// app набор собранных зависимостей процесса.
type app struct {
	cfg        config.Config
	logger     *slog.Logger
	httpClient *http.Client

	catalog  *catalog.Cache
	history  history.Store
	fallback *fallback.Responder

	// orchestrator nil, если completion-бэкенд не сконфигурирован.
	orchestrator *orchestrator.Orchestrator

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}

func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logger,
		httpClient: transport.NewHTTPClient(transport.Options{
			Timeout: cfg.RequestTimeout,
		}),
	}

	var supa *supabase.Client
	if cfg.Catalog.Source == "supabase" || cfg.Customer.Store == "supabase" {
		client, err := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.Key, nil)
		if err != nil {
			return nil, fmt.Errorf("init supabase client: %w", err)
		}
		supa = client
	}

	source, err := a.catalogSource(ctx, supa)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.catalog = catalog.NewCache(catalog.CacheConfig{
		Source: source,
		TTL:    cfg.Catalog.TTL,
		Logger: logger,
	})

	if a.history, err = a.historyStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	customers, err := a.customerRegistry(supa)
	if err != nil {
		a.Close()
		return nil, err
	}

	table := intent.Default()
	a.fallback = fallback.New(table)

	persona, err := cfg.Prompt.Persona()
	if err != nil {
		a.Close()
		return nil, err
	}
	assembler := prompt.NewAssembler(prompt.Config{
		Persona:      persona,
		Currency:     cfg.Prompt.Currency,
		HistoryTurns: cfg.History.PromptTurns,
		MaxTokens:    cfg.LLM.MaxTokens,
		Temperature:  cfg.LLM.Temperature,
		TopP:         cfg.LLM.TopP,
	})
	detector := relevance.NewDetector(table, relevance.Limits{
		Recommend: cfg.Prompt.RecommendLimit,
		Listing:   cfg.Prompt.ListingLimit,
	})

	client, err := llm.New(cfg.LLM, a.httpClient, logger)
	if err != nil {
		var cfgErr *llm.ConfigurationError
		if !errors.As(err, &cfgErr) {
			a.Close()
			return nil, err
		}
		logger.Warn("completion backend not configured, running in fallback mode",
			slog.String("provider", cfgErr.Provider),
			slog.String("field", cfgErr.Field),
		)
		return a, nil
	}

	a.orchestrator, err = orchestrator.New(orchestrator.Config{
		Client:            client,
		History:           a.history,
		Catalog:           a.catalog,
		Detector:          detector,
		Assembler:         assembler,
		Fallback:          a.fallback,
		Customers:         customers,
		IdleTTL:           cfg.History.IdleTTL,
		CompletionTimeout: cfg.RequestTimeout,
		LookupTimeout:     cfg.RequestTimeout / 3,
		Logger:            logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) catalogSource(ctx context.Context, supa *supabase.Client) (catalog.Source, error) {
	cfg := a.cfg
	switch cfg.Catalog.Source {
	case "static", "":
		return catalog.NewStaticSource(catalog.DemoProducts()), nil
	case "http":
		if cfg.Catalog.URL == "" {
			return nil, errors.New("CATALOG_URL is required for http catalog source")
		}
		return catalog.NewHTTPSource(cfg.Catalog.URL, "", a.httpClient), nil
	case "supabase":
		return catalog.NewSupabaseSource(supa, cfg.Supabase.ProductsTable), nil
	case "sqlite":
		src, err := a.openSQLite(ctx)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown CATALOG_SOURCE %q", cfg.Catalog.Source)
	}
}

// openSQLite открывает локальный каталог и засевает его демо-товарами, если он пуст.
func (a *app) openSQLite(ctx context.Context) (*catalog.SQLiteSource, error) {
	db, err := catalog.OpenSQLite(a.cfg.Catalog.SQLitePath)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)

	src := catalog.NewSQLiteSource(db)
	n, err := src.Seed(ctx, catalog.DemoProducts())
	if err != nil {
		return nil, fmt.Errorf("seed sqlite catalog: %w", err)
	}
	if n > 0 {
		a.logger.Info("sqlite catalog seeded", slog.Int("products", n))
	}
	return src, nil
}

func (a *app) historyStore(ctx context.Context) (history.Store, error) {
	cfg := a.cfg
	switch cfg.History.Store {
	case "memory", "":
		return history.NewMemoryStore(cfg.History.Window, nil), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		return history.NewRedisStore(history.RedisStoreConfig{
			Client:    client,
			KeyPrefix: cfg.Redis.KeyPrefix,
			Window:    cfg.History.Window,
			IdleTTL:   cfg.History.IdleTTL,
		}), nil
	default:
		return nil, fmt.Errorf("unknown HISTORY_STORE %q", cfg.History.Store)
	}
}

func (a *app) customerRegistry(supa *supabase.Client) (customer.Registry, error) {
	cfg := a.cfg
	switch cfg.Customer.Store {
	case "memory", "":
		return customer.NewMemoryRegistry(), nil
	case "file":
		registry, err := customer.NewFileRegistry(cfg.Customer.Path, a.logger)
		if err != nil {
			return nil, err
		}
		return registry, nil
	case "supabase":
		return customer.NewSupabaseRegistry(supa, cfg.Supabase.CustomersTable), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown CUSTOMER_STORE %q", cfg.Customer.Store)
	}
}

func newLogger(level string) *slog.Logger {
	slogLevel := slog.LevelInfo
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
}
