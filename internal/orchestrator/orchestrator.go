package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"salesbot/internal/catalog"
	"salesbot/internal/customer"
	"salesbot/internal/fallback"
	"salesbot/internal/history"
	"salesbot/internal/llm"
	"salesbot/internal/prompt"
	"salesbot/internal/relevance"
)

type State string

const (
	StateReceived        State = "RECEIVED"
	StateHistoryAppended State = "HISTORY_APPENDED"
	StateContextBuilt    State = "CONTEXT_BUILT"
	StateCompleting      State = "COMPLETING"
	StateReplied         State = "REPLIED"
	StateFallbackReplied State = "FALLBACK_REPLIED"
	StateDropped         State = "DROPPED"
)

const StatusOperational = "operational"

const defaultLookupTimeout = 5 * time.Second

// Catalog источник товаров для отрывка каталога.
type Catalog interface {
	Products(ctx context.Context) []catalog.Product
	Peek() (catalog.Snapshot, bool)
}

// Config зависимости оркестратора.
type Config struct {
	Client    llm.Client
	History   history.Store
	Catalog   Catalog
	Detector  *relevance.Detector
	Assembler *prompt.Assembler
	Fallback  *fallback.Responder
	// Customers необязателен: без него реестр клиентов не ведётся.
	Customers customer.Registry

	IdleTTL           time.Duration
	CompletionTimeout time.Duration
	// LookupTimeout ограничивает чтение каталога и обновление реестра клиентов.
	LookupTimeout     time.Duration
	Logger            *slog.Logger
	Now               func() time.Time
}

// Outcome результат обработки одного входящего сообщения.
type Outcome struct {
	Reply  string
	State  State
	Reason string
}

// Stats интроспекция без побочных эффектов.
type Stats struct {
	ActiveSessions int    `json:"active_sessions"`
	CatalogSize    int    `json:"catalog_size"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	Status         string `json:"status"`
}

// Orchestrator превращает входящее сообщение в ответ: история, контекст
// каталога, вызов модели и откат на детерминированный ответ.
// Создаётся один раз при старте процесса.
type Orchestrator struct {
	client    llm.Client
	history   history.Store
	catalog   Catalog
	detector  *relevance.Detector
	assembler *prompt.Assembler
	fallback  *fallback.Responder
	customers customer.Registry

	idleTTL       time.Duration
	timeout       time.Duration
	lookupTimeout time.Duration
	logger        *slog.Logger
	now     func() time.Time
}

// New возвращает *llm.ConfigurationError, если не задан completion-клиент.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Client == nil {
		return nil, &llm.ConfigurationError{Field: "completion client"}
	}
	if cfg.History == nil {
		cfg.History = history.NewMemoryStore(0, cfg.Now)
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.NewCache(catalog.CacheConfig{Source: catalog.NewStaticSource(nil), Logger: cfg.Logger})
	}
	if cfg.Detector == nil {
		cfg.Detector = relevance.NewDetector(nil, relevance.Limits{})
	}
	if cfg.Assembler == nil {
		cfg.Assembler = prompt.NewAssembler(prompt.Config{})
	}
	if cfg.Fallback == nil {
		cfg.Fallback = fallback.New(nil)
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 2 * time.Hour
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = defaultLookupTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		client:        cfg.Client,
		history:       cfg.History,
		catalog:       cfg.Catalog,
		detector:      cfg.Detector,
		assembler:     cfg.Assembler,
		fallback:      cfg.Fallback,
		customers:     cfg.Customers,
		idleTTL:       cfg.IdleTTL,
		timeout:       cfg.CompletionTimeout,
		lookupTimeout: cfg.LookupTimeout,
		logger:        cfg.Logger,
		now:           cfg.Now,
	}, nil
}

// Handle проверяет сообщение и обрабатывает его. Исключённые сообщения
// возвращаются с StateDropped и пустым Reply.
func (o *Orchestrator) Handle(ctx context.Context, in Inbound) Outcome {
	if reason, drop := DropReason(in.Validate()); drop {
		o.logger.Debug("inbound dropped", slog.String("from", in.From), slog.String("reason", reason))
		return Outcome{State: StateDropped, Reason: reason}
	}
	return o.process(ctx, in.Body, in.From, in.DisplayName)
}

// ProcessMessage единственная точка входа с синхронным контрактом:
// никогда не возвращает ошибку и всегда даёт текст для ответа.
func (o *Orchestrator) ProcessMessage(ctx context.Context, text, userID, displayName string) string {
	return o.process(ctx, text, userID, displayName).Reply
}

func (o *Orchestrator) process(ctx context.Context, text, userID, displayName string) Outcome {
	log := o.logger.With(slog.String("user", userID))
	log.Debug("state", slog.String("state", string(StateReceived)))

	if strings.TrimSpace(text) == "" || strings.TrimSpace(userID) == "" {
		return o.fallbackOutcome(log, text, errors.New("empty message or user"))
	}

	now := o.now()
	if n, err := o.history.EvictIdle(ctx, now, o.idleTTL); err != nil {
		log.Warn("evict idle sessions failed", slog.String("error", err.Error()))
	} else if n > 0 {
		log.Debug("idle sessions evicted", slog.Int("count", n))
	}
	o.touchCustomer(ctx, log, userID, displayName, now)

	if err := o.history.Append(ctx, userID, history.RoleUser, text); err != nil {
		return o.fallbackOutcome(log, text, fmt.Errorf("append user turn: %w", err))
	}
	log.Debug("state", slog.String("state", string(StateHistoryAppended)))

	req, err := o.buildRequest(ctx, userID, text)
	if err != nil {
		return o.fallbackOutcome(log, text, err)
	}
	log.Debug("state", slog.String("state", string(StateContextBuilt)), slog.Int("messages", len(req.Messages)))

	log.Debug("state", slog.String("state", string(StateCompleting)))
	reply, err := o.complete(ctx, req)
	if err != nil {
		return o.fallbackOutcome(log, text, err)
	}

	if err := o.history.Append(ctx, userID, history.RoleAssistant, reply); err != nil {
		log.Warn("append assistant turn failed", slog.String("error", err.Error()))
	}
	log.Debug("state", slog.String("state", string(StateReplied)))
	return Outcome{Reply: reply, State: StateReplied}
}

func (o *Orchestrator) buildRequest(ctx context.Context, userID, text string) (llm.Request, error) {
	var excerpt string
	if o.detector.NeedsCatalogContext(text) {
		lookupCtx, cancel := context.WithTimeout(ctx, o.lookupTimeout)
		products := o.catalog.Products(lookupCtx)
		cancel()
		excerpt = o.assembler.Excerpt(o.detector.Select(text, products))
	}

	turns, err := o.history.History(ctx, userID)
	if err != nil {
		return llm.Request{}, fmt.Errorf("read history: %w", err)
	}
	return o.assembler.BuildRequest(turns, excerpt), nil
}

func (o *Orchestrator) complete(ctx context.Context, req llm.Request) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	return o.client.Complete(ctx, req)
}

func (o *Orchestrator) fallbackOutcome(log *slog.Logger, text string, cause error) Outcome {
	attrs := []any{slog.String("error", cause.Error())}
	var backendErr *llm.BackendError
	if errors.As(cause, &backendErr) {
		attrs = append(attrs,
			slog.String("provider", backendErr.Provider),
			slog.String("reason", string(backendErr.Reason)),
			slog.Int("status", backendErr.StatusCode))
	}
	log.Warn("falling back to canned reply", attrs...)
	return Outcome{Reply: o.fallback.Reply(text), State: StateFallbackReplied, Reason: cause.Error()}
}

func (o *Orchestrator) touchCustomer(ctx context.Context, log *slog.Logger, userID, displayName string, at time.Time) {
	if o.customers == nil || strings.TrimSpace(displayName) == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, o.lookupTimeout)
	defer cancel()
	if err := o.customers.Touch(ctx, userID, displayName, at); err != nil {
		log.Warn("customer registry update failed", slog.String("error", err.Error()))
	}
}

// Stats не обновляет каталог и не трогает сессии.
func (o *Orchestrator) Stats(ctx context.Context) Stats {
	stats := Stats{
		Provider: o.client.Provider(),
		Model:    o.client.Model(),
		Status:   StatusOperational,
	}
	if n, err := o.history.Len(ctx); err == nil {
		stats.ActiveSessions = n
	} else {
		o.logger.Warn("count sessions failed", slog.String("error", err.Error()))
	}
	if snap, ok := o.catalog.Peek(); ok {
		stats.CatalogSize = len(snap.Products)
	}
	return stats
}

// Ping проверяет доступность бэкенда.
func (o *Orchestrator) Ping(ctx context.Context) error {
	return o.client.Ping(ctx)
}
