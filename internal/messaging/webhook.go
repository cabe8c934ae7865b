package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"salesbot/internal/fallback"
	"salesbot/internal/httpserver"
	"salesbot/internal/orchestrator"
)

const headerWebhookSecret = "X-Webhook-Secret"

type WebhookDeps struct {
	Responder     Responder
	Limiter       *SenderLimiter
	Logger        *slog.Logger
	WebhookSecret string
	Now           func() time.Time
}

// WebhookHandler принимает входящие сообщения от транспортного моста и
// возвращает ответ в теле HTTP-ответа; доставку выполняет сам мост.
type WebhookHandler struct {
	responder     Responder
	limiter       *SenderLimiter
	logger        *slog.Logger
	webhookSecret string
	now           func() time.Time

	received atomic.Int64
	replied  atomic.Int64
}

func NewWebhookHandler(deps WebhookDeps) *WebhookHandler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &WebhookHandler{
		responder:     deps.Responder,
		limiter:       deps.Limiter,
		logger:        deps.Logger,
		webhookSecret: deps.WebhookSecret,
		now:           deps.Now,
	}
}

type inboundResponse struct {
	ID      string `json:"id"`
	Reply   string `json:"reply,omitempty"`
	State   string `json:"state"`
	Dropped bool   `json:"dropped,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret != "" && r.Header.Get(headerWebhookSecret) != h.webhookSecret {
		httpserver.WriteJSONError(w, http.StatusForbidden, "forbidden", "invalid webhook secret")
		return
	}

	var in orchestrator.Inbound
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&in); err != nil {
		httpserver.WriteJSONError(w, http.StatusBadRequest, "bad_request", "cannot parse inbound message")
		return
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	h.received.Add(1)

	resp := h.handle(r.Context(), in)
	if resp.Reply != "" {
		h.replied.Add(1)
	}
	httpserver.WriteJSON(w, http.StatusOK, resp)
}

func (h *WebhookHandler) handle(ctx context.Context, in orchestrator.Inbound) (resp inboundResponse) {
	log := h.logger.With(slog.String("message_id", in.ID), slog.String("from", in.From))
	resp.ID = in.ID

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("inbound handling panicked", slog.Any("panic", rec))
			resp = inboundResponse{
				ID:     in.ID,
				Reply:  fallback.TechnicalProblemReply,
				State:  string(orchestrator.StateFallbackReplied),
				Reason: "internal error",
			}
		}
	}()

	if err := in.Validate(); err == nil && !h.limiter.Allow(in.From, h.now()) {
		log.Warn("inbound rate limited")
		return inboundResponse{ID: in.ID, State: string(orchestrator.StateDropped), Dropped: true, Reason: "rate limited"}
	}

	outcome := h.responder.Handle(ctx, in)
	if outcome.State == orchestrator.StateDropped {
		return inboundResponse{ID: in.ID, State: string(outcome.State), Dropped: true, Reason: outcome.Reason}
	}
	log.Info("inbound replied", slog.String("state", string(outcome.State)))
	return inboundResponse{ID: in.ID, Reply: outcome.Reply, State: string(outcome.State)}
}

// MessageCount число принятых входящих сообщений с момента запуска.
func (h *WebhookHandler) MessageCount() int64 {
	return h.received.Load()
}

// ReplyCount число отправленных ответов.
func (h *WebhookHandler) ReplyCount() int64 {
	return h.replied.Load()
}
