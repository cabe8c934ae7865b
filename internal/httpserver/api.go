package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"salesbot/internal/catalog"
	"salesbot/internal/orchestrator"
)

const (
	AIStatusReady    = "ready"
	AIStatusFallback = "fallback mode"
)

type StatsSource interface {
	Stats(ctx context.Context) orchestrator.Stats
}

type ProductLister interface {
	Products(ctx context.Context) []catalog.Product
}

type MessageSender interface {
	Send(ctx context.Context, to, text string) error
}

type MessageCounter interface {
	MessageCount() int64
}

// APIDeps зависимости служебного API. Stats и Sender могут быть nil:
// без бэкенда /api/ai-stats отвечает 503, без шлюза то же делает /api/send-message.
type APIDeps struct {
	Stats    StatsSource
	Catalog  ProductLister
	Sender   MessageSender
	Counter  MessageCounter
	AIStatus string
	Logger   *slog.Logger
	Now      func() time.Time
}

type API struct {
	deps APIDeps
}

func NewAPI(deps APIDeps) *API {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.AIStatus == "" {
		deps.AIStatus = AIStatusReady
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &API{deps: deps}
}

type statusResponse struct {
	Ready        bool      `json:"ready"`
	MessageCount int64     `json:"message_count"`
	AIStatus     string    `json:"ai_status"`
	Timestamp    time.Time `json:"timestamp"`
}

func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Ready:     true,
		AIStatus:  a.deps.AIStatus,
		Timestamp: a.deps.Now().UTC(),
	}
	if a.deps.Counter != nil {
		resp.MessageCount = a.deps.Counter.MessageCount()
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (a *API) AIStats(w http.ResponseWriter, r *http.Request) {
	if a.deps.Stats == nil {
		WriteJSONError(w, http.StatusServiceUnavailable, "ai_unavailable", "completion backend is not configured")
		return
	}
	WriteJSON(w, http.StatusOK, a.deps.Stats.Stats(r.Context()))
}

func (a *API) Products(w http.ResponseWriter, r *http.Request) {
	products := []catalog.Product{}
	if a.deps.Catalog != nil {
		products = a.deps.Catalog.Products(r.Context())
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"count":    len(products),
		"products": products,
	})
}

type sendMessageRequest struct {
	Number  string `json:"number"`
	Message string `json:"message"`
}

func (a *API) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "bad_request", "cannot parse request")
		return
	}
	req.Number = strings.TrimSpace(req.Number)
	if req.Number == "" || strings.TrimSpace(req.Message) == "" {
		WriteJSONError(w, http.StatusBadRequest, "bad_request", "number and message are required")
		return
	}
	if a.deps.Sender == nil {
		WriteJSONError(w, http.StatusServiceUnavailable, "gateway_unavailable", "outbound gateway is not configured")
		return
	}

	if err := a.deps.Sender.Send(r.Context(), req.Number, req.Message); err != nil {
		a.deps.Logger.Error("manual send failed", slog.String("error", err.Error()))
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		WriteJSONError(w, status, "send_failed", "message could not be delivered")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}
