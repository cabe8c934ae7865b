package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"salesbot/internal/retry"
)

// ChatSuffix суффикс WhatsApp-идентификатора личного чата.
const ChatSuffix = "@c.us"

// ErrGatewayDisabled шлюз не настроен.
var ErrGatewayDisabled = errors.New("outbound gateway is not configured")

// Sender отправляет текст пользователю через транспортный мост.
type Sender interface {
	Send(ctx context.Context, to, text string) error
}

type GatewayConfig struct {
	URL   string
	Token string
	Retry retry.Policy
}

// GatewayClient отправляет сообщения POST-запросом {to, text} на <URL>/send.
type GatewayClient struct {
	url        string
	token      string
	policy     retry.Policy
	httpClient *http.Client
	logger     *slog.Logger
}

func NewGatewayClient(cfg GatewayConfig, httpClient *http.Client, logger *slog.Logger) *GatewayClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GatewayClient{
		url:        strings.TrimRight(cfg.URL, "/"),
		token:      cfg.Token,
		policy:     cfg.Retry,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ChatID превращает номер телефона в идентификатор чата; готовые идентификаторы не меняются.
func ChatID(number string) string {
	number = strings.TrimSpace(number)
	if number == "" || strings.Contains(number, "@") {
		return number
	}
	return strings.TrimPrefix(number, "+") + ChatSuffix
}

type sendRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

func (c *GatewayClient) Send(ctx context.Context, to, text string) error {
	if c == nil || c.url == "" {
		return ErrGatewayDisabled
	}
	body, err := json.Marshal(sendRequest{To: ChatID(to), Text: text})
	if err != nil {
		return fmt.Errorf("marshal gateway request: %w", err)
	}

	resp, err := retry.Do(ctx, c.policy, c.logger, func(ctx context.Context) (*retry.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/send", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build gateway request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer httpResp.Body.Close()
		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, err
		}
		return &retry.Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: respBody}, nil
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", ChatID(to), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send to %s: gateway status %d: %s", ChatID(to), resp.StatusCode, string(resp.Body))
	}
	return nil
}
