package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const ProviderGroq = "groq"

var groqDefaults = Params{MaxTokens: 400, Temperature: Float32(0.8), TopP: 1}

// GroqConfig параметры OpenAI-совместимого эндпоинта Groq.
type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Params  Params
}

// GroqClient обращается к /chat/completions напрямую через net/http.
type GroqClient struct {
	apiKey     string
	baseURL    string
	model      string
	params     Params
	httpClient *http.Client
	logger     *slog.Logger
}

func NewGroqClient(cfg GroqConfig, httpClient *http.Client, logger *slog.Logger) (*GroqClient, error) {
	if cfg.APIKey == "" {
		return nil, &ConfigurationError{Provider: ProviderGroq, Field: "GROQ_API_KEY"}
	}
	if cfg.Model == "" {
		return nil, &ConfigurationError{Provider: ProviderGroq, Field: "GROQ_MODEL"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GroqClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		params:     mergeParams(groqDefaults, cfg.Params),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func (c *GroqClient) Provider() string { return ProviderGroq }
func (c *GroqClient) Model() string    { return c.model }

func (c *GroqClient) Ping(ctx context.Context) error {
	_, err := c.Complete(ctx, pingRequest())
	return err
}

func (c *GroqClient) Complete(ctx context.Context, r Request) (string, error) {
	maxTokens, temperature, topP := c.params.apply(r)
	body := chatRequest{
		Model:       c.model,
		Messages:    r.Messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
		Stream:      false,
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return "", &BackendError{Provider: ProviderGroq, Reason: ReasonMalformed, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(buf))
	if err != nil {
		return "", &BackendError{Provider: ProviderGroq, Reason: ReasonNetwork, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(ProviderGroq, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(ProviderGroq, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &BackendError{
			Provider:   ProviderGroq,
			Reason:     ReasonStatus,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(respBody), 512),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &BackendError{Provider: ProviderGroq, Reason: ReasonMalformed, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message == nil {
		return "", &BackendError{Provider: ProviderGroq, Reason: ReasonMalformed, Body: truncate(string(respBody), 512)}
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", &BackendError{Provider: ProviderGroq, Reason: ReasonEmpty}
	}

	if c.logger != nil {
		c.logger.Debug("completion done",
			slog.String("provider", ProviderGroq),
			slog.String("model", c.model),
			slog.Int("messages", len(r.Messages)),
			slog.Duration("duration", time.Since(start)))
	}
	return text, nil
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
	TopP        float32   `json:"top_p"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message *Message `json:"message"`
	} `json:"choices"`
}

func mergeParams(defaults, override Params) Params {
	if override.MaxTokens > 0 {
		defaults.MaxTokens = override.MaxTokens
	}
	if override.Temperature != nil {
		defaults.Temperature = override.Temperature
	}
	if override.TopP > 0 {
		defaults.TopP = override.TopP
	}
	return defaults
}
