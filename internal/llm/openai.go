package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const ProviderOpenAI = "openai"

var openAIDefaults = Params{MaxTokens: 500, Temperature: Float32(0.7), TopP: 1}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Params  Params
}

// OpenAIClient реализует Client поверх go-openai.
type OpenAIClient struct {
	client *openai.Client
	model  string
	params Params
	logger *slog.Logger
}

func NewOpenAIClient(cfg OpenAIConfig, httpClient *http.Client, logger *slog.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, &ConfigurationError{Provider: ProviderOpenAI, Field: "OPENAI_API_KEY"}
	}
	if cfg.Model == "" {
		return nil, &ConfigurationError{Provider: ProviderOpenAI, Field: "OPENAI_MODEL"}
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		params: mergeParams(openAIDefaults, cfg.Params),
		logger: logger,
	}, nil
}

func (c *OpenAIClient) Provider() string { return ProviderOpenAI }
func (c *OpenAIClient) Model() string    { return c.model }

func (c *OpenAIClient) Ping(ctx context.Context) error {
	_, err := c.Complete(ctx, pingRequest())
	return err
}

func (c *OpenAIClient) Complete(ctx context.Context, r Request) (string, error) {
	maxTokens, temperature, topP := c.params.apply(r)

	messages := make([]openai.ChatCompletionMessage, 0, len(r.Messages))
	for _, m := range r.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &BackendError{Provider: ProviderOpenAI, Reason: ReasonMalformed}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", &BackendError{Provider: ProviderOpenAI, Reason: ReasonEmpty}
	}

	if c.logger != nil {
		c.logger.Debug("completion done",
			slog.String("provider", ProviderOpenAI),
			slog.String("model", c.model),
			slog.Int("messages", len(r.Messages)),
			slog.Int("total_tokens", resp.Usage.TotalTokens),
			slog.Duration("duration", time.Since(start)))
	}
	return text, nil
}

func classifyOpenAIError(err error) *BackendError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &BackendError{
			Provider:   ProviderOpenAI,
			Reason:     ReasonStatus,
			StatusCode: apiErr.HTTPStatusCode,
			Body:       truncate(apiErr.Message, 512),
			Err:        err,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		reason := ReasonStatus
		if reqErr.HTTPStatusCode >= 200 && reqErr.HTTPStatusCode < 300 {
			reason = ReasonMalformed
		}
		return &BackendError{
			Provider:   ProviderOpenAI,
			Reason:     reason,
			StatusCode: reqErr.HTTPStatusCode,
			Err:        err,
		}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &BackendError{Provider: ProviderOpenAI, Reason: ReasonMalformed, Err: err}
	}
	return transportError(ProviderOpenAI, err)
}
