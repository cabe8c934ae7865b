package llm

import (
	"log/slog"
	"net/http"

	"salesbot/internal/config"
)

// New создаёт клиента выбранного в конфигурации провайдера.
// Ошибка конфигурации возвращается как *ConfigurationError.
func New(cfg config.LLMConfig, httpClient *http.Client, logger *slog.Logger) (Client, error) {
	params := Params{
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	}

	var (
		client Client
		err    error
	)
	switch cfg.Provider {
	case ProviderGroq, "":
		client, err = NewGroqClient(GroqConfig{
			APIKey:  cfg.Groq.APIKey,
			BaseURL: cfg.Groq.BaseURL,
			Model:   cfg.Groq.Model,
			Params:  params,
		}, httpClient, logger)
	case ProviderOpenAI:
		client, err = NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			Params:  params,
		}, httpClient, logger)
	default:
		return nil, &ConfigurationError{Field: "LLM_PROVIDER (groq|openai)"}
	}
	if err != nil {
		return nil, err
	}

	if logger != nil && LookupModel(client.Provider(), client.Model()) == nil {
		logger.Warn("model is not in the known list",
			slog.String("provider", client.Provider()),
			slog.String("model", client.Model()))
	}
	return client, nil
}
