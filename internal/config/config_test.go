package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Groq.Model)
	assert.Nil(t, cfg.LLM.Temperature)
	assert.Equal(t, 8, cfg.History.Window)
	assert.Equal(t, 6, cfg.History.PromptTurns)
	assert.Equal(t, 2*time.Hour, cfg.History.IdleTTL)
	assert.Equal(t, 24*time.Hour, cfg.Catalog.TTL)
	assert.Equal(t, "static", cfg.Catalog.Source)
	assert.Equal(t, "GNF", cfg.Prompt.Currency)
	assert.Equal(t, 4, cfg.Prompt.RecommendLimit)
	assert.Equal(t, 6, cfg.Prompt.ListingLimit)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LLM_TEMPERATURE", "0.5")
	t.Setenv("CATALOG_TTL", "5m")
	t.Setenv("HISTORY_WINDOW", "10")
	t.Setenv("GATEWAY_URL", "http://bridge:3000/")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.InDelta(t, 0.5, *cfg.LLM.Temperature, 0.0001)
	assert.Equal(t, 5*time.Minute, cfg.Catalog.TTL)
	assert.Equal(t, 10, cfg.History.Window)
	assert.Equal(t, "http://bridge:3000", cfg.Gateway.URL)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("SESSION_IDLE_TTL", "two hours")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_IDLE_TTL")
}

func TestLoadRejectsBadTemperature(t *testing.T) {
	t.Setenv("LLM_TEMPERATURE", "abc")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse LLM_TEMPERATURE")
}

func TestLoadZeroTemperature(t *testing.T) {
	t.Setenv("LLM_TEMPERATURE", "0")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.Zero(t, *cfg.LLM.Temperature)
}

func TestLoadRejectsPromptTurnsAboveWindow(t *testing.T) {
	t.Setenv("HISTORY_WINDOW", "4")
	t.Setenv("PROMPT_HISTORY_TURNS", "6")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROMPT_HISTORY_TURNS")
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salesbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalog_source: sqlite\nlisting_limit: 10\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Catalog.Source)
	assert.Equal(t, 10, cfg.Prompt.ListingLimit)
}

func TestPersonaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.txt")
	require.NoError(t, os.WriteFile(path, []byte("  Tu es Mariama.\n"), 0o600))

	persona, err := PromptConfig{PersonaFile: path}.Persona()
	require.NoError(t, err)
	assert.Equal(t, "Tu es Mariama.", persona)

	persona, err = PromptConfig{}.Persona()
	require.NoError(t, err)
	assert.Empty(t, persona)
}
