package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr       string
	LogLevel       string
	RequestTimeout time.Duration

	LLM      LLMConfig
	History  HistoryConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	Supabase SupabaseConfig
	Customer CustomerConfig
	Prompt   PromptConfig
	Gateway  GatewayConfig

	WebhookSecret        string
	InboundRatePerMinute int
}

// LLMConfig описывает выбранный бэкенд и параметры генерации.
// Нулевые MaxTokens/Temperature означают «значение по умолчанию провайдера».
type LLMConfig struct {
	Provider    string
	MaxTokens   int
	Temperature *float32
	TopP        float32
	Groq        BackendConfig
	OpenAI      BackendConfig
}

type BackendConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type HistoryConfig struct {
	Store       string
	Window      int
	PromptTurns int
	IdleTTL     time.Duration
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type CatalogConfig struct {
	Source     string
	TTL        time.Duration
	URL        string
	SQLitePath string
}

type SupabaseConfig struct {
	URL            string
	Key            string
	ProductsTable  string
	CustomersTable string
}

type CustomerConfig struct {
	Store string
	Path  string
}

type PromptConfig struct {
	Currency       string
	PersonaFile    string
	RecommendLimit int
	ListingLimit   int
}

type GatewayConfig struct {
	URL   string
	Token string
}

var defaults = map[string]any{
	"HTTP_ADDR":                ":8080",
	"LOG_LEVEL":                "info",
	"HTTP_CLIENT_TIMEOUT":      "15s",
	"LLM_PROVIDER":             "groq",
	"LLM_MAX_TOKENS":           0,
	"LLM_TOP_P":                1.0,
	"GROQ_BASE_URL":            "https://api.groq.com/openai/v1",
	"GROQ_MODEL":               "llama-3.1-8b-instant",
	"OPENAI_BASE_URL":          "https://api.openai.com/v1",
	"OPENAI_MODEL":             "gpt-4o-mini",
	"HISTORY_STORE":            "memory",
	"HISTORY_WINDOW":           8,
	"PROMPT_HISTORY_TURNS":     6,
	"SESSION_IDLE_TTL":         "2h",
	"REDIS_ADDR":               "localhost:6379",
	"REDIS_DB":                 0,
	"REDIS_KEY_PREFIX":         "salesbot:history:",
	"CATALOG_SOURCE":           "static",
	"CATALOG_TTL":              "24h",
	"SQLITE_PATH":              "data/catalog.db",
	"SUPABASE_PRODUCTS_TABLE":  "products",
	"SUPABASE_CUSTOMERS_TABLE": "customers",
	"CUSTOMER_STORE":           "memory",
	"CUSTOMER_STORE_PATH":      "data/customers.json",
	"CURRENCY":                 "GNF",
	"RECOMMEND_LIMIT":          4,
	"LISTING_LIMIT":            6,
	"INBOUND_RATE_PER_MINUTE":  20,
}

// envOnly ключи без значения по умолчанию, но которые должны читаться из окружения.
var envOnly = []string{
	"LLM_TEMPERATURE",
	"GROQ_API_KEY",
	"OPENAI_API_KEY",
	"REDIS_PASSWORD",
	"CATALOG_URL",
	"SUPABASE_URL",
	"SUPABASE_KEY",
	"PERSONA_FILE",
	"GATEWAY_URL",
	"GATEWAY_TOKEN",
	"WEBHOOK_SECRET",
}

// Load собирает конфигурацию: переменные окружения > файл path (если задан) > значения по умолчанию.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	for _, key := range envOnly {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	var err error

	cfg.HTTPAddr = v.GetString("HTTP_ADDR")
	cfg.LogLevel = strings.ToLower(v.GetString("LOG_LEVEL"))
	if cfg.RequestTimeout, err = parseDuration(v.GetString("HTTP_CLIENT_TIMEOUT")); err != nil {
		return Config{}, fmt.Errorf("parse HTTP_CLIENT_TIMEOUT: %w", err)
	}

	cfg.LLM = LLMConfig{
		Provider:  strings.ToLower(v.GetString("LLM_PROVIDER")),
		MaxTokens: v.GetInt("LLM_MAX_TOKENS"),
		TopP:      float32(v.GetFloat64("LLM_TOP_P")),
		Groq: BackendConfig{
			APIKey:  v.GetString("GROQ_API_KEY"),
			BaseURL: v.GetString("GROQ_BASE_URL"),
			Model:   v.GetString("GROQ_MODEL"),
		},
		OpenAI: BackendConfig{
			APIKey:  v.GetString("OPENAI_API_KEY"),
			BaseURL: v.GetString("OPENAI_BASE_URL"),
			Model:   v.GetString("OPENAI_MODEL"),
		},
	}
	if raw := strings.TrimSpace(v.GetString("LLM_TEMPERATURE")); raw != "" {
		t, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return Config{}, fmt.Errorf("parse LLM_TEMPERATURE: %w", err)
		}
		temperature := float32(t)
		cfg.LLM.Temperature = &temperature
	}

	cfg.History = HistoryConfig{
		Store:       strings.ToLower(v.GetString("HISTORY_STORE")),
		Window:      v.GetInt("HISTORY_WINDOW"),
		PromptTurns: v.GetInt("PROMPT_HISTORY_TURNS"),
	}
	if cfg.History.IdleTTL, err = parseDuration(v.GetString("SESSION_IDLE_TTL")); err != nil {
		return Config{}, fmt.Errorf("parse SESSION_IDLE_TTL: %w", err)
	}
	if cfg.History.Window <= 0 {
		return Config{}, errors.New("HISTORY_WINDOW must be positive")
	}
	if cfg.History.PromptTurns <= 0 || cfg.History.PromptTurns > cfg.History.Window {
		return Config{}, fmt.Errorf("PROMPT_HISTORY_TURNS must be in 1..%d (HISTORY_WINDOW)", cfg.History.Window)
	}

	cfg.Redis = RedisConfig{
		Addr:      v.GetString("REDIS_ADDR"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
	}

	cfg.Catalog = CatalogConfig{
		Source:     strings.ToLower(v.GetString("CATALOG_SOURCE")),
		URL:        v.GetString("CATALOG_URL"),
		SQLitePath: v.GetString("SQLITE_PATH"),
	}
	if cfg.Catalog.TTL, err = parseDuration(v.GetString("CATALOG_TTL")); err != nil {
		return Config{}, fmt.Errorf("parse CATALOG_TTL: %w", err)
	}

	cfg.Supabase = SupabaseConfig{
		URL:            v.GetString("SUPABASE_URL"),
		Key:            v.GetString("SUPABASE_KEY"),
		ProductsTable:  v.GetString("SUPABASE_PRODUCTS_TABLE"),
		CustomersTable: v.GetString("SUPABASE_CUSTOMERS_TABLE"),
	}

	cfg.Customer = CustomerConfig{
		Store: strings.ToLower(v.GetString("CUSTOMER_STORE")),
		Path:  v.GetString("CUSTOMER_STORE_PATH"),
	}

	cfg.Prompt = PromptConfig{
		Currency:       v.GetString("CURRENCY"),
		PersonaFile:    v.GetString("PERSONA_FILE"),
		RecommendLimit: v.GetInt("RECOMMEND_LIMIT"),
		ListingLimit:   v.GetInt("LISTING_LIMIT"),
	}

	cfg.Gateway = GatewayConfig{
		URL:   strings.TrimRight(v.GetString("GATEWAY_URL"), "/"),
		Token: v.GetString("GATEWAY_TOKEN"),
	}
	cfg.WebhookSecret = v.GetString("WEBHOOK_SECRET")
	cfg.InboundRatePerMinute = v.GetInt("INBOUND_RATE_PER_MINUTE")

	return cfg, nil
}

// Persona возвращает текст персоны из PERSONA_FILE или пустую строку, если файл не задан.
func (c PromptConfig) Persona() (string, error) {
	if c.PersonaFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.PersonaFile)
	if err != nil {
		return "", fmt.Errorf("read persona file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("duration is empty")
	}
	return time.ParseDuration(value)
}
