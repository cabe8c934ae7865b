package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message одно сообщение запроса с ролью.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request запрос к chat-completion бэкенду в виде, не зависящем от вендора.
// Нулевые MaxTokens/TopP и nil Temperature заменяются значениями клиента.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature *float32
	TopP        float32
}

// Client единый контракт над chat-completion API.
// Complete делает ровно один HTTP-вызов, без повторов; любой сбой
// возвращается как *BackendError.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	// Ping проверяет связь с бэкендом одним коротким запросом.
	Ping(ctx context.Context) error
	Provider() string
	Model() string
}

// Params параметры генерации по умолчанию для конкретного провайдера.
// Temperature указатель: 0 допустимое значение, nil означает «не задано».
type Params struct {
	MaxTokens   int
	Temperature *float32
	TopP        float32
}

// Float32 возвращает указатель на v.
func Float32(v float32) *float32 {
	return &v
}

func (p Params) apply(req Request) (maxTokens int, temperature, topP float32) {
	maxTokens, topP = p.MaxTokens, p.TopP
	if p.Temperature != nil {
		temperature = *p.Temperature
	}
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	if req.TopP > 0 {
		topP = req.TopP
	}
	return maxTokens, temperature, topP
}

func pingRequest() Request {
	return Request{Messages: []Message{{Role: RoleUser, Content: "Test"}}}
}
