package prompt

import (
	"strconv"
	"strings"

	"salesbot/internal/catalog"
	"salesbot/internal/history"
	"salesbot/internal/llm"
	"salesbot/internal/relevance"
)

const DefaultHistoryTurns = 6

// Config параметры сборщика запроса.
type Config struct {
	Persona  string
	Currency string
	// HistoryTurns сколько последних реплик истории попадает в запрос (K).
	HistoryTurns int
	MaxTokens    int
	Temperature  *float32
	TopP         float32
}

// Assembler собирает CompletionRequest из персоны, отрывка каталога и истории.
type Assembler struct {
	persona  string
	currency string
	turns    int
	request  llm.Request
}

func NewAssembler(cfg Config) *Assembler {
	if strings.TrimSpace(cfg.Persona) == "" {
		cfg.Persona = DefaultPersona
	}
	if cfg.Currency == "" {
		cfg.Currency = "GNF"
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = DefaultHistoryTurns
	}
	return &Assembler{
		persona:  cfg.Persona,
		currency: cfg.Currency,
		turns:    cfg.HistoryTurns,
		request: llm.Request{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
		},
	}
}

// Excerpt оформляет отобранные товары с заголовком, зависящим от политики отбора.
func (a *Assembler) Excerpt(sel relevance.Selection) string {
	return Heading(sel) + "\n" + FormatCatalog(sel.Products, a.currency)
}

// BuildRequest первым идёт одно системное сообщение (персона + отрывок
// каталога или маркер его отсутствия), затем последние K реплик истории
// в хронологическом порядке. Текущее сообщение пользователя уже лежит
// последним в history и повторно не добавляется.
func (a *Assembler) BuildRequest(turns []history.Turn, excerpt string) llm.Request {
	grounding := strings.TrimSpace(excerpt)
	if grounding == "" {
		grounding = NoCatalogContext
	}

	if len(turns) > a.turns {
		turns = turns[len(turns)-a.turns:]
	}

	messages := make([]llm.Message, 0, len(turns)+1)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: a.persona + "\n\n" + grounding,
	})
	for _, t := range turns {
		messages = append(messages, llm.Message{Role: string(t.Role), Content: t.Content})
	}

	req := a.request
	req.Messages = messages
	return req
}

// Heading заголовок отрывка каталога.
func Heading(sel relevance.Selection) string {
	switch sel.Policy {
	case relevance.PolicyCategory:
		return "PRODUITS " + strings.ToUpper(sel.Term) + "S DISPONIBLES:"
	case relevance.PolicyRecommend:
		return "NOS RECOMMANDATIONS:"
	default:
		return "PRODUITS DISPONIBLES:"
	}
}

// FormatCatalog одна строка на товар: "<name> - <price> <currency> (Stock: <stock>) - <category>".
// Пустой список даёт явную фразу об отсутствии товаров.
func FormatCatalog(products []catalog.Product, currency string) string {
	if len(products) == 0 {
		return EmptyCatalog
	}
	lines := make([]string, 0, len(products))
	for _, p := range products {
		lines = append(lines, p.Name+" - "+FormatPrice(p.Price)+" "+currency+
			" (Stock: "+strconv.Itoa(p.Stock)+") - "+p.Category)
	}
	return strings.Join(lines, "\n")
}

// FormatPrice печатает цену без экспоненты и лишних нулей: 250000, 99.5.
func FormatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
