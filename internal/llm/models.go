package llm

// KnownModels модели, с которыми бот проверялся, по провайдерам.
// Другие идентификаторы допустимы, но при запуске о них пишется предупреждение.
var KnownModels = []ModelInfo{
	{Provider: ProviderGroq, ID: "llama-3.1-8b-instant", Name: "Llama 3.1 8B Instant", Description: "Быстрая и дешёвая модель по умолчанию"},
	{Provider: ProviderGroq, ID: "llama-3.3-70b-versatile", Name: "Llama 3.3 70B", Description: "Качественнее, но медленнее"},
	{Provider: ProviderOpenAI, ID: "gpt-4o-mini", Name: "GPT-4o mini", Description: "Модель OpenAI по умолчанию"},
	{Provider: ProviderOpenAI, ID: "gpt-4o", Name: "GPT-4o", Description: "Флагманская модель OpenAI"},
}

// ModelInfo описывает информацию о модели.
type ModelInfo struct {
	Provider    string
	ID          string // Идентификатор модели для API
	Name        string // Короткое название для отображения
	Description string
}

// LookupModel возвращает информацию о модели провайдера или nil.
func LookupModel(provider, modelID string) *ModelInfo {
	for i := range KnownModels {
		if KnownModels[i].Provider == provider && KnownModels[i].ID == modelID {
			return &KnownModels[i]
		}
	}
	return nil
}
