// Package fallback детерминированные ответы на случай недоступности LLM.
package fallback

import "salesbot/internal/intent"

const (
	greetingReply  = "Bonjour ma sœur ! 😊 Bienvenue dans notre belle boutique ! Comment puis-je t'aider aujourd'hui ?"
	priceReply     = "Nos prix sont très abordables ! Dis-moi quel article t'intéresse et je te donne le prix exact avec le stock disponible."
	recommendReply = "Je te recommande nos bestsellers ma sœur ! Robe élégante (250k), sac cuir (95k), chaussures talons (120k). Qu'est-ce qui t'intéresse ?"
	menuReply      = "Je suis là pour t'aider ma sœur ! Dis-moi ce que tu cherches : robes, chaussures, sacs, bijoux... J'ai plein de belles choses à te montrer ! 😊"

	// TechnicalProblemReply ответ на границе сервиса, если упал даже этот пакет.
	TechnicalProblemReply = "Désolé, j'ai eu un petit problème technique. Pouvez-vous répéter votre message ?"
)

var categoryReplies = map[string]string{
	"robe":      "Nous avons de magnifiques robes ma sœur ! Des robes élégantes africaines à 250 000 GNF, des robes de soirée à 350 000 GNF... Laquelle t'intéresse ?",
	"chaussure": "Nos chaussures à talons sont à 120 000 GNF ma sœur, élégantes et confortables ! Quelle pointure fais-tu ?",
	"sac":       "Notre sac à main en cuir est à 95 000 GNF, parfait pour toutes les occasions ! Tu veux que je te le réserve ?",
	"bijou":     "Nos bijoux traditionnels sont à 75 000 GNF ma sœur, ils sublimeront ta tenue ! Tu veux en savoir plus ?",
	"pantalon":  "Notre pantalon élégant est à 140 000 GNF, très chic ! Quelle taille te faut-il ?",
	"chemise":   "Nos chemises femme sont à 85 000 GNF ma sœur, légères et élégantes ! Quelle couleur préfères-tu ?",
}

// Responder каскад правил «первое совпадение выигрывает» поверх таблицы намерений.
// Не смотрит ни в каталог, ни в историю.
type Responder struct {
	table *intent.Table
}

func New(table *intent.Table) *Responder {
	if table == nil {
		table = intent.Default()
	}
	return &Responder{table: table}
}

// Reply всегда возвращает непустой текст.
func (r *Responder) Reply(message string) string {
	if r == nil || r.table == nil {
		return menuReply
	}
	if r.table.Has(message, intent.Greeting) {
		return greetingReply
	}
	if term, ok := r.table.First(message, intent.Category); ok {
		if reply, ok := categoryReplies[term]; ok {
			return reply
		}
		return menuReply
	}
	switch {
	case r.table.Has(message, intent.Price):
		return priceReply
	case r.table.Has(message, intent.Recommend):
		return recommendReply
	default:
		return menuReply
	}
}
