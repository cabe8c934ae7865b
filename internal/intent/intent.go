// Package intent содержит общую таблицу «ключевое слово → намерение».
// Её читают и детектор релевантности, и резервный ответчик, поэтому
// словари у них не расходятся.
package intent

import "strings"

type Kind string

const (
	Greeting  Kind = "greeting"
	Category  Kind = "category"
	Price     Kind = "price"
	Recommend Kind = "recommend"
	Order     Kind = "order"
	Inquiry   Kind = "inquiry"
)

// Rule связывает подстроку (в нижнем регистре) с намерением.
type Rule struct {
	Term string
	Kind Kind
}

// Table упорядоченный набор правил. Порядок важен: первое совпадение
// внутри одного Kind определяет найденный термин.
type Table struct {
	rules []Rule
}

func NewTable(rules []Rule) *Table {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		term := strings.ToLower(strings.TrimSpace(r.Term))
		if term == "" {
			continue
		}
		out = append(out, Rule{Term: term, Kind: r.Kind})
	}
	return &Table{rules: out}
}

// Category-словарь курируется вручную и не выводится из данных каталога:
// новая категория в каталоге требует новой строки здесь.
var defaultRules = []Rule{
	{"bonjour", Greeting},
	{"bonsoir", Greeting},
	{"salut", Greeting},
	{"coucou", Greeting},
	{"hello", Greeting},

	{"robe", Category},
	{"chaussure", Category},
	{"sac", Category},
	{"bijou", Category},
	{"pantalon", Category},
	{"chemise", Category},

	{"prix", Price},
	{"combien", Price},
	{"coûte", Price},
	{"coute", Price},
	{"price", Price},
	{"how much", Price},

	{"suggère", Recommend},
	{"suggere", Recommend},
	{"recommande", Recommend},
	{"recommend", Recommend},
	{"suggest", Recommend},

	{"acheter", Order},
	{"commander", Order},
	{"buy", Order},

	{"produit", Inquiry},
	{"stock", Inquiry},
	{"disponible", Inquiry},
	{"catalogue", Inquiry},
	{"cherche", Inquiry},
	{"trouve", Inquiry},
	{"voir", Inquiry},
	{"article", Inquiry},
	{"quoi", Inquiry},
	{"montre", Inquiry},
	{"show me", Inquiry},
	{"available", Inquiry},
}

var defaultTable = NewTable(defaultRules)

// Default возвращает встроенную таблицу бутика.
func Default() *Table {
	return defaultTable
}

// Normalize приводит сообщение к виду, в котором ищутся термины.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Has сообщает, содержит ли сообщение хотя бы один термин данного намерения.
func (t *Table) Has(text string, kind Kind) bool {
	_, ok := t.First(text, kind)
	return ok
}

// First возвращает первый по порядку таблицы термин данного намерения,
// встретившийся в сообщении.
func (t *Table) First(text string, kind Kind) (string, bool) {
	msg := Normalize(text)
	if msg == "" {
		return "", false
	}
	for _, r := range t.rules {
		if r.Kind == kind && strings.Contains(msg, r.Term) {
			return r.Term, true
		}
	}
	return "", false
}

// ProductRelated true, если сообщение содержит любой термин, относящийся
// к товарам. Приветствия сюда не входят.
func (t *Table) ProductRelated(text string) bool {
	msg := Normalize(text)
	if msg == "" {
		return false
	}
	for _, r := range t.rules {
		if r.Kind == Greeting {
			continue
		}
		if strings.Contains(msg, r.Term) {
			return true
		}
	}
	return false
}

// Terms возвращает термины одного намерения в порядке таблицы.
func (t *Table) Terms(kind Kind) []string {
	var out []string
	for _, r := range t.rules {
		if r.Kind == kind {
			out = append(out, r.Term)
		}
	}
	return out
}
