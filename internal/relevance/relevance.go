package relevance

import (
	"strings"

	"salesbot/internal/catalog"
	"salesbot/internal/intent"
)

// Policy какая из политик отбора сработала.
type Policy string

const (
	PolicyNone      Policy = "none"
	PolicyCategory  Policy = "category"
	PolicyRecommend Policy = "recommend"
	PolicyListing   Policy = "listing"
)

const (
	DefaultRecommendLimit = 4
	DefaultListingLimit   = 6
)

// Limits размеры префиксов каталога для рекомендаций и общего списка.
type Limits struct {
	Recommend int
	Listing   int
}

// Selection результат отбора: политика, найденный термин категории и товары.
type Selection struct {
	Policy   Policy
	Term     string
	Products []catalog.Product
}

// Detector детектор релевантности поверх общей таблицы намерений.
// Чистая функция от (сообщение, каталог), без побочных эффектов.
type Detector struct {
	table  *intent.Table
	limits Limits
}

func NewDetector(table *intent.Table, limits Limits) *Detector {
	if table == nil {
		table = intent.Default()
	}
	if limits.Recommend <= 0 {
		limits.Recommend = DefaultRecommendLimit
	}
	if limits.Listing <= 0 {
		limits.Listing = DefaultListingLimit
	}
	return &Detector{table: table, limits: limits}
}

// NeedsCatalogContext true, если сообщение содержит словарь товарного запроса.
func (d *Detector) NeedsCatalogContext(message string) bool {
	return d.table.ProductRelated(message)
}

// Select применяет три взаимоисключающие политики по приоритету:
// категория, затем рекомендация, затем общий список.
func (d *Detector) Select(message string, products []catalog.Product) Selection {
	if term, ok := d.table.First(message, intent.Category); ok {
		return Selection{
			Policy:   PolicyCategory,
			Term:     term,
			Products: filterByTerm(products, term),
		}
	}
	if d.table.Has(message, intent.Recommend) {
		return Selection{Policy: PolicyRecommend, Products: prefix(products, d.limits.Recommend)}
	}
	return Selection{Policy: PolicyListing, Products: prefix(products, d.limits.Listing)}
}

// SelectRelevant возвращает только отобранные товары.
func (d *Detector) SelectRelevant(message string, products []catalog.Product) []catalog.Product {
	return d.Select(message, products).Products
}

func filterByTerm(products []catalog.Product, term string) []catalog.Product {
	out := make([]catalog.Product, 0)
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Category), term) {
			out = append(out, p)
		}
	}
	return out
}

func prefix(products []catalog.Product, n int) []catalog.Product {
	if n > len(products) {
		n = len(products)
	}
	out := make([]catalog.Product, n)
	copy(out, products[:n])
	return out
}
