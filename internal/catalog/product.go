package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Product позиция каталога. Значения неизменяемы в пределах одного снимка.
type Product struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Category string  `json:"category"`
}

// Snapshot полный набор товаров и момент, после которого он подлежит обновлению.
type Snapshot struct {
	Products  []Product
	LoadedAt  time.Time
	ExpiresAt time.Time
}

// Expired сообщает, пора ли заменить снимок.
func (s *Snapshot) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// UnmarshalJSON принимает цену и остаток как числом, так и строкой ("250000"):
// табличные хранилища часто отдают числа строками.
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name     string          `json:"name"`
		Price    json.RawMessage `json:"price"`
		Stock    json.RawMessage `json:"stock"`
		Category string          `json:"category"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	price, err := parseNumber(raw.Price)
	if err != nil {
		return fmt.Errorf("product %q: price: %w", raw.Name, err)
	}
	stock, err := parseNumber(raw.Stock)
	if err != nil {
		return fmt.Errorf("product %q: stock: %w", raw.Name, err)
	}

	*p = normalize(Product{
		Name:     raw.Name,
		Price:    price,
		Stock:    int(stock),
		Category: raw.Category,
	})
	return nil
}

func parseNumber(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

func normalize(p Product) Product {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	if p.Stock < 0 {
		p.Stock = 0
	}
	return p
}
