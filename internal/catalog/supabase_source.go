package catalog

import (
	"context"
	"fmt"

	"github.com/supabase-community/supabase-go"

	"salesbot/internal/transport"
)

// SupabaseSource читает активные товары из таблицы Supabase (PostgREST).
type SupabaseSource struct {
	client *supabase.Client
	table  string
}

func NewSupabaseSource(client *supabase.Client, table string) *SupabaseSource {
	if table == "" {
		table = "products"
	}
	return &SupabaseSource{client: client, table: table}
}

func (s *SupabaseSource) Name() string { return "supabase" }

// Fetch соблюдает дедлайн ctx: supabase-go context не принимает.
func (s *SupabaseSource) Fetch(ctx context.Context) ([]Product, error) {
	products, err := transport.Await(ctx, func() ([]Product, error) {
		var rows []Product
		_, err := s.client.From(s.table).
			Select("name,price,stock,category", "", false).
			Eq("status", "active").
			ExecuteTo(&rows)
		return rows, err
	})
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", s.table, err)
	}
	return products, nil
}
