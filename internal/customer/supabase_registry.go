package customer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/supabase-go"

	"salesbot/internal/transport"
)

// SupabaseRegistry ведёт клиентов в таблице Supabase с уникальным ключом phone.
// first_seen заполняется значением по умолчанию столбца (now()) при вставке
// и upsert'ом не перезаписывается.
type SupabaseRegistry struct {
	client *supabase.Client
	table  string
}

func NewSupabaseRegistry(client *supabase.Client, table string) *SupabaseRegistry {
	if table == "" {
		table = "customers"
	}
	return &SupabaseRegistry{client: client, table: table}
}

type customerRow struct {
	Phone    string    `json:"phone"`
	Name     string    `json:"name,omitempty"`
	Channel  string    `json:"channel"`
	LastSeen time.Time `json:"last_seen"`
}

func (r *SupabaseRegistry) Touch(ctx context.Context, phone, name string, at time.Time) error {
	row := customerRow{Phone: phone, Name: name, Channel: ChannelWhatsApp, LastSeen: at.UTC()}
	_, err := transport.Await(ctx, func() ([]byte, error) {
		data, _, err := r.client.From(r.table).Upsert(row, "phone", "minimal", "").Execute()
		return data, err
	})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", r.table, err)
	}
	return nil
}

func (r *SupabaseRegistry) Get(ctx context.Context, phone string) (Customer, bool, error) {
	data, err := transport.Await(ctx, func() ([]byte, error) {
		data, _, err := r.client.From(r.table).
			Select("phone,name,channel,first_seen,last_seen", "", false).
			Eq("phone", phone).
			Execute()
		return data, err
	})
	if err != nil {
		return Customer{}, false, fmt.Errorf("select %s: %w", r.table, err)
	}

	var rows []Customer
	if err := json.Unmarshal(data, &rows); err != nil {
		return Customer{}, false, fmt.Errorf("decode %s: %w", r.table, err)
	}
	if len(rows) == 0 {
		return Customer{}, false, nil
	}
	return rows[0], true, nil
}
