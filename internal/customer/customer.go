package customer

import (
	"context"
	"time"
)

const ChannelWhatsApp = "WhatsApp"

// Customer клиент, писавший боту.
type Customer struct {
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Channel   string    `json:"channel"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Registry реестр клиентов. Touch создаёт запись при первом контакте и
// обновляет имя и LastSeen при последующих.
type Registry interface {
	Touch(ctx context.Context, phone, name string, at time.Time) error
	Get(ctx context.Context, phone string) (Customer, bool, error)
}

func touched(existing Customer, found bool, phone, name string, at time.Time) Customer {
	if !found {
		return Customer{Phone: phone, Name: name, Channel: ChannelWhatsApp, FirstSeen: at, LastSeen: at}
	}
	if name != "" {
		existing.Name = name
	}
	if at.After(existing.LastSeen) {
		existing.LastSeen = at
	}
	return existing
}
