package history

import (
	"context"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn одна реплика диалога. После создания не изменяется.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"ts"`
}

// Store хранилище ограниченных историй по пользователям.
type Store interface {
	// History возвращает реплики пользователя от старых к новым.
	// Для неизвестного пользователя возвращает пустой срез и не создаёт сессию.
	History(ctx context.Context, userID string) ([]Turn, error)

	// Append добавляет реплику с текущим временем. Если длина превысила окно W,
	// самые старые реплики отбрасываются.
	Append(ctx context.Context, userID string, role Role, content string) error

	// EvictIdle убирает реплики старше idleTTL относительно now; опустевшие
	// сессии удаляются целиком. Возвращает число удалённых сессий.
	EvictIdle(ctx context.Context, now time.Time, idleTTL time.Duration) (int, error)

	// Len число активных сессий.
	Len(ctx context.Context) (int, error)
}

// keepRecent отфильтровывает реплики старше ttl. Порядок сохраняется.
func keepRecent(turns []Turn, now time.Time, ttl time.Duration) []Turn {
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if now.Sub(t.Timestamp) <= ttl {
			out = append(out, t)
		}
	}
	return out
}
