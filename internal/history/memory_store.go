package history

import (
	"context"
	"sync"
	"time"
)

// MemoryStore потокобезопасное in-memory хранилище истории.
// Каждая мутация выполняется под одной блокировкой, поэтому добавления
// одного пользователя не перемешиваются.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
	window   int
	now      func() time.Time
}

// NewMemoryStore создаёт хранилище с окном window реплик на пользователя.
// now можно подменить в тестах; nil означает time.Now.
func NewMemoryStore(window int, now func() time.Time) *MemoryStore {
	if window <= 0 {
		window = 8
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		sessions: make(map[string][]Turn),
		window:   window,
		now:      now,
	}
}

func (s *MemoryStore) History(ctx context.Context, userID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[userID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, userID string, role Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[userID], Turn{Role: role, Content: content, Timestamp: s.now()})
	if over := len(turns) - s.window; over > 0 {
		// новый срез, чтобы старый массив не удерживался в памяти
		trimmed := make([]Turn, s.window)
		copy(trimmed, turns[over:])
		turns = trimmed
	}
	s.sessions[userID] = turns
	return nil
}

func (s *MemoryStore) EvictIdle(ctx context.Context, now time.Time, idleTTL time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int
	for userID, turns := range s.sessions {
		recent := keepRecent(turns, now, idleTTL)
		if len(recent) == 0 {
			delete(s.sessions, userID)
			deleted++
			continue
		}
		if len(recent) != len(turns) {
			s.sessions[userID] = recent
		}
	}
	return deleted, nil
}

func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}
