package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStoreConfig параметры хранилища истории в Redis.
type RedisStoreConfig struct {
	Client    redis.UniversalClient
	KeyPrefix string
	Window    int
	// IdleTTL, если задан, ставится ключу как EXPIRE: Redis сам подчищает
	// сессии, до которых не дошёл EvictIdle.
	IdleTTL time.Duration
	Now     func() time.Time
}

// RedisStore хранит историю каждого пользователя в списке <prefix><userID>,
// по одной JSON-записи на реплику.
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	window  int
	idleTTL time.Duration
	now     func() time.Time
}

func NewRedisStore(cfg RedisStoreConfig) *RedisStore {
	if cfg.Window <= 0 {
		cfg.Window = 8
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RedisStore{
		client:  cfg.Client,
		prefix:  cfg.KeyPrefix,
		window:  cfg.Window,
		idleTTL: cfg.IdleTTL,
		now:     cfg.Now,
	}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}

func (s *RedisStore) History(ctx context.Context, userID string) ([]Turn, error) {
	raw, err := s.client.LRange(ctx, s.key(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange history: %w", err)
	}
	return decodeTurns(raw)
}

// Append выполняет RPUSH и LTRIM в одной транзакции MULTI/EXEC.
func (s *RedisStore) Append(ctx context.Context, userID string, role Role, content string) error {
	payload, err := json.Marshal(Turn{Role: role, Content: content, Timestamp: s.now()})
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	key := s.key(userID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		pipe.LTrim(ctx, key, int64(-s.window), -1)
		if s.idleTTL > 0 {
			pipe.PExpire(ctx, key, s.idleTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *RedisStore) EvictIdle(ctx context.Context, now time.Time, idleTTL time.Duration) (int, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return 0, err
	}

	var deleted int
	for _, key := range keys {
		stale, err := s.oldestStale(ctx, key, now, idleTTL)
		if err != nil {
			return deleted, err
		}
		if !stale {
			continue
		}
		removed, err := s.evictKey(ctx, key, now, idleTTL)
		if err != nil {
			return deleted, err
		}
		if removed {
			deleted++
		}
	}
	return deleted, nil
}

// oldestStale читает только самую старую реплику (LINDEX 0): реплики
// добавляются по времени, и если первая свежая, фильтровать нечего.
func (s *RedisStore) oldestStale(ctx context.Context, key string, now time.Time, idleTTL time.Duration) (bool, error) {
	raw, err := s.client.LIndex(ctx, key, 0).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("evict %s: %w", key, err)
	}
	var oldest Turn
	if err := json.Unmarshal([]byte(raw), &oldest); err != nil {
		return false, fmt.Errorf("decode turn: %w", err)
	}
	return len(keepRecent([]Turn{oldest}, now, idleTTL)) == 0, nil
}

// evictKey фильтрует один список под WATCH: конкурентный Append отменит
// транзакцию, и фильтрация повторится.
func (s *RedisStore) evictKey(ctx context.Context, key string, now time.Time, idleTTL time.Duration) (bool, error) {
	const maxAttempts = 3

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var removed bool
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.LRange(ctx, key, 0, -1).Result()
			if err != nil {
				return err
			}
			turns, err := decodeTurns(raw)
			if err != nil {
				return err
			}
			if len(turns) == 0 {
				return nil
			}
			recent := keepRecent(turns, now, idleTTL)
			if len(recent) == len(turns) {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				if len(recent) == 0 {
					return nil
				}
				values := make([]any, 0, len(recent))
				for _, t := range recent {
					b, err := json.Marshal(t)
					if err != nil {
						return err
					}
					values = append(values, b)
				}
				pipe.RPush(ctx, key, values...)
				if s.idleTTL > 0 {
					pipe.PExpire(ctx, key, s.idleTTL)
				}
				return nil
			})
			removed = len(recent) == 0
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("evict %s: %w", key, err)
		}
		return removed, nil
	}
	return false, fmt.Errorf("evict %s: too many concurrent updates", key)
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *RedisStore) keys(ctx context.Context) ([]string, error) {
	var cursor uint64
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan sessions: %w", err)
		}
		// SCAN может вернуть один ключ несколько раз
		for _, key := range batch {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

func decodeTurns(raw []string) ([]Turn, error) {
	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}
