package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Source внешний источник каталога.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Product, error)
}

// RefreshError источник каталога недоступен; кэш продолжает отдавать прежний снимок.
type RefreshError struct {
	Source string
	Err    error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("catalog refresh from %s: %v", e.Source, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// CacheConfig конфигурация для создания Cache.
type CacheConfig struct {
	Source Source
	TTL    time.Duration
	Logger *slog.Logger
	Now    func() time.Time
}

// Cache держит текущий снимок каталога и обновляет его по TTL.
// Замена снимка — один атомарный swap указателя, поэтому читатели не блокируются.
// Параллельные вызовы на протухшем снимке могут обновить его несколько раз: это допустимо.
type Cache struct {
	source  Source
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
	current atomic.Pointer[Snapshot]
}

func NewCache(cfg CacheConfig) *Cache {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache{
		source: cfg.Source,
		ttl:    cfg.TTL,
		logger: cfg.Logger,
		now:    cfg.Now,
	}
}

// Products возвращает лучший доступный каталог и никогда не завершается ошибкой.
// Пустой результат возможен только если ни одна загрузка ещё не удалась.
func (c *Cache) Products(ctx context.Context) []Product {
	snap := c.current.Load()
	if snap == nil || snap.Expired(c.now()) {
		if err := c.Refresh(ctx); err != nil {
			if c.logger != nil {
				c.logger.Warn("catalog refresh failed, serving previous snapshot",
					slog.String("error", err.Error()),
					slog.Bool("has_snapshot", snap != nil))
			}
		}
		snap = c.current.Load()
	}
	if snap == nil {
		return []Product{}
	}
	return cloneProducts(snap.Products)
}

// Refresh загружает каталог из источника и атомарно подменяет снимок.
// При ошибке текущий снимок не трогается.
func (c *Cache) Refresh(ctx context.Context) error {
	if c.source == nil {
		return &RefreshError{Source: "none", Err: errors.New("no catalog source configured")}
	}
	products, err := c.source.Fetch(ctx)
	if err != nil {
		return &RefreshError{Source: c.source.Name(), Err: err}
	}

	now := c.now()
	next := &Snapshot{
		Products:  cloneProducts(products),
		LoadedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
	c.current.Store(next)

	if c.logger != nil {
		c.logger.Debug("catalog refreshed",
			slog.String("source", c.source.Name()),
			slog.Int("products", len(products)))
	}
	return nil
}

// Peek возвращает текущий снимок без попытки обновления.
func (c *Cache) Peek() (Snapshot, bool) {
	snap := c.current.Load()
	if snap == nil {
		return Snapshot{}, false
	}
	return Snapshot{
		Products:  cloneProducts(snap.Products),
		LoadedAt:  snap.LoadedAt,
		ExpiresAt: snap.ExpiresAt,
	}, true
}

func cloneProducts(in []Product) []Product {
	out := make([]Product, len(in))
	copy(out, in)
	return out
}
