package customer

import (
	"context"
	"sync"
	"time"
)

// MemoryRegistry хранит клиентов в памяти процесса.
type MemoryRegistry struct {
	mu        sync.RWMutex
	customers map[string]Customer
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{customers: make(map[string]Customer)}
}

func (r *MemoryRegistry) Touch(ctx context.Context, phone, name string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.customers[phone]
	r.customers[phone] = touched(existing, ok, phone, name, at)
	return nil
}

func (r *MemoryRegistry) Get(ctx context.Context, phone string) (Customer, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.customers[phone]
	return c, ok, nil
}
