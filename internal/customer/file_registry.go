package customer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileRegistry хранит клиентов в памяти и синхронизирует их с JSON-файлом.
// Формат файла: JSON-объект map[phone]Customer.
type FileRegistry struct {
	mu        sync.RWMutex
	customers map[string]Customer
	path      string
	logger    *slog.Logger
}

// NewFileRegistry загружает реестр из файла. Нечитаемый или битый файл
// логируется, и реестр стартует пустым.
func NewFileRegistry(path string, logger *slog.Logger) (*FileRegistry, error) {
	if path == "" {
		return nil, fmt.Errorf("customer registry path is empty")
	}

	r := &FileRegistry{
		customers: make(map[string]Customer),
		path:      path,
		logger:    logger,
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRegistry) Touch(ctx context.Context, phone, name string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.customers[phone]
	r.customers[phone] = touched(existing, ok, phone, name, at)
	if err := r.persistLocked(); err != nil {
		// память не должна расходиться с файлом
		if ok {
			r.customers[phone] = existing
		} else {
			delete(r.customers, phone)
		}
		return err
	}
	return nil
}

func (r *FileRegistry) Get(ctx context.Context, phone string) (Customer, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.customers[phone]
	return c, ok, nil
}

func (r *FileRegistry) load() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		r.warn("read customer registry", err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var raw map[string]Customer
	if err := json.Unmarshal(data, &raw); err != nil {
		r.warn("decode customer registry", err)
		return nil
	}
	for phone, c := range raw {
		if phone == "" {
			continue
		}
		r.customers[phone] = c
	}
	return nil
}

// persistLocked пишет во временный файл и переименовывает его поверх основного.
func (r *FileRegistry) persistLocked() error {
	dir := filepath.Dir(r.path)
	data, err := json.MarshalIndent(r.customers, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal customers: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		_ = os.Remove(tmpName)
	}

	if err := tmp.Chmod(0o600); err != nil && !errors.Is(err, os.ErrPermission) {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (r *FileRegistry) warn(msg string, err error) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(msg, slog.String("path", r.path), slog.String("error", err.Error()))
}
