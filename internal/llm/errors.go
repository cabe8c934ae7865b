package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ConfigurationError не хватает ключа или модели для создания клиента.
type ConfigurationError struct {
	Provider string
	Field    string
}

func (e *ConfigurationError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("llm configuration: %s is required", e.Field)
	}
	return fmt.Sprintf("llm configuration (%s): %s is required", e.Provider, e.Field)
}

type Reason string

const (
	ReasonNetwork   Reason = "network"
	ReasonTimeout   Reason = "timeout"
	ReasonStatus    Reason = "status"
	ReasonMalformed Reason = "malformed"
	ReasonEmpty     Reason = "empty"
)

// BackendError вызов completion не удался.
type BackendError struct {
	Provider   string
	Reason     Reason
	StatusCode int
	Body       string
	Err        error
}

func (e *BackendError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s backend: %s %d: %s", e.Provider, e.Reason, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s backend: %s: %v", e.Provider, e.Reason, e.Err)
	default:
		return fmt.Sprintf("%s backend: %s", e.Provider, e.Reason)
	}
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// transportError классифицирует ошибку http.Client.Do как таймаут или сетевую.
func transportError(provider string, err error) *BackendError {
	reason := ReasonNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		reason = ReasonTimeout
	}
	return &BackendError{Provider: provider, Reason: reason, Err: err}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
