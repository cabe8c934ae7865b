// Package retry повторяет доставку исходящих сообщений через шлюз.
// Вызовы LLM здесь не участвуют: там любой сбой сразу уводит в резервный ответ.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Policy параметры экспоненциального backoff с джиттером.
// Нулевые поля заменяются значениями по умолчанию.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter доля случайного отклонения задержки, 0.3 означает ±30%.
	Jitter float64

	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
	Rand  func() float64
}

// DeliveryPolicy политика по умолчанию для шлюза: 4 попытки, 500ms → 8s.
func DeliveryPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
		Jitter:      0.3,
	}
}

func (p Policy) normalized() Policy {
	d := DeliveryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Rand == nil {
		p.Rand = rand.Float64
	}
	return p
}

// Response ответ шлюза с уже прочитанным телом.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StatusError шлюз ответил статусом, который стоит повторить.
type StatusError struct {
	StatusCode int
	Snippet    string
}

func (e *StatusError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("gateway status %d", e.StatusCode)
	}
	return fmt.Sprintf("gateway status %d: %s", e.StatusCode, e.Snippet)
}

// GiveUpError попытки кончились; Last причина последнего сбоя.
type GiveUpError struct {
	Attempts int
	Last     error
}

func (e *GiveUpError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *GiveUpError) Unwrap() error {
	return e.Last
}

// decision что делать после очередной попытки.
type decision struct {
	retry  bool
	reason string
	wait   time.Duration
	// fromHeader задержка взята из Retry-After
	fromHeader bool
	err        error
}

// Do вызывает send, пока он не вернёт окончательный результат или не кончатся попытки.
// Непереповторяемые ответы (включая 4xx) возвращаются как есть, без ошибки.
func Do(ctx context.Context, p Policy, logger *slog.Logger, send func(ctx context.Context) (*Response, error)) (*Response, error) {
	p = p.normalized()

	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := send(ctx)
		d := p.classify(ctx, attempt, resp, err)
		if !d.retry {
			if d.err != nil {
				return resp, d.err
			}
			return resp, nil
		}
		last = d.err

		if attempt == p.MaxAttempts {
			break
		}
		if logger != nil {
			logger.Warn("gateway delivery retry",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", p.MaxAttempts),
				slog.String("reason", d.reason),
				slog.Duration("retry_in", d.wait),
				slog.Bool("retry_after", d.fromHeader))
		}
		if err := p.Sleep(ctx, d.wait); err != nil {
			return nil, err
		}
	}
	return nil, &GiveUpError{Attempts: p.MaxAttempts, Last: last}
}

func (p Policy) classify(ctx context.Context, attempt int, resp *Response, err error) decision {
	if err != nil {
		reason, ok := transientNetReason(ctx, err)
		if !ok {
			return decision{err: err}
		}
		return decision{retry: true, reason: reason, wait: p.backoff(attempt), err: err}
	}
	if resp == nil {
		return decision{err: errors.New("nil gateway response")}
	}

	reason, ok := transientStatusReason(resp.StatusCode)
	if !ok {
		return decision{}
	}
	statusErr := &StatusError{StatusCode: resp.StatusCode, Snippet: snippet(resp.Body, 200)}
	if wait, ok := retryAfter(resp.Header, p.Now()); ok {
		return decision{retry: true, reason: reason, wait: min(wait, p.MaxDelay), fromHeader: true, err: statusErr}
	}
	return decision{retry: true, reason: reason, wait: p.backoff(attempt), err: statusErr}
}

// backoff BaseDelay·2^(attempt-1), не больше MaxDelay, с джиттером.
func (p Policy) backoff(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	delay = math.Min(delay, float64(p.MaxDelay))
	if p.Jitter > 0 {
		delay *= 1 + (p.Rand()*2-1)*p.Jitter
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

func transientStatusReason(status int) (string, bool) {
	switch status {
	case http.StatusTooManyRequests:
		return "rate limit", true
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return "timeout", true
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return "upstream 5xx", true
	}
	return "", false
}

// transientNetReason отмена или дедлайн самого ctx окончательны;
// таймауты и обрывы соединения повторяются.
func transientNetReason(ctx context.Context, err error) (string, bool) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return "", false
	}
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return "eof", true
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ECONNREFUSED):
		return "connection reset", true
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout", true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout", true
	}
	if strings.Contains(strings.ToLower(err.Error()), "connection reset") {
		return "connection reset", true
	}
	return "", false
}

// retryAfter понимает оба формата заголовка: секунды и HTTP-дату.
func retryAfter(h http.Header, now time.Time) (time.Duration, bool) {
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(max(secs, 0)) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		return max(at.Sub(now), 0), true
	}
	return 0, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func snippet(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit])
}
