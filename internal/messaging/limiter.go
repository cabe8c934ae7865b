package messaging

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdle = 10 * time.Minute

// SenderLimiter token bucket на каждого отправителя.
type SenderLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	senders   map[string]*senderEntry
	lastSweep time.Time
}

type senderEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewSenderLimiter perMinute сообщений в минуту на отправителя; 0 отключает ограничение (nil).
func NewSenderLimiter(perMinute int) *SenderLimiter {
	if perMinute <= 0 {
		return nil
	}
	burst := perMinute / 4
	if burst < 3 {
		burst = 3
	}
	return &SenderLimiter{
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		senders: make(map[string]*senderEntry),
	}
}

// Allow nil-лимитер пропускает всё.
func (l *SenderLimiter) Allow(sender string, now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > limiterIdle {
		for key, e := range l.senders {
			if now.Sub(e.lastSeen) > limiterIdle {
				delete(l.senders, key)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.senders[sender]
	if !ok {
		e = &senderEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.senders[sender] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}
