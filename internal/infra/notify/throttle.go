package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// limiter is a token bucket whose wait honours context cancellation.
type limiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

func newLimiter(burst int, perSecond float64) *limiter {
	return &limiter{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: perSecond,
		lastRefill: time.Now(),
	}
}

func (l *limiter) wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		missing := 1 - l.tokens
		l.mu.Unlock()

		delay := time.Duration(missing / l.refillRate * float64(time.Second))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// must hold l.mu
func (l *limiter) refill() {
	now := time.Now()
	l.tokens += now.Sub(l.lastRefill).Seconds() * l.refillRate
	if l.tokens > l.maxTokens {
		l.tokens = l.maxTokens
	}
	l.lastRefill = now
}

// breaker stops calling a failing endpoint for a cool-down period.
// After the cool-down one probe is let through; its outcome decides
// whether the breaker closes again.
type breaker struct {
	name      string
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	failures int
	openedAt time.Time
	open     bool
	probing  bool
}

func newBreaker(name string, threshold int, cooldown time.Duration) *breaker {
	return &breaker{name: name, threshold: threshold, cooldown: cooldown}
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}
	if b.probing || time.Since(b.openedAt) < b.cooldown {
		return false
	}
	b.probing = true
	return true
}

func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		slog.Info("Notifier recovered", slog.String("name", b.name))
	}
	b.failures = 0
	b.open = false
	b.probing = false
}

func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.probing || (!b.open && b.failures >= b.threshold) {
		if !b.open {
			slog.Warn("Notifier disabled after repeated failures",
				slog.String("name", b.name),
				slog.Int("failures", b.failures),
				slog.Duration("cooldown", b.cooldown))
		}
		b.open = true
		b.probing = false
		b.openedAt = time.Now()
	}
}
