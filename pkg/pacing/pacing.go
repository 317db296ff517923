// Package pacing enforces a minimum interval between requests sent to one
// destination.
package pacing

import (
	"context"
	"sync"
	"time"

	"github.com/inercia/go-baski/pkg/httperr"
	"github.com/inercia/go-baski/pkg/retry"
)

// Pacer hands out dispatch slots.
type Pacer interface {
	Wait(ctx context.Context, failFast bool) error
}

// Limiter is a per-destination Pacer. Slots are reserved under a mutex and
// waited for outside it, so each caller owns a distinct slot and consecutive
// slots are at least one interval apart.
type Limiter struct {
	dest     string
	interval time.Duration

	mu   sync.Mutex
	next time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New creates a limiter for dest. The first slot opens one interval after
// creation.
func New(dest string, interval time.Duration) *Limiter {
	if interval < 0 {
		interval = 0
	}
	return &Limiter{
		dest:     dest,
		interval: interval,
		next:     time.Now().Add(interval),
		now:      time.Now,
		sleep:    retry.Sleep,
	}
}

// Wait blocks until the caller's slot. With failFast set, a caller that
// would have to wait gets an httperr.RateLimited error instead. A cancelled
// ctx returns ctx.Err(); the reserved slot is not given back.
func (l *Limiter) Wait(ctx context.Context, failFast bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	now := l.now()
	slot := l.next
	if slot.Before(now) {
		slot = now
	}
	if failFast && slot.After(now) {
		l.mu.Unlock()
		return httperr.RateLimited(l.dest)
	}
	l.next = slot.Add(l.interval)
	l.mu.Unlock()

	return l.sleep(ctx, slot.Sub(now))
}

// Unpaced never waits.
type Unpaced struct{}

func (Unpaced) Wait(ctx context.Context, _ bool) error {
	return ctx.Err()
}
