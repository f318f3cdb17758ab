package backend

import (
	"context"
	"sync"
	"time"
)

// throttle spaces successive long-poll re-arms by at least interval so a
// server that answers immediately cannot drive a hot loop.
type throttle struct {
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func newThrottle(interval time.Duration) *throttle {
	if interval <= 0 {
		return &throttle{}
	}
	return &throttle{interval: interval}
}

// wait reserves the next slot and sleeps until it arrives or ctx ends.
func (t *throttle) wait(ctx context.Context) error {
	if t == nil || t.interval <= 0 {
		return ctx.Err()
	}
	t.mu.Lock()
	now := time.Now()
	wait := t.next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	t.next = now.Add(wait + t.interval)
	t.mu.Unlock()

	if wait == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
