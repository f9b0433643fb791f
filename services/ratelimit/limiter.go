package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrInvalidBudget = errors.New("rate limit budget and window must be positive")

// safetyMargin is added to every computed sleep so a wakeup never lands
// exactly on the window boundary.
const safetyMargin = 50 * time.Millisecond

// Limiter admits units of work in FIFO submission order while guaranteeing
// that no more than budget operations begin within any rolling window.
// Admission is tracked with a timestamp log: before admitting the queue head,
// timestamps older than the window are pruned; if the log is full, admission
// sleeps until the oldest timestamp falls outside the window.
//
// A queued caller whose context is cancelled is removed from the queue
// without consuming budget. Failures inside the admitted work are the
// caller's own; the slot stays consumed either way.
type Limiter struct {
	budget int
	window time.Duration

	mu       sync.Mutex
	admitted []time.Time
	waiters  []chan struct{}
	timer    *time.Timer
	now      func() time.Time
}

// New creates a limiter allowing budget admissions per rolling window.
func New(budget int, window time.Duration) (*Limiter, error) {
	if budget <= 0 || window <= 0 {
		return nil, ErrInvalidBudget
	}
	return &Limiter{
		budget: budget,
		window: window,
		now:    time.Now,
	}, nil
}

// Do waits for an admission slot and then runs fn, propagating its error.
// If ctx is cancelled before admission, the slot is not consumed and
// ctx.Err() is returned without running fn.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	return fn()
}

// DoValue is Do for work that returns a value.
func DoValue[T any](ctx context.Context, l *Limiter, fn func() (T, error)) (T, error) {
	if err := l.acquire(ctx); err != nil {
		var zero T
		return zero, err
	}
	return fn()
}

func (l *Limiter) acquire(ctx context.Context) error {
	ready := make(chan struct{})

	l.mu.Lock()
	l.waiters = append(l.waiters, ready)
	l.pumpLocked()
	l.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		for i, w := range l.waiters {
			if w == ready {
				l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
				break
			}
		}
		l.mu.Unlock()

		// The pump may have admitted us in the window between ctx firing and
		// taking the lock; honor the admission in that case.
		select {
		case <-ready:
			return nil
		default:
		}
		return ctx.Err()
	}
}

// pumpLocked admits as many queued waiters as the current window allows and
// arms a wakeup timer when the budget is spent. Callers must hold l.mu.
func (l *Limiter) pumpLocked() {
	now := l.now()
	l.pruneLocked(now)

	for len(l.waiters) > 0 && len(l.admitted) < l.budget {
		head := l.waiters[0]
		l.waiters = l.waiters[1:]
		l.admitted = append(l.admitted, now)
		close(head)
	}

	if len(l.waiters) == 0 || l.timer != nil {
		return
	}

	wait := l.admitted[0].Add(l.window).Sub(now) + safetyMargin
	if wait < 0 {
		wait = safetyMargin
	}
	l.timer = time.AfterFunc(wait, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.timer = nil
		l.pumpLocked()
	})
}

func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.window)
	drop := 0
	for drop < len(l.admitted) && !l.admitted[drop].After(cutoff) {
		drop++
	}
	if drop > 0 {
		l.admitted = append(l.admitted[:0], l.admitted[drop:]...)
	}
}
