package taskqueue

import (
	"context"
	"sync"
	"time"
)

// Throttle spaces out the requests sent to one data source. Every request is
// followed, in the same queue, by a pause of Interval, so that two requests
// never start closer than Interval from one another, whoever sends them.
type Throttle struct {
	Interval time.Duration

	mu    sync.Mutex // keeps a request and its pause adjacent in the queue
	queue Queue
}

// NewThrottle returns a throttle honouring a quota of perMinute requests per
// minute. A non positive quota returns nil, which does not throttle at all.
func NewThrottle(perMinute int) *Throttle {
	if perMinute <= 0 {
		return nil
	}
	return &Throttle{Interval: time.Minute / time.Duration(perMinute)}
}

// Idle returns a channel closed once every request and pause queued so far has
// elapsed.
func (t *Throttle) Idle() <-chan struct{} { return t.queue.Idle() }

// Do runs fn through the throttle t and returns its result. A nil throttle runs
// fn immediately. If ctx is done before fn's turn, fn is skipped and so is its
// pause.
func Do[T any](ctx context.Context, t *Throttle, fn func(context.Context) (T, error)) (T, error) {
	if t == nil {
		return fn(ctx)
	}
	var value T
	var sent bool

	t.mu.Lock()
	result := t.queue.Queue(func() (err error) {
		if err := ctx.Err(); err != nil {
			return err
		}
		sent = true
		value, err = fn(ctx)
		return err
	})
	t.queue.Queue(func() error {
		if sent {
			time.Sleep(t.Interval)
		}
		return nil
	})
	t.mu.Unlock()

	select {
	case err := <-result:
		return value, err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
