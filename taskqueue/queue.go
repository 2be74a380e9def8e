// Package taskqueue serializes asynchronous operations.
//
// A Queue runs its tasks one at a time, in submission order. A failing task
// only fails its own result: the queue carries on with the next one.
package taskqueue

import (
	"context"
	"sync"
)

// closed is an already settled tail.
var closed = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Queue runs tasks strictly one after the other. The zero value is an empty
// queue ready to use. A Queue must not be copied after first use.
type Queue struct {
	mu   sync.Mutex
	tail <-chan struct{} // closed when the last queued task has settled
}

// Queue schedules task to run once every previously queued task has settled.
// The returned channel receives the task's error, then is closed.
func (q *Queue) Queue(task func() error) <-chan error {
	done := make(chan struct{})
	result := make(chan error, 1)

	q.mu.Lock()
	prev := q.tail
	q.tail = done
	q.mu.Unlock()

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		result <- task()
		close(result)
	}()
	return result
}

// Idle returns a channel closed once every task queued so far has settled,
// whether it failed or not.
func (q *Queue) Idle() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tail == nil {
		return closed
	}
	return q.tail
}

// Wait blocks until the queue is idle or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	select {
	case <-q.Idle():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run queues task and waits for its result.
func Run[T any](q *Queue, task func() (T, error)) (T, error) {
	var value T
	err := <-q.Queue(func() (err error) {
		value, err = task()
		return err
	})
	return value, err
}
