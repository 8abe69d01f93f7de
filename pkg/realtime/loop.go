package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrLoopStopped is returned when work is posted to a loop that has exited.
var ErrLoopStopped = errors.New("realtime: loop stopped")

// Loop runs posted tasks one at a time on a single goroutine. State owned by
// the loop is only touched from posted tasks and needs no locks. Tasks must
// not post to their own loop.
type Loop struct {
	tasks chan func()

	running  atomic.Bool
	mu       sync.RWMutex // held for reading by Post, for writing by the final drain
	stopping chan struct{}
	done     chan struct{}
}

// NewLoop creates a loop whose queue holds up to depth pending tasks before
// Post blocks.
func NewLoop(depth int) *Loop {
	if depth <= 0 {
		depth = 64
	}
	return &Loop{
		tasks:    make(chan func(), depth),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run consumes tasks until ctx is cancelled, then runs whatever was already
// accepted. Only the first call runs; later calls return immediately.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return nil
	}
	defer l.drain()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-l.tasks:
			task()
		}
	}
}

// drain rejects new posts and runs every task a Post already reported as
// accepted, then closes done.
func (l *Loop) drain() {
	close(l.stopping)
	l.mu.Lock()
	defer l.mu.Unlock()
	defer close(l.done)
	for {
		select {
		case task := <-l.tasks:
			task()
		default:
			return
		}
	}
}

// Post queues fn behind every task posted before it. It blocks while the
// queue is full and fails once the loop is stopping. A nil error means fn
// will run.
func (l *Loop) Post(fn func()) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	select {
	case <-l.stopping:
		return ErrLoopStopped
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.stopping:
		return ErrLoopStopped
	}
}

// Do posts fn and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		// Accepted tasks run before done is closed.
		<-finished
		return nil
	}
}

// Done is closed once Run has stopped and every accepted task has run.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
