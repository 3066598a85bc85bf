package binding

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-binding/errors"
)

// Loop runs queued callbacks one at a time, in the order they were posted,
// on a single goroutine. It stands in for the host's event loop: Deferred
// continuations and AddCb deliveries never run concurrently with each other.
type Loop struct {
	queue  chan func()
	done   chan struct{}
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewLoop starts a loop with room for size pending callbacks.
func NewLoop(size int, logger *zap.Logger) *Loop {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loop{
		queue:  make(chan func(), size),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for fn := range l.queue {
		l.invoke(fn)
	}
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop callback panicked", zap.Any("panic", r))
		}
	}()
	fn()
}

// Post queues fn without blocking. It fails when the queue is full or the
// loop is closed.
func (l *Loop) Post(fn func()) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return errors.Closed(errors.PhaseRuntime, "event loop")
	}
	select {
	case l.queue <- fn:
		return nil
	default:
		return errors.QueueFull("event loop", cap(l.queue))
	}
}

func (l *Loop) isClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

// Len returns the number of callbacks waiting to run.
func (l *Loop) Len() int {
	return len(l.queue)
}

// Close stops accepting callbacks and waits until the queued ones have run
// or ctx is done. It is safe to call more than once.
func (l *Loop) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return errors.Cancelled("drain event loop", ctx.Err())
	}
}

// Done is closed once the loop has stopped and every queued callback ran.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
