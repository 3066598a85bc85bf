package binding

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-binding/errors"
)

// Deferred is a value that becomes available later. It settles exactly
// once, either with a value or with an error.
type Deferred[T any] struct {
	loop *Loop
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	value T
	err   error
	thens []func(T, error)
}

func newDeferred[T any](loop *Loop) *Deferred[T] {
	return &Deferred[T]{
		loop: loop,
		done: make(chan struct{}),
	}
}

// settle stores the outcome and schedules continuations. Later calls are
// ignored.
func (d *Deferred[T]) settle(v T, err error) {
	d.once.Do(func() {
		d.mu.Lock()
		d.value, d.err = v, err
		thens := d.thens
		d.thens = nil
		close(d.done)
		d.mu.Unlock()

		for _, fn := range thens {
			if postErr := d.schedule(fn, v, err); postErr != nil {
				d.loop.logger.Warn("dropped deferred continuation", zap.Error(postErr))
			}
		}
	})
}

func (d *Deferred[T]) schedule(fn func(T, error), v T, err error) error {
	return d.loop.Post(func() { fn(v, err) })
}

// Done is closed when the value settles.
func (d *Deferred[T]) Done() <-chan struct{} {
	return d.done
}

// Await blocks until the value settles or ctx is done.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-d.done:
		return d.value, d.err
	case <-ctx.Done():
		var zero T
		return zero, errors.Cancelled("await", ctx.Err())
	}
}

// Then runs fn on the event loop once the value settles. Registering after
// settlement schedules fn immediately.
//
// Then returns a closed error, and fn never runs, when the loop is already
// closed. It returns queue_full when fn cannot be queued right away. A
// continuation accepted before the loop closes but whose value settles
// afterwards is dropped and logged at warn level.
func (d *Deferred[T]) Then(fn func(T, error)) error {
	d.mu.Lock()
	select {
	case <-d.done:
		d.mu.Unlock()
		return d.schedule(fn, d.value, d.err)
	default:
	}
	defer d.mu.Unlock()
	if d.loop.isClosed() {
		return errors.Closed(errors.PhaseRuntime, "event loop")
	}
	d.thens = append(d.thens, fn)
	return nil
}

// Result returns the settled outcome. Before settlement it returns the zero
// value and a not-initialized error.
func (d *Deferred[T]) Result() (T, error) {
	select {
	case <-d.done:
		return d.value, d.err
	default:
		var zero T
		return zero, errors.NotInitialized(errors.PhaseRuntime, "deferred result")
	}
}
