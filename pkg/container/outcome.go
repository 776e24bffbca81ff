package container

import (
	"context"
	"log/slog"
	"sync"
)

// Outcome is a settle-once future that also carries the progress
// notifications emitted while it was pending.
//
// Progress listeners run synchronously in emission order. A listener
// registered late first receives every notification already emitted.
// Continuations registered with Then run in registration order once the
// outcome settles. Panics in listeners and continuations are recovered and
// logged; they never affect the outcome. Listeners must not register other
// listeners on the same outcome from inside a callback.
type Outcome[T any] struct {
	owner  *Context
	logger *slog.Logger

	// deliver serializes listener registration and notification delivery
	deliver   sync.Mutex
	history   []Notification
	listeners []func(Notification)

	mu        sync.Mutex
	done      chan struct{}
	settled   bool
	value     T
	err       error
	callbacks []func(T, error)
}

func newOutcome[T any](owner *Context, logger *slog.Logger) *Outcome[T] {
	return &Outcome[T]{
		owner:  owner,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Context returns the context this outcome belongs to.
func (o *Outcome[T]) Context() *Context {
	return o.owner
}

// OnProgress subscribes fn to notifications.
func (o *Outcome[T]) OnProgress(fn func(Notification)) *Outcome[T] {
	o.deliver.Lock()
	defer o.deliver.Unlock()

	o.listeners = append(o.listeners, fn)
	for _, n := range o.history {
		o.safeNotify(fn, n)
	}
	return o
}

// Then registers continuations. onResolve runs when the outcome resolves,
// onReject when it rejects; either may be nil.
func (o *Outcome[T]) Then(onResolve func(T), onReject func(error)) *Outcome[T] {
	cb := func(v T, err error) {
		if err != nil {
			if onReject != nil {
				onReject(err)
			}
			return
		}
		if onResolve != nil {
			onResolve(v)
		}
	}

	o.mu.Lock()
	if !o.settled {
		o.callbacks = append(o.callbacks, cb)
		o.mu.Unlock()
		return o
	}
	v, err := o.value, o.err
	o.mu.Unlock()

	o.safeCallback(cb, v, err)
	return o
}

// Done is closed once the outcome settles.
func (o *Outcome[T]) Done() <-chan struct{} {
	return o.done
}

// Settled reports whether the outcome has settled.
func (o *Outcome[T]) Settled() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the outcome settles or ctx ends. A rejected outcome
// still returns its value alongside the error.
func (o *Outcome[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-o.done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (o *Outcome[T]) notify(n Notification) {
	o.deliver.Lock()
	defer o.deliver.Unlock()

	o.history = append(o.history, n)
	for _, fn := range o.listeners {
		o.safeNotify(fn, n)
	}
}

// settle resolves (err == nil) or rejects the outcome. Only the first call wins.
func (o *Outcome[T]) settle(v T, err error) bool {
	o.mu.Lock()
	if o.settled {
		o.mu.Unlock()
		return false
	}
	o.settled = true
	o.value = v
	o.err = err
	callbacks := o.callbacks
	o.callbacks = nil
	close(o.done)
	o.mu.Unlock()

	for _, cb := range callbacks {
		o.safeCallback(cb, v, err)
	}
	return true
}

func (o *Outcome[T]) safeNotify(fn func(Notification), n Notification) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Panic in progress listener",
				"component", n.Name,
				"status", n.Status.String(),
				"error", r)
		}
	}()
	fn(n)
}

func (o *Outcome[T]) safeCallback(cb func(T, error), v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Panic in outcome continuation", "error", r)
		}
	}()
	cb(v, err)
}
