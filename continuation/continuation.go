// Package continuation implements the three-state resumable
// computation of spec.md §4.2: a Continuation is Ready with a final
// value, Soon with a synchronous one-shot step, or Later with a
// re-pollable step requiring a Waker.
//
// Continuation is generic over the context type C it is driven with,
// so that this package has no dependency on package runtime (which
// depends on this package for its Context's scheduling). The concrete
// instantiation used throughout the rest of the module is
// Continuation[runtime.Context].
package continuation

import "github.com/wudi/heyrt/values"

type state int

const (
	stateReady state = iota
	stateSoon
	stateLater
)

// SoonFunc is a one-shot, synchronous step requiring context access.
// It must not assume the context is the one the Continuation was
// constructed against; the runtime may hand it whatever context it is
// currently driving (spec.md §4.2 edge cases). Per spec.md §9's open
// question, a SoonFunc must close only over goroutine-safe state: the
// runtime may migrate a context, and the continuations suspended on
// it, between host worker threads between polls.
type SoonFunc[C any] func(ctx *C) Continuation[C]

// PollFunc is a re-pollable step. It returns (value, true) once the
// computation completes, or (_, false) while still pending — mirroring
// Rust's Poll::Ready/Poll::Pending without needing a generic Poll type.
type PollFunc[C any] func(ctx *C, waker *Waker) (values.Value, bool)

// Continuation is spec.md §4.2's three-state computation.
type Continuation[C any] struct {
	st    state
	ready values.Value
	soon  SoonFunc[C]
	later PollFunc[C]
}

// Ready constructs a terminal continuation.
func Ready[C any](v values.Value) Continuation[C] {
	return Continuation[C]{st: stateReady, ready: v}
}

// Soon constructs a one-shot continuation.
func Soon[C any](f SoonFunc[C]) Continuation[C] {
	return Continuation[C]{st: stateSoon, soon: f}
}

// Later constructs a re-pollable continuation.
func Later[C any](f PollFunc[C]) Continuation[C] {
	return Continuation[C]{st: stateLater, later: f}
}

// IsReady reports whether the continuation is already in its terminal
// state (without polling).
func (c *Continuation[C]) IsReady() bool { return c.st == stateReady }

// Poll drives c until it either completes or a Later step returns
// Pending, implementing spec.md §4.2's polling algorithm:
//
//	loop:
//	    case self of
//	      Ready(v)    -> yield Ready(v); stop
//	      Soon(f)     -> self := f(ctx); continue
//	      Later(g)    -> match g(ctx, waker)
//	                       Pending  -> yield Pending; stop (keep g)
//	                       Ready(v) -> yield Ready(v); stop
//
// On return with ready=false, c has been mutated in place to retain
// whatever Later step is still outstanding, so a subsequent call to
// Poll resumes it rather than restarting.
func (c *Continuation[C]) Poll(ctx *C, waker *Waker) (value values.Value, ready bool) {
	for {
		switch c.st {
		case stateReady:
			return c.ready, true
		case stateSoon:
			next := c.soon(ctx)
			*c = next
		case stateLater:
			v, done := c.later(ctx, waker)
			if !done {
				return values.Nil, false
			}
			*c = Ready[C](v)
			return v, true
		default:
			panic("continuation: invalid state")
		}
	}
}

// Waker wakes whatever is driving a suspended continuation's Later
// step once forward progress becomes possible. A nil *Waker is valid
// and Wake is then a no-op, for callers polling synchronously without
// a driver loop to notify (e.g. tests).
type Waker struct {
	notify func()
}

// NewWaker constructs a Waker that invokes notify when woken.
func NewWaker(notify func()) *Waker {
	return &Waker{notify: notify}
}

// Wake signals that the suspended computation may be able to make
// progress; the driver (runtime.Run) is expected to schedule another
// Poll call in response.
func (w *Waker) Wake() {
	if w != nil && w.notify != nil {
		w.notify()
	}
}
