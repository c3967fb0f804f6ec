package continuation

import (
	"context"

	"github.com/wudi/heyrt/values"
)

// AndThen runs c to completion, then passes its value to f and drives
// the resulting continuation. Errors are propagated opaquely — f sees
// an Error value like any other, exactly as spec.md §4.2 describes the
// default combinator.
func AndThen[C any](c Continuation[C], f func(values.Value) Continuation[C]) Continuation[C] {
	state := struct {
		inner Continuation[C]
		next  *Continuation[C]
	}{inner: c}

	return Later(func(ctx *C, w *Waker) (values.Value, bool) {
		if state.next == nil {
			v, ready := state.inner.Poll(ctx, w)
			if !ready {
				return values.Nil, false
			}
			next := f(v)
			state.next = &next
		}
		return state.next.Poll(ctx, w)
	})
}

// AndThenIfOK is AndThen's short-circuiting variant: if c's result is
// an Error value, f is never called and the error is the final
// result (spec.md §4.2 "a convenience and_then_if_ok variant short-
// circuits on Error").
func AndThenIfOK[C any](c Continuation[C], f func(values.Value) Continuation[C]) Continuation[C] {
	return AndThen(c, func(v values.Value) Continuation[C] {
		if v.IsError() {
			return Ready[C](v)
		}
		return f(v)
	})
}

// AndThenSoon is AndThen, but f additionally receives the context —
// for the common case of wanting to build the follow-up continuation
// using context-dependent state (e.g. looking up a class's dispatch
// table) without a separate Soon wrapper.
func AndThenSoon[C any](c Continuation[C], f func(v values.Value, ctx *C) Continuation[C]) Continuation[C] {
	state := struct {
		inner Continuation[C]
		next  *Continuation[C]
	}{inner: c}

	return Later(func(ctx *C, w *Waker) (values.Value, bool) {
		if state.next == nil {
			v, ready := state.inner.Poll(ctx, w)
			if !ready {
				return values.Nil, false
			}
			next := f(v, ctx)
			state.next = &next
		}
		return state.next.Poll(ctx, w)
	})
}

// Future lifts a host asynchronous task whose eventual output is a
// Value into a Later. The task starts on the first poll, in its own
// goroutine, and wakes the waker once it completes; subsequent polls
// observe the stored result without re-running the task.
//
// run is given ctx unchanged, so it stops early only if the caller
// cancels ctx. Discarding the returned continuation does not cancel
// the task: once started, run keeps going until it returns.
func Future[C any](ctx context.Context, run func(context.Context) values.Value) Continuation[C] {
	type box struct {
		done  bool
		value values.Value
	}
	b := &box{}
	started := false

	return Later(func(c *C, w *Waker) (values.Value, bool) {
		if !started {
			started = true
			go func() {
				v := run(ctx)
				b.value = v
				b.done = true
				w.Wake()
			}()
		}
		if b.done {
			return b.value, true
		}
		return values.Nil, false
	})
}

// FutureSoon lifts a host asynchronous task whose output is itself a
// continuation: the resulting Later first drives the host future to
// completion, then drives the continuation it produced.
func FutureSoon[C any](ctx context.Context, run func(context.Context) Continuation[C]) Continuation[C] {
	type box struct {
		done bool
		cont Continuation[C]
	}
	b := &box{}
	started := false

	return Later(func(c *C, w *Waker) (values.Value, bool) {
		if !started {
			started = true
			go func() {
				cont := run(ctx)
				b.cont = cont
				b.done = true
				w.Wake()
			}()
		}
		if !b.done {
			return values.Nil, false
		}
		return b.cont.Poll(c, w)
	})
}
