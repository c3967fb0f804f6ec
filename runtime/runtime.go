package runtime

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/wudi/heyrt/cellblock"
	"github.com/wudi/heyrt/config"
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/queue"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// Runtime wraps a Context behind the fair reader/writer queue of
// package queue, exposing the async API of spec.md §4.7. Each Runtime
// is assigned a uuid identity at construction, used only for log
// correlation (spec.md §4.13, expansion).
type Runtime struct {
	id     uuid.UUID
	lock   *queue.FairMutex
	ctx    *Context
	logger *slog.Logger

	dropped bool

	background *backgroundPool
}

// Option configures a Runtime at construction.
type Option func(*runtimeOptions)

type runtimeOptions struct {
	logger *slog.Logger
	cfg    config.Config
}

// WithLogger overrides the runtime's structured logger; slog.Default()
// is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(o *runtimeOptions) { o.logger = l }
}

// WithConfig supplies the capacity/log-level options of spec.md §6.
func WithConfig(cfg config.Config) Option {
	return func(o *runtimeOptions) { o.cfg = cfg }
}

func resolveOptions(opts []Option) runtimeOptions {
	o := runtimeOptions{cfg: config.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.Default().Handler()).With("component", "heyrt")
	}
	return o
}

// WithContext wraps an already-constructed Context in a new Runtime
// (spec.md §6 `Runtime::with_context`).
func WithContext(ctx *Context, opts ...Option) *Runtime {
	o := resolveOptions(opts)
	return &Runtime{
		id:         uuid.New(),
		lock:       queue.New(),
		ctx:        ctx,
		logger:     o.logger,
		background: newBackgroundPool(),
	}
}

// Empty constructs a Runtime around a fresh, empty Context (spec.md §6
// `Runtime::empty`), honouring the capacity hint in opts' Config.
func Empty(opts ...Option) *Runtime {
	o := resolveOptions(opts)
	ctx := NewContext(o.cfg.InitialClassCapacity, o.logger)
	return &Runtime{
		id:         uuid.New(),
		lock:       queue.New(),
		ctx:        ctx,
		logger:     o.logger,
		background: newBackgroundPool(),
	}
}

// ID returns this runtime's session identity (spec.md §4.13,
// expansion).
func (r *Runtime) ID() uuid.UUID { return r.id }

// Context returns the wrapped Context directly, for callers that have
// already acquired exclusive access some other way (e.g. tests). Code
// driving the runtime concurrently should go through Run/Send instead.
func (r *Runtime) Context() *Context { return r.ctx }

// Drop marks the runtime as dropped: every continuation still being
// polled observes RuntimeDropped on its next poll (spec.md §5
// "Cancellation").
func (r *Runtime) Drop() {
	ticket := r.lock.AcquireWrite()
	for !ticket.Poll(nil) {
	}
	r.dropped = true
	ticket.Release()
}

// Run schedules cont, acquiring the context for each poll step via the
// fair queue's try_lock-then-queue admission (spec.md §4.7). Run
// blocks the calling goroutine until cont resolves; callers wanting an
// async handle should use SpawnBackground instead.
func (r *Runtime) Run(cont continuation.Continuation[Context]) values.Value {
	waker := continuation.NewWaker(func() {})
	for {
		if r.dropped {
			return values.NewError(errs.New(errs.RuntimeDropped))
		}

		ticket, ok := r.lock.TryAcquireWrite()
		if !ok {
			ticket = r.lock.AcquireWrite()
			for !ticket.Poll(waker) {
			}
		}

		if r.dropped {
			ticket.Release()
			return values.NewError(errs.New(errs.RuntimeDropped))
		}

		v, ready := cont.Poll(r.ctx, waker)
		ticket.Release()
		if ready {
			return v
		}
	}
}

// Send builds a send continuation for (receiver, sig, args) and runs
// it to completion (spec.md §4.7 `send`).
func (r *Runtime) Send(receiver values.Value, sig symbol.SignatureID, args []values.Value) values.Value {
	return r.Run(r.ctx.Send(r.ctx, receiver, sig, args))
}

// ReleaseValue releases a top-level value under the context (spec.md
// §4.7 `release_value`).
func (r *Runtime) ReleaseValue(v values.Value) {
	r.Run(continuation.Soon[Context](func(ctx *Context) continuation.Continuation[Context] {
		ctx.ReleaseValue(v)
		return continuation.Ready[Context](values.Nil)
	}))
}

// RunWithSymbols allocates a cell block, populates it from init (one
// entry per name), and runs body with a frame naming those cells; the
// cell block is released once body's continuation completes (spec.md
// §4.7 `run_with_symbols`).
func (r *Runtime) RunWithSymbols(init map[string]values.Value, body func(ctx *Context, frame cellblock.ID, names map[string]int) continuation.Continuation[Context]) values.Value {
	return r.Run(continuation.Soon[Context](func(ctx *Context) continuation.Continuation[Context] {
		names := make(map[string]int, len(init))
		cells := make([]values.Value, 0, len(init))
		for name, v := range init {
			names[name] = len(cells)
			cells = append(cells, v)
		}
		frame := ctx.frameArena.AllocateFrom(cells)

		return continuation.AndThen[Context](body(ctx, frame, names), func(v values.Value) continuation.Continuation[Context] {
			return continuation.Soon[Context](func(ctx *Context) continuation.Continuation[Context] {
				ctx.frameArena.Release(frame)
				return continuation.Ready[Context](v)
			})
		})
	}))
}

// SpawnBackground adds cont to the pool the runtime drives alongside
// whatever the caller is doing with Run/Send (spec.md §4.7
// `spawn_background`); it returns immediately with an id identifying
// the background task.
func (r *Runtime) SpawnBackground(cont continuation.Continuation[Context]) int64 {
	return r.background.spawn(r, cont)
}
