package runtime

import (
	"context"
	"log/slog"

	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/values"
)

// Spawner is the narrow background-task capability a host exposes to
// code that only needs to fire continuations off, never drive them
// directly (spec.md §6 "External interfaces" expansion). *Runtime
// satisfies this directly.
type Spawner interface {
	SpawnBackground(cont continuation.Continuation[Context]) int64
}

var _ Spawner = (*Runtime)(nil)

// StreamSource is a host-provided byte source a block can be bridged
// to: Next blocks (on the host side, not the context's) until the next
// chunk is available or the stream is exhausted. Optional — nothing in
// this module implements it; a host supplies its own.
type StreamSource interface {
	Next(ctx context.Context) (chunk []byte, ok bool, err error)
}

// StreamSink is a host-provided byte destination a block's output can
// be bridged to.
type StreamSink interface {
	Write(ctx context.Context, chunk []byte) error
}

// ReadStreamValue returns a continuation that, on its first poll,
// pulls one chunk from src on its own goroutine and resolves to a
// String value, or Nil once the
// stream is exhausted or a host I/O error occurs — a read failure is
// treated the same as end of stream, since there is no core error kind
// for host-side I/O failures (spec.md §7's Kind enumeration is closed
// over the evaluator's own errors, not the host's). Script code that
// cares about the distinction should check the source directly; this
// bridge is a host convenience, not part of the core protocol, and
// nothing in cmd/hey calls it. Letting script code drive a host stream this way keeps the
// context lock free while the host I/O is in flight (spec.md §4.7
// "Later is the only legitimate suspension point").
func ReadStreamValue(ctx context.Context, src StreamSource) continuation.Continuation[Context] {
	return backgroundContext(ctx, func(ctx context.Context) values.Value {
		chunk, ok, err := src.Next(ctx)
		if err != nil {
			slog.Default().Warn("stream source read failed", "error", err)
			return values.Nil
		}
		if !ok {
			return values.Nil
		}
		return values.NewString(string(chunk))
	})
}

// WriteStreamValue returns a continuation that, on its first poll,
// writes v's string representation to sink on its own goroutine,
// resolving to Nil on success or an
// Error value if v is not a string (the one case this bridge can
// diagnose against the closed core Kind enumeration).
func WriteStreamValue(ctx context.Context, sink StreamSink, v values.Value) continuation.Continuation[Context] {
	return backgroundContext(ctx, func(ctx context.Context) values.Value {
		s, ok := v.AsString()
		if !ok {
			return values.NewError(errs.New(errs.NotAString))
		}
		if err := sink.Write(ctx, []byte(s)); err != nil {
			slog.Default().Warn("stream sink write failed", "error", err)
		}
		return values.Nil
	})
}
