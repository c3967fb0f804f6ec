// Package dispatch implements the per-shape dispatch table of
// spec.md §4.3 (mapping a selector id to a handler for a given class or
// primitive "shape") and the ten builtin value-dispatch tables of
// spec.md §4.5.
package dispatch

import (
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// Handler is a dispatch-table entry: given the receiver and arguments,
// already wrapped as scoped-owned values, and the context, produce the
// continuation that computes the send's result.
type Handler[C any] func(receiver values.Owned, args []values.Owned, ctx *C) continuation.Continuation[C]

// NotSupportedHandler is the fallback a Table runs when no entry
// matches; it additionally receives the selector id so it can build a
// MessageNotSupported(sig) error (the default behaviour) or something
// more specific (e.g. classruntime's super-dispatch fallback).
type NotSupportedHandler[C any] func(sig symbol.SignatureID, receiver values.Owned, args []values.Owned, ctx *C) continuation.Continuation[C]

func defaultNotSupported[C any](sig symbol.SignatureID, receiver values.Owned, args []values.Owned, ctx *C) continuation.Continuation[C] {
	receiver.Release()
	for i := range args {
		args[i].Release()
	}
	return continuation.Ready[C](values.NewError(errs.MessageNotSupportedFor(sig)))
}

// Table is a sparse signature-id → Handler map for one "shape" (a
// class's instance or class dispatch table, or a primitive type's
// builtin table).
type Table[C any] struct {
	entries       map[symbol.SignatureID]Handler[C]
	notSupported  NotSupportedHandler[C]
	alsoSupported func(symbol.SignatureID) bool
}

// NewTable constructs an empty table whose fallback is the default
// MessageNotSupported behaviour.
func NewTable[C any]() *Table[C] {
	return &Table[C]{
		entries:      make(map[symbol.SignatureID]Handler[C]),
		notSupported: defaultNotSupported[C],
	}
}

// Insert installs or replaces the handler for sig.
func (t *Table[C]) Insert(sig symbol.SignatureID, h Handler[C]) {
	t.entries[sig] = h
}

// Get looks up the handler installed for sig.
func (t *Table[C]) Get(sig symbol.SignatureID) (Handler[C], bool) {
	h, ok := t.entries[sig]
	return h, ok
}

// SetNotSupported overrides the fallback run when no entry exists —
// classruntime uses this to implement super-dispatch instead of an
// immediate MessageNotSupported.
func (t *Table[C]) SetNotSupported(h NotSupportedHandler[C]) {
	t.notSupported = h
}

// SetAlsoSupportedPredicate installs the predicate RespondsTo consults
// for selectors the fallback would actually handle, even though no
// entry exists (spec.md §4.3 "also_supported_predicate").
func (t *Table[C]) SetAlsoSupportedPredicate(pred func(symbol.SignatureID) bool) {
	t.alsoSupported = pred
}

// RespondsTo reports whether dispatching sig through t would avoid the
// not-supported path (testable property 5).
func (t *Table[C]) RespondsTo(sig symbol.SignatureID) bool {
	if _, ok := t.entries[sig]; ok {
		return true
	}
	if t.alsoSupported != nil {
		return t.alsoSupported(sig)
	}
	return false
}

// Dispatch looks up sig and runs its handler, or the not-supported
// fallback.
func (t *Table[C]) Dispatch(sig symbol.SignatureID, receiver values.Owned, args []values.Owned, ctx *C) continuation.Continuation[C] {
	if h, ok := t.entries[sig]; ok {
		return h(receiver, args, ctx)
	}
	return t.notSupported(sig, receiver, args, ctx)
}

// CopyFrom bulk-copies every entry of src into t. When wrap is
// non-nil, each handler is passed through it before installation —
// used when subclassing to adapt a data-type mapping between a
// superclass's representation and a subclass's (spec.md §4.3 "Bulk
// copy ... optionally through a data-type mapping function").
func (t *Table[C]) CopyFrom(src *Table[C], wrap func(Handler[C]) Handler[C]) {
	for sig, h := range src.entries {
		if wrap != nil {
			h = wrap(h)
		}
		t.entries[sig] = h
	}
}

// Len reports how many selectors have an explicit entry.
func (t *Table[C]) Len() int { return len(t.entries) }
