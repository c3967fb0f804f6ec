// Package block implements the first-class block (closure) value: a
// captured lexical frame chain plus a body callable through dispatch,
// standing in for spec.md's "evaluator-owned block value" now that the
// bytecode evaluator it would otherwise run against is out of scope —
// a block's body is supplied by the host as a plain Go function.
package block

import (
	"github.com/wudi/heyrt/cellblock"
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// Body is the host-supplied implementation a Block runs when sent
// value/value:/… ; it receives its captured frames (innermost first)
// alongside the positional arguments the send carried.
type Body[C any] func(ctx *C, frames []cellblock.ID, args []values.Value) continuation.Continuation[C]

// Block is one first-class closure: a body plus the frame chain it
// closed over and the arity it accepts. Blocks hold no refcounted
// resource of their own beyond retaining their captured frames.
type Block[C any] struct {
	Arity  int
	Frames []cellblock.ID
	Run    Body[C]
}

// New constructs a Block capturing frames (already retained by the
// caller; Release releases them).
func New[C any](arity int, frames []cellblock.ID, run Body[C]) *Block[C] {
	return &Block[C]{Arity: arity, Frames: frames, Run: run}
}

// Retain retains every captured frame, e.g. when the block itself is
// copied into a Reference cell.
func (b *Block[C]) Retain(arena *cellblock.Arena) {
	for _, f := range b.Frames {
		arena.Retain(f)
	}
}

// Release releases every captured frame.
func (b *Block[C]) Release(arena *cellblock.Arena) {
	for _, f := range b.Frames {
		arena.Release(f)
	}
}

// Call invokes the block's body with args, after checking arity.
// spec.md §4.5's value/value:/value:value:/… family and
// valueWithArguments: all funnel through this.
func (b *Block[C]) Call(ctx *C, args []values.Value) continuation.Continuation[C] {
	if len(args) != b.Arity {
		return continuation.Ready[C](values.NewError(errs.New(errs.WrongNumberOfArguments)))
	}
	return b.Run(ctx, b.Frames, args)
}

// ValueSelectors returns the unary/keyword selectors a block of the
// given arity answers to: "value" for arity 0, "value:" for arity 1,
// "value:value:" for arity 2, and so on.
func ValueSelectors(n *symbol.Interner, maxArity int) []symbol.SignatureID {
	sigs := make([]symbol.SignatureID, 0, maxArity+1)
	sigs = append(sigs, n.Unary("value"))
	parts := make([]string, 0, maxArity)
	for i := 1; i <= maxArity; i++ {
		parts = append(parts, "value:")
		sig := make([]string, len(parts))
		copy(sig, parts)
		sigs = append(sigs, n.Keyword(sig...))
	}
	return sigs
}
