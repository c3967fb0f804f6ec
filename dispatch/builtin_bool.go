package dispatch

import (
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// BuildBoolTable constructs the boolean protocol of spec.md §4.5:
// short-circuit and:/or:, eager &, |, xor:, eqv:, and the four
// ifTrue:/ifFalse: combinators.
func BuildBoolTable[C any](d Dispatcher[C], n *symbol.Interner) *Table[C] {
	t := NewTable[C]()
	valueSig := n.Unary("value")

	asBool := func(v values.Value) (bool, *values.Value) {
		b, ok := v.AsBool()
		if !ok {
			errv := values.NewError(errs.New(errs.NotABoolean))
			return false, &errv
		}
		return b, nil
	}

	// Short-circuit combinators send `value` to the block argument
	// only when needed, rather than evaluating it eagerly.
	t.Insert(n.Keyword("and:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		self, errv := asBool(r.Value())
		r.Release()
		if errv != nil {
			releaseAll(a)
			return continuation.Ready[C](*errv)
		}
		if !self {
			releaseAll(a)
			return continuation.Ready[C](values.NewBool(false))
		}
		block := a[0].Leak()
		return d.Send(ctx, block, valueSig, nil)
	})

	t.Insert(n.Keyword("or:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		self, errv := asBool(r.Value())
		r.Release()
		if errv != nil {
			releaseAll(a)
			return continuation.Ready[C](*errv)
		}
		if self {
			releaseAll(a)
			return continuation.Ready[C](values.NewBool(true))
		}
		block := a[0].Leak()
		return d.Send(ctx, block, valueSig, nil)
	})

	type binop func(a, b bool) bool
	eager := map[symbol.SignatureID]binop{
		n.Keyword("&"):    func(a, b bool) bool { return a && b },
		n.Keyword("|"):    func(a, b bool) bool { return a || b },
		n.Keyword("xor:"): func(a, b bool) bool { return a != b },
		n.Keyword("eqv:"): func(a, b bool) bool { return a == b },
	}
	for sig, op := range eager {
		op := op
		t.Insert(sig, func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
			self, errv := asBool(r.Value())
			r.Release()
			if errv != nil {
				releaseAll(a)
				return continuation.Ready[C](*errv)
			}
			other, errv := asBool(a[0].Value())
			releaseAll(a)
			if errv != nil {
				return continuation.Ready[C](*errv)
			}
			return continuation.Ready[C](values.NewBool(op(self, other)))
		})
	}

	t.Insert(n.Keyword("ifTrue:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		return ifCombinator[C](r, a, ctx, d, valueSig, true, false)
	})
	t.Insert(n.Keyword("ifFalse:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		return ifCombinator[C](r, a, ctx, d, valueSig, false, false)
	})
	t.Insert(n.Keyword("ifTrue:", "ifFalse:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		return ifCombinator[C](r, a, ctx, d, valueSig, true, true)
	})
	t.Insert(n.Keyword("ifFalse:", "ifTrue:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		return ifCombinator[C](r, a, ctx, d, valueSig, false, true)
	})

	return t
}

// ifCombinator implements all four ifTrue:/ifFalse: variants. whenArg0
// selects which boolean value picks argument 0 (vs argument 1, only
// present when twoArgs is set); the other branch's block, if present,
// is released unevaluated.
func ifCombinator[C any](r values.Owned, a []values.Owned, ctx *C, d Dispatcher[C], valueSig symbol.SignatureID, whenArg0 bool, twoArgs bool) continuation.Continuation[C] {
	self, ok := r.Value().AsBool()
	r.Release()
	if !ok {
		releaseAll(a)
		return continuation.Ready[C](values.NewError(errs.New(errs.NotABoolean)))
	}

	takeFirst := self == whenArg0
	var chosen, other values.Owned
	if twoArgs {
		if takeFirst {
			chosen, other = a[0], a[1]
		} else {
			chosen, other = a[1], a[0]
		}
		other.Release()
		return d.Send(ctx, chosen.Leak(), valueSig, nil)
	}

	if !takeFirst {
		releaseAll(a)
		return continuation.Ready[C](values.Nil)
	}
	chosen = a[0]
	return d.Send(ctx, chosen.Leak(), valueSig, nil)
}
