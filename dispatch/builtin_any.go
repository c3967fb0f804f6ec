package dispatch

import (
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

func releaseAll(owned []values.Owned) {
	for i := range owned {
		owned[i].Release()
	}
}

// BuildAnyTable constructs the universal object protocol every value
// answers regardless of its specific kind (spec.md §4.5): =, ==, ~=,
// ~~, hash, identityHash, isNil, notNil, yourself, perform: (and its
// perform:with:… / perform:withArguments: siblings), and respondsTo:.
func BuildAnyTable[C any](d Dispatcher[C], n *symbol.Interner) *Table[C] {
	t := NewTable[C]()

	t.Insert(n.Unary("yourself"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		releaseAll(a)
		return continuation.Ready[C](r.Leak())
	})

	t.Insert(n.Unary("isNil"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		isNil := r.Value().IsNil()
		r.Release()
		releaseAll(a)
		return continuation.Ready[C](values.NewBool(isNil))
	})

	t.Insert(n.Unary("notNil"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		isNil := r.Value().IsNil()
		r.Release()
		releaseAll(a)
		return continuation.Ready[C](values.NewBool(!isNil))
	})

	t.Insert(n.Unary("hash"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		h := r.Value().Hash()
		r.Release()
		releaseAll(a)
		return continuation.Ready[C](values.NewInt(int64(h)))
	})

	t.Insert(n.Unary("identityHash"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		h := r.Value().Hash()
		r.Release()
		releaseAll(a)
		return continuation.Ready[C](values.NewInt(int64(h)))
	})

	eq := n.Keyword("=")
	neq := n.Keyword("~=")
	same := n.Keyword("==")
	notSame := n.Keyword("~~")
	for sig, negate := range map[symbol.SignatureID]bool{eq: false, neq: true, same: false, notSame: true} {
		sig, negate := sig, negate
		t.Insert(sig, func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
			result := r.Value().Equal(a[0].Value())
			if negate {
				result = !result
			}
			r.Release()
			releaseAll(a)
			return continuation.Ready[C](values.NewBool(result))
		})
	}

	t.Insert(n.Keyword("respondsTo:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		sel, ok := a[0].Value().AsSelector()
		rv := r.Value()
		r.Release()
		releaseAll(a)
		if !ok {
			return continuation.Ready[C](values.NewError(errs.New(errs.NotASelector)))
		}
		return continuation.Ready[C](values.NewBool(d.RespondsTo(ctx, rv, sel)))
	})

	installPerform(t, d, n)

	return t
}

// installPerform registers perform:, perform:with:, perform:with:with:,
// ... up to eight positional arguments, and perform:withArguments:
// (spec.md §4.5 "perform: implementation").
func installPerform[C any](t *Table[C], d Dispatcher[C], n *symbol.Interner) {
	const maxWith = 8
	for extra := 0; extra <= maxWith; extra++ {
		parts := make([]string, 0, extra+1)
		parts = append(parts, "perform:")
		for i := 0; i < extra; i++ {
			parts = append(parts, "with:")
		}
		sig := n.Keyword(parts...)
		t.Insert(sig, func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
			return performHandler(r, a, ctx, d, n)
		})
	}

	t.Insert(n.Keyword("perform:", "withArguments:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		sel, ok := a[0].Value().AsSelector()
		if !ok {
			r.Release()
			releaseAll(a)
			return continuation.Ready[C](values.NewError(errs.New(errs.NotASelector)))
		}
		arr, ok := a[1].Value().AsArray()
		if !ok {
			r.Release()
			releaseAll(a)
			return continuation.Ready[C](values.NewError(errs.New(errs.NotAnArray)))
		}
		wantArity := n.Arity(sel)
		if wantArity != len(arr.Elements) {
			r.Release()
			releaseAll(a)
			return continuation.Ready[C](values.NewError(errs.New(errs.WrongNumberOfArguments)))
		}
		args := make([]values.Value, len(arr.Elements))
		owner := d.Owner(ctx)
		for i, e := range arr.Elements {
			args[i] = owner.CloneValue(e)
		}
		rv := r.Leak()
		releaseAll(a)
		return d.Send(ctx, rv, sel, args)
	})
}

func performHandler[C any](r values.Owned, a []values.Owned, ctx *C, d Dispatcher[C], n *symbol.Interner) continuation.Continuation[C] {
	if len(a) == 0 {
		r.Release()
		return continuation.Ready[C](values.NewError(errs.New(errs.NotASelector)))
	}
	sel, ok := a[0].Value().AsSelector()
	if !ok {
		r.Release()
		releaseAll(a)
		return continuation.Ready[C](values.NewError(errs.New(errs.NotASelector)))
	}
	rest := a[1:]
	if n.Arity(sel) != len(rest) {
		r.Release()
		releaseAll(a)
		return continuation.Ready[C](values.NewError(errs.New(errs.WrongNumberOfArguments)))
	}
	args := make([]values.Value, len(rest))
	for i := range rest {
		args[i] = rest[i].Leak()
	}
	a[0].Release()
	rv := r.Leak()
	return d.Send(ctx, rv, sel, args)
}
