package dispatch

import (
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// BuildSelectorTable constructs the Selector protocol of spec.md §4.5:
// binding a selector to arguments to build a first-class Message, via
// asMessage, with: (and its with:with:… siblings up to eight
// positional arguments) and withArguments:, plus arity introspection.
func BuildSelectorTable[C any](d Dispatcher[C], n *symbol.Interner) *Table[C] {
	t := NewTable[C]()

	asSelector := func(v values.Value) (symbol.SignatureID, *values.Value) {
		sel, ok := v.AsSelector()
		if !ok {
			errv := values.NewError(errs.New(errs.NotASelector))
			return 0, &errv
		}
		return sel, nil
	}

	t.Insert(n.Unary("numArgs"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		sel, errv := asSelector(r.Value())
		r.Release()
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewInt(int64(n.Arity(sel))))
	})

	bindArgs := func() Handler[C] {
		return func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
			sel, errv := asSelector(r.Value())
			r.Release()
			if errv != nil {
				releaseAll(a)
				return continuation.Ready[C](*errv)
			}
			if n.Arity(sel) != len(a) {
				releaseAll(a)
				return continuation.Ready[C](values.NewError(errs.New(errs.WrongNumberOfArguments)))
			}
			args := make([]values.Value, len(a))
			for i := range a {
				args[i] = a[i].Leak()
			}
			return continuation.Ready[C](values.NewMessage(sel, args))
		}
	}

	t.Insert(n.Unary("asMessage"), bindArgs())
	const maxWith = 8
	for count := 1; count <= maxWith; count++ {
		parts := make([]string, count)
		for i := range parts {
			parts[i] = "with:"
		}
		t.Insert(n.Keyword(parts...), bindArgs())
	}

	t.Insert(n.Keyword("withArguments:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		sel, errv := asSelector(r.Value())
		r.Release()
		if errv != nil {
			releaseAll(a)
			return continuation.Ready[C](*errv)
		}
		arr, ok := a[0].Value().AsArray()
		if !ok {
			releaseAll(a)
			return continuation.Ready[C](values.NewError(errs.New(errs.NotAnArray)))
		}
		if n.Arity(sel) != len(arr.Elements) {
			releaseAll(a)
			return continuation.Ready[C](values.NewError(errs.New(errs.WrongNumberOfArguments)))
		}
		owner := d.Owner(ctx)
		args := make([]values.Value, len(arr.Elements))
		for i, e := range arr.Elements {
			args[i] = owner.CloneValue(e)
		}
		releaseAll(a)
		return continuation.Ready[C](values.NewMessage(sel, args))
	})

	return t
}
