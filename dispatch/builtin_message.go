package dispatch

import (
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// BuildMessageTable constructs the Message protocol of spec.md §4.5:
// selector/argument introspection and selectorStartsWith:, which tests
// whether the message's selector's keyword parts begin with the given
// prefix's keyword parts.
func BuildMessageTable[C any](d Dispatcher[C], n *symbol.Interner) *Table[C] {
	t := NewTable[C]()

	asMessage := func(v values.Value) (*values.Message, *values.Value) {
		m, ok := v.AsMessage()
		if !ok {
			errv := values.NewError(errs.New(errs.NotAMessage))
			return nil, &errv
		}
		return m, nil
	}

	t.Insert(n.Unary("selector"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		m, errv := asMessage(r.Value())
		var sel symbol.SignatureID
		if errv == nil {
			sel = m.Sig
		}
		r.Release()
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewSelector(sel))
	})

	t.Insert(n.Unary("arguments"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		m, errv := asMessage(r.Value())
		if errv != nil {
			r.Release()
			releaseAll(a)
			return continuation.Ready[C](*errv)
		}
		owner := d.Owner(ctx)
		args := make([]values.Value, len(m.Args))
		for i, v := range m.Args {
			args[i] = owner.CloneValue(v)
		}
		r.Release()
		releaseAll(a)
		return continuation.Ready[C](values.NewArray(args))
	})

	t.Insert(n.Keyword("matchesSelector:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		m, errv := asMessage(r.Value())
		if errv != nil {
			r.Release()
			releaseAll(a)
			return continuation.Ready[C](*errv)
		}
		other, ok := a[0].Value().AsSelector()
		sig := m.Sig
		r.Release()
		releaseAll(a)
		if !ok {
			return continuation.Ready[C](values.NewError(errs.New(errs.NotASelector)))
		}
		return continuation.Ready[C](values.NewBool(sig == other))
	})

	t.Insert(n.Keyword("selectorStartsWith:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		m, errv := asMessage(r.Value())
		if errv != nil {
			r.Release()
			releaseAll(a)
			return continuation.Ready[C](*errv)
		}
		prefixSel, ok := a[0].Value().AsSelector()
		sig := m.Sig
		r.Release()
		releaseAll(a)
		if !ok {
			return continuation.Ready[C](values.NewError(errs.New(errs.NotASelector)))
		}
		return continuation.Ready[C](values.NewBool(selectorHasPrefix(n, sig, prefixSel)))
	})

	return t
}

// selectorHasPrefix reports whether sel's keyword parts begin with
// prefix's keyword parts, part for part. A unary selector only
// "starts with" itself.
func selectorHasPrefix(n *symbol.Interner, sel, prefix symbol.SignatureID) bool {
	selSig, ok := n.Lookup(sel)
	if !ok {
		return false
	}
	prefixSig, ok := n.Lookup(prefix)
	if !ok {
		return false
	}
	if len(prefixSig.Parts) > len(selSig.Parts) {
		return false
	}
	for i, p := range prefixSig.Parts {
		if selSig.Parts[i] != p {
			return false
		}
	}
	return true
}
