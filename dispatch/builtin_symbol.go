package dispatch

import (
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// BuildSymbolTable constructs the Symbol protocol of spec.md §4.5:
// conversion back to its interned text and to a unary selector over
// the same text.
func BuildSymbolTable[C any](d Dispatcher[C], n *symbol.Interner) *Table[C] {
	t := NewTable[C]()

	t.Insert(n.Unary("asString"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		id, ok := r.Value().AsSymbol()
		r.Release()
		releaseAll(a)
		if !ok {
			return continuation.Ready[C](values.NewError(errs.New(errs.NotASelector)))
		}
		return continuation.Ready[C](values.NewString(n.SymbolText(id)))
	})

	t.Insert(n.Unary("asSelector"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		id, ok := r.Value().AsSymbol()
		r.Release()
		releaseAll(a)
		if !ok {
			return continuation.Ready[C](values.NewError(errs.New(errs.NotASelector)))
		}
		return continuation.Ready[C](values.NewSelector(n.Unary(n.SymbolText(id))))
	})

	return t
}
