package dispatch

import (
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// BuildArrayTable constructs the Array protocol of spec.md §4.5: size,
// indexing, element replacement, iteration via do: (sending value: to
// a block for each element), and concatenation. Arrays own their
// elements, so every handler clones via the owner before handing a
// borrowed element to user code and releases the array's own backing
// slice through the receiver's Release.
func BuildArrayTable[C any](d Dispatcher[C], n *symbol.Interner) *Table[C] {
	t := NewTable[C]()

	asArray := func(v values.Value) (*values.Array, *values.Value) {
		arr, ok := v.AsArray()
		if !ok {
			errv := values.NewError(errs.New(errs.NotAnArray))
			return nil, &errv
		}
		return arr, nil
	}

	t.Insert(n.Unary("size"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		arr, errv := asArray(r.Value())
		var size int
		if errv == nil {
			size = len(arr.Elements)
		}
		r.Release()
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewInt(int64(size)))
	})

	t.Insert(n.Unary("isEmpty"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		arr, errv := asArray(r.Value())
		var empty bool
		if errv == nil {
			empty = len(arr.Elements) == 0
		}
		r.Release()
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewBool(empty))
	})

	t.Insert(n.Keyword("at:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		arr, errv := asArray(r.Value())
		if errv != nil {
			r.Release()
			releaseAll(a)
			return continuation.Ready[C](*errv)
		}
		idx, ok := a[0].Value().AsInt()
		if !ok {
			r.Release()
			releaseAll(a)
			return continuation.Ready[C](values.NewError(errs.New(errs.NotAnInteger)))
		}
		if idx < 1 || int(idx) > len(arr.Elements) {
			r.Release()
			releaseAll(a)
			return continuation.Ready[C](values.NewError(errs.New(errs.UnexpectedClass)))
		}
		owner := d.Owner(ctx)
		result := owner.CloneValue(arr.Elements[idx-1])
		r.Release()
		releaseAll(a)
		return continuation.Ready[C](result)
	})

	t.Insert(n.Keyword("at:", "put:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		arr, errv := asArray(r.Value())
		if errv != nil {
			r.Release()
			releaseAll(a)
			return continuation.Ready[C](*errv)
		}
		idx, ok := a[0].Value().AsInt()
		if !ok {
			r.Release()
			releaseAll(a)
			return continuation.Ready[C](values.NewError(errs.New(errs.NotAnInteger)))
		}
		if idx < 1 || int(idx) > len(arr.Elements) {
			r.Release()
			releaseAll(a)
			return continuation.Ready[C](values.NewError(errs.New(errs.UnexpectedClass)))
		}
		owner := d.Owner(ctx)
		owner.ReleaseValue(arr.Elements[idx-1])
		arr.Elements[idx-1] = a[1].Leak()
		result := r.Leak()
		a[0].Release()
		return continuation.Ready[C](result)
	})

	t.Insert(n.Keyword(","), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		arr, errv := asArray(r.Value())
		if errv != nil {
			r.Release()
			releaseAll(a)
			return continuation.Ready[C](*errv)
		}
		other, errv := asArray(a[0].Value())
		if errv != nil {
			r.Release()
			releaseAll(a)
			return continuation.Ready[C](*errv)
		}
		owner := d.Owner(ctx)
		combined := make([]values.Value, 0, len(arr.Elements)+len(other.Elements))
		for _, e := range arr.Elements {
			combined = append(combined, owner.CloneValue(e))
		}
		for _, e := range other.Elements {
			combined = append(combined, owner.CloneValue(e))
		}
		r.Release()
		releaseAll(a)
		return continuation.Ready[C](values.NewArray(combined))
	})

	t.Insert(n.Keyword("do:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		arr, errv := asArray(r.Value())
		if errv != nil {
			r.Release()
			releaseAll(a)
			return continuation.Ready[C](*errv)
		}
		owner := d.Owner(ctx)
		elems := make([]values.Value, len(arr.Elements))
		copy(elems, arr.Elements)
		block := a[0].Leak()
		r.Release()
		valueArgSig := n.Keyword("value:")

		var step func(i int, blk values.Value) continuation.Continuation[C]
		step = func(i int, blk values.Value) continuation.Continuation[C] {
			if i >= len(elems) {
				owner.ReleaseValue(blk)
				return continuation.Ready[C](values.Nil)
			}
			arg := owner.CloneValue(elems[i])
			return continuation.AndThenIfOK[C](
				d.Send(ctx, owner.CloneValue(blk), valueArgSig, []values.Value{arg}),
				func(_ values.Value) continuation.Continuation[C] {
					return step(i+1, blk)
				},
			)
		}
		return step(0, block)
	})

	return t
}
