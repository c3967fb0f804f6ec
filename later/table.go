package later

import (
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/dispatch"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/heap"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// AllocatorOf resolves the per-context allocator that owns Later
// storage, supplied by package runtime the way block.AllocatorOf is.
type AllocatorOf[C any] func(ctx *C) *heap.Allocator[*Later[C]]

// OwnerOf resolves the per-context values.Owner used to retain a
// cached value handed out to more than one observer.
type OwnerOf[C any] func(ctx *C) values.Owner

// BuildDispatchTable constructs the dispatch table Later answers to:
// new (a class-level factory, valid on any Later-tagged reference, not
// just a distinguished "class" value — mirroring how block's table
// needs no separate class-side table either), value, and setValue:.
// laterClassID is the Reference.ClassID Later instances are tagged
// with.
func BuildDispatchTable[C any](n *symbol.Interner, allocOf AllocatorOf[C], ownerOf OwnerOf[C], laterClassID int32) *dispatch.Table[C] {
	t := dispatch.NewTable[C]()

	resolve := func(ctx *C, v values.Value) (heap.Handle, *Later[C], *values.Value) {
		ref, ok := v.AsReference()
		if !ok || ref.ClassID != laterClassID {
			errv := values.NewError(errs.New(errs.UnexpectedClass))
			return 0, nil, &errv
		}
		h := heap.Handle(ref.Handle)
		l, ok := allocOf(ctx).Retrieve(h)
		if !ok {
			errv := values.NewError(errs.New(errs.UnexpectedClass))
			return 0, nil, &errv
		}
		return h, l, nil
	}

	t.Insert(n.Unary("new"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		r.Release()
		for i := range a {
			a[i].Release()
		}
		h := allocOf(ctx).Store(New[C]())
		return continuation.Ready[C](values.NewReference(laterClassID, int32(h)))
	})

	t.Insert(n.Unary("value"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		_, l, errv := resolve(ctx, r.Value())
		r.Release()
		for i := range a {
			a[i].Release()
		}
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Later[C](func(ctx *C, w *continuation.Waker) (values.Value, bool) {
			v, ready := l.peek(w)
			if !ready {
				return values.Nil, false
			}
			return ownerOf(ctx).CloneValue(v), true
		})
	})

	t.Insert(n.Keyword("setValue:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		_, l, errv := resolve(ctx, r.Value())
		r.Release()
		if errv != nil {
			for i := range a {
				a[i].Release()
			}
			return continuation.Ready[C](*errv)
		}
		v := a[0].Leak()
		if !l.trySetValue(v) {
			ownerOf(ctx).ReleaseValue(v)
			return continuation.Ready[C](values.NewError(errs.New(errs.AlreadySentValue)))
		}
		return continuation.Ready[C](values.Nil)
	})

	return t
}
