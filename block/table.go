package block

import (
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/dispatch"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/heap"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// AllocatorOf resolves the per-context allocator that owns block
// storage. It is supplied by package runtime, which owns the concrete
// Context type this package is instantiated against.
type AllocatorOf[C any] func(ctx *C) *heap.Allocator[*Block[C]]

// BuildDispatchTable constructs the dispatch table blocks answer to:
// numArgs, value/value:/value:value:/… up to maxArity, and
// valueWithArguments:. blockClassID is the Reference.ClassID blocks
// are tagged with, so handlers here can validate the receiver really
// is a block before dereferencing its handle.
func BuildDispatchTable[C any](n *symbol.Interner, allocOf AllocatorOf[C], blockClassID int32, maxArity int) *dispatch.Table[C] {
	t := dispatch.NewTable[C]()

	resolve := func(ctx *C, v values.Value) (*Block[C], *values.Value) {
		ref, ok := v.AsReference()
		if !ok || ref.ClassID != blockClassID {
			errv := values.NewError(errs.New(errs.ExpectedBlockType))
			return nil, &errv
		}
		b, ok := allocOf(ctx).Retrieve(heap.Handle(ref.Handle))
		if !ok {
			errv := values.NewError(errs.New(errs.ExpectedBlockType))
			return nil, &errv
		}
		return b, nil
	}

	t.Insert(n.Unary("numArgs"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		b, errv := resolve(ctx, r.Value())
		r.Release()
		for i := range a {
			a[i].Release()
		}
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewInt(int64(b.Arity)))
	})

	for _, sig := range ValueSelectors(n, maxArity) {
		t.Insert(sig, func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
			b, errv := resolve(ctx, r.Value())
			r.Release()
			if errv != nil {
				for i := range a {
					a[i].Release()
				}
				return continuation.Ready[C](*errv)
			}
			args := make([]values.Value, len(a))
			for i := range a {
				args[i] = a[i].Leak()
			}
			return b.Call(ctx, args)
		})
	}

	t.Insert(n.Keyword("valueWithArguments:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		b, errv := resolve(ctx, r.Value())
		r.Release()
		if errv != nil {
			for i := range a {
				a[i].Release()
			}
			return continuation.Ready[C](*errv)
		}
		arr, ok := a[0].Value().AsArray()
		if !ok {
			for i := range a {
				a[i].Release()
			}
			return continuation.Ready[C](values.NewError(errs.New(errs.NotAnArray)))
		}
		args := make([]values.Value, len(arr.Elements))
		copy(args, arr.Elements)
		for i := range a {
			a[i].Release()
		}
		return b.Call(ctx, args)
	})

	return t
}
