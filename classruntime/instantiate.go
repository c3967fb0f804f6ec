package classruntime

import (
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// allocate builds one cell block for id: cell 0 is the super instance,
// cells 1..N are this class's own instance variables initialised to
// Nil, and the instance Reference naming the new block is the result.
// Per spec.md §4.4, the super instance is not built by a direct
// recursive call but by sending newSuperclass to the superclass's
// class value — the default newSuperclass handler (protocol.go) simply
// calls back into allocate for that class, so the recursion still
// happens by default, but any class in the chain can override
// newSuperclass to change how its share of a subclass instance is
// constructed.
func (r *Registry[C]) allocate(ctx *C, id ID) continuation.Continuation[C] {
	c, ok := r.ClassByID(id)
	if !ok {
		return continuation.Ready[C](values.NewError(errs.New(errs.UnexpectedClass)))
	}

	if !c.HasSuper {
		return r.finishAllocate(c, values.Nil)
	}

	newSuperclassSig := r.n.Unary("newSuperclass")
	return continuation.AndThenIfOK[C](
		r.d.Send(ctx, ClassValue(c.SuperID), newSuperclassSig, nil),
		func(superVal values.Value) continuation.Continuation[C] {
			return r.finishAllocate(c, superVal)
		},
	)
}

func (r *Registry[C]) finishAllocate(c *Class[C], superVal values.Value) continuation.Continuation[C] {
	cells := make([]values.Value, 1+len(c.InstanceVarNames))
	cells[0] = superVal
	for i := 1; i < len(cells); i++ {
		cells[i] = values.Nil
	}
	handle := c.Arena.AllocateFrom(cells)
	return continuation.Ready[C](values.NewReference(int32(c.ID), int32(handle)))
}

// New allocates a fresh instance of id and sends it the unary init
// message before returning it, implementing spec.md §4.4's default
// new/init sequence. An error from allocation or init is propagated as
// the overall result rather than the instance.
func (r *Registry[C]) New(ctx *C, id ID) continuation.Continuation[C] {
	initSig := r.n.Unary("init")
	return continuation.AndThenIfOK[C](
		r.allocate(ctx, id),
		func(instance values.Value) continuation.Continuation[C] {
			return continuation.AndThen[C](
				r.d.Send(ctx, r.ownerInstance.CloneValue(instance), initSig, nil),
				func(v values.Value) continuation.Continuation[C] {
					if v.IsError() {
						r.ownerInstance.ReleaseValue(instance)
						return continuation.Ready[C](v)
					}
					return continuation.Ready[C](instance)
				},
			)
		},
	)
}

// AddInstanceMessage installs handler as sig's implementation for
// instances of id, overriding any inherited entry (spec.md §4.4
// "addInstanceMessage:withAction:").
func (r *Registry[C]) AddInstanceMessage(id ID, sig symbol.SignatureID, h func(receiver values.Owned, args []values.Owned, ctx *C) continuation.Continuation[C]) {
	c, ok := r.ClassByID(id)
	if !ok {
		return
	}
	c.InstanceTable.Insert(sig, h)
}
