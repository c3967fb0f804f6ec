package classruntime

import (
	"github.com/wudi/heyrt/block"
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/values"
)

// classOf resolves the receiver of a send through ClassClass's table
// back to the Class it names.
func (r *Registry[C]) classOf(v values.Value) (*Class[C], *values.Value) {
	ref, ok := v.AsReference()
	if !ok || ref.ClassID != int32(ClassClassID) {
		errv := values.NewError(errs.New(errs.UnexpectedClass))
		return nil, &errv
	}
	c, ok := r.ClassByID(ID(ref.Handle))
	if !ok {
		errv := values.NewError(errs.New(errs.UnexpectedClass))
		return nil, &errv
	}
	return c, nil
}

// InstallClassProtocol populates ClassClass's instance table: new,
// name, subclass:, subclass:instanceVariableNames:, and the
// addInstanceMessage:withAction:/addClassMessage:withAction: pair that
// let a running script extend a class with native block bodies.
// resolveBlock dereferences a Block Reference back to the concrete
// *block.Block[C] the runtime's block allocator owns.
func (r *Registry[C]) InstallClassProtocol(resolveBlock func(ctx *C, v values.Value) (*block.Block[C], bool)) {
	t := r.classTbl
	n := r.n

	t.Insert(n.Unary("new"), func(rv values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		c, errv := r.classOf(rv.Value())
		rv.Release()
		for i := range a {
			a[i].Release()
		}
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return r.New(ctx, c.ID)
	})

	t.Insert(n.Unary("name"), func(rv values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		c, errv := r.classOf(rv.Value())
		rv.Release()
		for i := range a {
			a[i].Release()
		}
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewString(c.Name))
	})

	t.Insert(n.Unary("instanceVariableNames"), func(rv values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		c, errv := r.classOf(rv.Value())
		rv.Release()
		for i := range a {
			a[i].Release()
		}
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		elems := make([]values.Value, len(c.InstanceVarNames))
		for i, name := range c.InstanceVarNames {
			elems[i] = values.NewString(name)
		}
		return continuation.Ready[C](values.NewArray(elems))
	})

	t.Insert(n.Unary("superclass"), func(rv values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		c, errv := r.classOf(rv.Value())
		rv.Release()
		for i := range a {
			a[i].Release()
		}
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		if !c.HasSuper {
			return continuation.Ready[C](values.Nil)
		}
		return continuation.Ready[C](ClassValue(c.SuperID))
	})

	// newSuperclass is the extensibility point spec.md §4.4's new/init
	// sequence names: allocating an instance of a subclass sends
	// newSuperclass to the superclass's class value rather than
	// constructing it directly, so a script overriding newSuperclass via
	// addClassMessage:withAction: controls how its own superclass's
	// share of a subclass instance gets built. The default here is
	// ordinary recursive allocation (no init sent, matching allocate's
	// previous behaviour) through the same class's own newSuperclass
	// send, so an override anywhere in the chain still applies to every
	// subclass beneath it.
	t.Insert(n.Unary("newSuperclass"), func(rv values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		c, errv := r.classOf(rv.Value())
		rv.Release()
		for i := range a {
			a[i].Release()
		}
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return r.allocate(ctx, c.ID)
	})

	subclassHandler := func(withIvars bool) func(values.Owned, []values.Owned, *C) continuation.Continuation[C] {
		return func(rv values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
			super, errv := r.classOf(rv.Value())
			rv.Release()
			if errv != nil {
				for i := range a {
					a[i].Release()
				}
				return continuation.Ready[C](*errv)
			}
			name, ok := a[0].Value().AsString()
			if !ok {
				for i := range a {
					a[i].Release()
				}
				return continuation.Ready[C](values.NewError(errs.New(errs.NotAString)))
			}
			var ivars []string
			if withIvars {
				arr, ok := a[1].Value().AsArray()
				if !ok {
					for i := range a {
						a[i].Release()
					}
					return continuation.Ready[C](values.NewError(errs.New(errs.NotAnArray)))
				}
				for _, e := range arr.Elements {
					s, _ := e.AsString()
					ivars = append(ivars, s)
				}
			}
			for i := range a {
				a[i].Release()
			}
			c, err := r.Subclass(name, super, ivars)
			if err != nil {
				return continuation.Ready[C](values.NewError(errs.New(errs.UnexpectedClass)))
			}
			return continuation.Ready[C](ClassValue(c.ID))
		}
	}

	t.Insert(n.Keyword("subclass:"), subclassHandler(false))
	t.Insert(n.Keyword("subclass:", "instanceVariableNames:"), subclassHandler(true))

	installHandler := func(isClassSide bool) func(values.Owned, []values.Owned, *C) continuation.Continuation[C] {
		return func(rv values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
			c, errv := r.classOf(rv.Value())
			rv.Release()
			if errv != nil {
				for i := range a {
					a[i].Release()
				}
				return continuation.Ready[C](*errv)
			}
			sel, ok := a[0].Value().AsSelector()
			if !ok {
				for i := range a {
					a[i].Release()
				}
				return continuation.Ready[C](values.NewError(errs.New(errs.NotASelector)))
			}
			blk, ok := resolveBlock(ctx, a[1].Value())
			if !ok {
				for i := range a {
					a[i].Release()
				}
				return continuation.Ready[C](values.NewError(errs.New(errs.ExpectedBlockType)))
			}
			for i := range a {
				a[i].Release()
			}
			target := c.InstanceTable
			if isClassSide {
				target = c.ClassTable
			}
			target.Insert(sel, func(receiver values.Owned, args []values.Owned, ctx *C) continuation.Continuation[C] {
				rawArgs := make([]values.Value, len(args)+1)
				rawArgs[0] = receiver.Leak()
				for i := range args {
					rawArgs[i+1] = args[i].Leak()
				}
				return blk.Call(ctx, rawArgs)
			})
			return continuation.Ready[C](values.Nil)
		}
	}

	t.Insert(n.Keyword("addInstanceMessage:", "withAction:"), installHandler(false))
	t.Insert(n.Keyword("addClassMessage:", "withAction:"), installHandler(true))
}
