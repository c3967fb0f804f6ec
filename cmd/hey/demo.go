package main

import (
	"fmt"

	"github.com/wudi/heyrt/cellblock"
	"github.com/wudi/heyrt/classruntime"
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/runtime"
	"github.com/wudi/heyrt/values"
)

// runDemo builds a small Counter class directly against classruntime's
// Go API (there is no parser in this core to build it from source
// text) and drives it through a Runtime exactly as a host embedding
// heyrt would: define the class, install its native methods, allocate
// an instance, send it a few messages, print the result.
func runDemo() error {
	rt := runtime.Empty()
	ctx := rt.Context()
	n := ctx.Interner()

	cls, err := ctx.Classes().Subclass("Counter", nil, []string{"count"})
	if err != nil {
		return err
	}

	cellOf := func(v values.Value) cellblock.ID {
		ref, _ := v.AsReference()
		return cellblock.ID(ref.Handle)
	}

	ctx.Classes().AddInstanceMessage(cls.ID, n.Unary("init"), func(receiver values.Owned, args []values.Owned, ctx *runtime.Context) continuation.Continuation[runtime.Context] {
		cls.Arena.SetCellAt(cellOf(receiver.Value()), 1, values.NewInt(0))
		result := receiver.Value()
		receiver.Release()
		for i := range args {
			args[i].Release()
		}
		return continuation.Ready[runtime.Context](result)
	})

	ctx.Classes().AddInstanceMessage(cls.ID, n.Unary("increment"), func(receiver values.Owned, args []values.Owned, ctx *runtime.Context) continuation.Continuation[runtime.Context] {
		id := cellOf(receiver.Value())
		count, _ := cls.Arena.CellAt(id, 1)
		i, _ := count.AsInt()
		cls.Arena.SetCellAt(id, 1, values.NewInt(i+1))
		result := receiver.Value()
		receiver.Release()
		for i := range args {
			args[i].Release()
		}
		return continuation.Ready[runtime.Context](result)
	})

	ctx.Classes().AddInstanceMessage(cls.ID, n.Unary("value"), func(receiver values.Owned, args []values.Owned, ctx *runtime.Context) continuation.Continuation[runtime.Context] {
		count, _ := cls.Arena.CellAt(cellOf(receiver.Value()), 1)
		receiver.Release()
		for i := range args {
			args[i].Release()
		}
		return continuation.Ready[runtime.Context](count)
	})

	classVal := classruntime.ClassValue(cls.ID)
	instance := rt.Send(classVal, n.Unary("new"), nil)
	if instance.IsError() {
		return fmt.Errorf("new Counter: %v", instance)
	}

	instance = rt.Send(instance, n.Unary("increment"), nil)
	instance = rt.Send(instance, n.Unary("increment"), nil)
	instance = rt.Send(instance, n.Unary("increment"), nil)

	result := rt.Send(instance, n.Unary("value"), nil)
	i, ok := result.AsInt()
	if !ok {
		return fmt.Errorf("Counter value: unexpected result %v", result)
	}

	fmt.Printf("Counter new; increment; increment; increment; value -> %d\n", i)
	rt.ReleaseValue(instance)
	return nil
}
