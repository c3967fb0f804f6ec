package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wudi/heyrt/cellblock"
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/runtime"
	"github.com/wudi/heyrt/values"
)

func poll(t *testing.T, ctx *runtime.Context, c continuation.Continuation[runtime.Context]) values.Value {
	t.Helper()
	v, ready := c.Poll(ctx, nil)
	require.True(t, ready, "continuation did not resolve synchronously")
	return v
}

func TestContextDispatchesBuiltinNumberProtocol(t *testing.T) {
	ctx := runtime.NewContext(0, nil)
	n := ctx.Interner()

	got := poll(t, ctx, ctx.Send(ctx, values.NewInt(2), n.Keyword("+"), []values.Value{values.NewInt(3)}))
	i, ok := got.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(5), i)
}

func TestContextAnyProtocolMergedIntoEveryBuiltinTable(t *testing.T) {
	ctx := runtime.NewContext(0, nil)
	n := ctx.Interner()

	for _, v := range []values.Value{
		values.NewInt(1), values.NewFloat(1.5), values.NewBool(true),
		values.NewString("x"), values.NewChar('a'), values.Nil,
	} {
		got := poll(t, ctx, ctx.Send(ctx, v, n.Unary("yourself"), nil))
		require.True(t, got.Equal(v), "yourself should answer the receiver unchanged for %v", v)
	}
}

func TestContextUnknownReferenceClassIsUnexpectedClass(t *testing.T) {
	ctx := runtime.NewContext(0, nil)
	n := ctx.Interner()

	bogus := values.NewReference(999, 0)
	got := poll(t, ctx, ctx.Send(ctx, bogus, n.Unary("foo"), nil))
	require.True(t, got.IsError())
}

func TestContextClassDefinitionAndInstantiation(t *testing.T) {
	ctx := runtime.NewContext(4, nil)

	cls, err := ctx.Classes().Subclass("Counter", nil, []string{"count"})
	require.NoError(t, err)

	instance := poll(t, ctx, ctx.Classes().New(ctx, cls.ID))
	require.False(t, instance.IsError())

	ref, ok := instance.AsReference()
	require.True(t, ok)
	require.Equal(t, int32(cls.ID), ref.ClassID)
}

func TestContextDropObserverFiresOnBlockRelease(t *testing.T) {
	ctx := runtime.NewContext(0, nil)

	var dropped []int32
	ctx.AddDropObserver(func(classID, handle int32) {
		dropped = append(dropped, handle)
	})

	blk := ctx.NewBlock(0, nil, func(ctx *runtime.Context, frames []cellblock.ID, args []values.Value) continuation.Continuation[runtime.Context] {
		return continuation.Ready[runtime.Context](values.Nil)
	})
	ctx.ReleaseValue(blk)

	require.Len(t, dropped, 1)
}
